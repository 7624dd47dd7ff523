package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/extract"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// stdinName is the filename assumed for "-"; stdin is read as plain text.
const stdinName = "stdin.txt"

type segmentFlags struct {
	maxTokens int
}

type processFlags struct {
	analysisType string
	maxTokens    int
	noContext    bool
	strategy     string
}

func newSegmentCmd() *cobra.Command {
	f := &segmentFlags{}
	cmd := &cobra.Command{
		Use:   "segment FILE",
		Short: "Split a document into token-bounded segments",
		Long: "Split a document into segments without analysing them.\n" +
			"FILE may be .txt, .md, .html, .pdf or .docx; use - to read text from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(cmd, args[0], f)
		},
	}
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "token budget per segment (0 uses the configured default)")
	return cmd
}

func newProcessCmd() *cobra.Command {
	f := &processFlags{}
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Segment, analyse and merge a document",
		Long: "Run the full long document pipeline on FILE and print the merged analysis.\n" +
			"FILE may be .txt, .md, .html, .pdf or .docx; use - to read text from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.analysisType, "type", "t", string(document.AnalysisOfficeAction), "analysis type (office_action, prior_art, patent, general)")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "token budget per segment (0 uses the configured default)")
	fl.BoolVar(&f.noContext, "no-context", false, "do not pass earlier results to later segments")
	fl.StringVar(&f.strategy, "strategy", "", "merging strategy (strict, loose, intelligent)")
	return cmd
}

func runSegment(cmd *cobra.Command, path string, f *segmentFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	opts := document.Options{MaxTokensPerSegment: f.maxTokens}
	if err := opts.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}

	doc, err := readDocument(cmd, path)
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	var res *document.SegmentationResult
	if cliCtx.Remote() {
		c, err := cliCtx.Client()
		if err != nil {
			return err
		}
		res, err = c.Documents().Segment(ctx, doc.Text, opts)
		if err != nil {
			return err
		}
	} else {
		svc, err := cliCtx.Pipeline()
		if err != nil {
			return err
		}
		res, err = svc.SegmentDocument(ctx, doc.Text, opts)
		if err != nil {
			return err
		}
	}
	if res.DocumentMetadata.PageCount == 0 {
		res.DocumentMetadata.PageCount = doc.PageCount
	}
	return PrintResult(cmd, segmentationView{res})
}

func runProcess(cmd *cobra.Command, path string, f *processFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	analysisType := document.AnalysisType(strings.ToLower(f.analysisType))
	if !analysisType.IsValid() {
		return errors.InvalidParam(fmt.Sprintf("unknown analysis type %q", f.analysisType))
	}
	opts := document.Options{
		MaxTokensPerSegment: f.maxTokens,
		MergingStrategy:     document.MergingStrategy(strings.ToLower(f.strategy)),
	}
	if f.noContext {
		opts.PreserveContext = document.BoolPtr(false)
	}
	if err := opts.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}

	doc, err := readDocument(cmd, path)
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	var res *document.ProcessedDocumentResult
	if cliCtx.Remote() {
		c, err := cliCtx.Client()
		if err != nil {
			return err
		}
		res, err = c.Documents().Process(ctx, doc.Text, analysisType, opts)
		if err != nil {
			return err
		}
	} else {
		svc, err := cliCtx.Pipeline()
		if err != nil {
			return err
		}
		res, err = svc.ProcessLongDocument(ctx, doc.Text, analysisType, opts)
		if err != nil {
			return err
		}
	}
	if res.DocumentMetadata.PageCount == 0 {
		res.DocumentMetadata.PageCount = doc.PageCount
	}
	return PrintResult(cmd, processedView{res})
}

// readDocument extracts text from path, or from stdin for "-".
func readDocument(cmd *cobra.Command, path string) (*extract.Document, error) {
	if path == "-" {
		return extract.Extract(cmd.InOrStdin(), stdinName)
	}
	if _, err := extract.ForFile(path); err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.InvalidParam(fmt.Sprintf("cannot open %s", path)).WithDetail(err.Error())
	}
	defer fh.Close()
	return extract.Extract(fh, path)
}

type segmentationView struct {
	*document.SegmentationResult
}

func (v segmentationView) Text() string {
	var sb strings.Builder
	writeMetadata(&sb, v.DocumentMetadata)
	fmt.Fprintf(&sb, "Segments: %d  Total tokens: %d\n\n", len(v.Segments), v.TotalTokens)
	sb.WriteString(segmentTable(v.Segments, false))
	return sb.String()
}

type processedView struct {
	*document.ProcessedDocumentResult
}

func (v processedView) Text() string {
	var sb strings.Builder
	writeMetadata(&sb, v.DocumentMetadata)
	writeSummary(&sb, v.Summary)
	sb.WriteString("\n")
	sb.WriteString(segmentTable(v.Segments, true))
	if len(v.Analysis) > 0 {
		sb.WriteString("\nAnalysis:\n")
		writeAnalysis(&sb, v.Analysis)
	}
	return sb.String()
}

func writeMetadata(w io.Writer, m document.DocumentMetadata) {
	if m.IsEmpty() {
		return
	}
	if m.ApplicationNumber != "" {
		fmt.Fprintf(w, "Application: %s\n", m.ApplicationNumber)
	}
	if m.MailingDate != "" {
		fmt.Fprintf(w, "Mailed:      %s\n", m.MailingDate)
	}
	if m.ExaminerName != "" {
		fmt.Fprintf(w, "Examiner:    %s\n", m.ExaminerName)
	}
	if m.PageCount > 0 {
		fmt.Fprintf(w, "Pages:       %d\n", m.PageCount)
	}
}

func writeSummary(w io.Writer, s document.ProcessingSummary) {
	fmt.Fprintf(w, "Segments: %d processed, %d failed, %d total\n",
		s.ProcessedSegments, s.FailedSegments, s.TotalSegments)
	fmt.Fprintf(w, "Tokens:   %d in, %d out\n", s.InputTokens, s.OutputTokens)
	fmt.Fprintf(w, "Time:     %dms\n", s.ProcessingTimeMs)
	if len(s.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded: %s\n", strings.Join(s.Degraded, ", "))
	}
}

func segmentTable(segs []document.DocumentSegment, withStatus bool) string {
	headers := []string{"#", "TYPE", "RANGE", "TOKENS"}
	if withStatus {
		headers = append(headers, "STATUS")
	}
	rows := make([][]string, 0, len(segs))
	for i, s := range segs {
		row := []string{
			strconv.Itoa(i + 1),
			string(s.Type),
			fmt.Sprintf("%d-%d", s.StartIndex, s.EndIndex),
			strconv.Itoa(s.TokenCount),
		}
		if withStatus {
			row = append(row, segmentStatus(s))
		}
		rows = append(rows, row)
	}
	return FormatTable(headers, rows)
}

func segmentStatus(s document.DocumentSegment) string {
	if s.Processed() {
		return "ok"
	}
	if msg, ok := s.Metadata[document.MetaError].(string); ok && msg != "" {
		return "failed: " + truncate(msg, 60)
	}
	return "failed"
}

// writeAnalysis prints top-level keys in sorted order; nested values are
// summarised by size.
func writeAnalysis(w io.Writer, analysis map[string]interface{}) {
	keys := make([]string, 0, len(analysis))
	for k := range analysis {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := analysis[k].(type) {
		case []interface{}:
			fmt.Fprintf(w, "  %s: %d item(s)\n", k, len(v))
		case map[string]interface{}:
			fmt.Fprintf(w, "  %s: %d field(s)\n", k, len(v))
		case nil:
			fmt.Fprintf(w, "  %s: -\n", k)
		default:
			fmt.Fprintf(w, "  %s: %s\n", k, truncate(fmt.Sprint(v), 80))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

//Personal.AI order the ending
