package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/client"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

type submitFlags struct {
	analysisType string
	maxTokens    int
	noContext    bool
	wait         bool
	interval     time.Duration
}

type statusFlags struct {
	wait     bool
	interval time.Duration
}

func newSubmitCmd() *cobra.Command {
	f := &submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Queue a document for asynchronous analysis",
		Long: "Upload FILE to the API server as an asynchronous job and print the job id.\n" +
			"Requires a server with job processing enabled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.analysisType, "type", "t", string(document.AnalysisOfficeAction), "analysis type (office_action, prior_art, patent, general)")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "token budget per segment (0 uses the server default)")
	fl.BoolVar(&f.noContext, "no-context", false, "do not pass earlier results to later segments")
	fl.BoolVarP(&f.wait, "wait", "w", false, "wait for the job to finish and print its result")
	fl.DurationVar(&f.interval, "interval", 2*time.Second, "polling interval for --wait")
	return cmd
}

func newStatusCmd() *cobra.Command {
	f := &statusFlags{}
	cmd := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show an asynchronous job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVarP(&f.wait, "wait", "w", false, "poll until the job completes or fails")
	cmd.Flags().DurationVar(&f.interval, "interval", 2*time.Second, "polling interval for --wait")
	return cmd
}

func runSubmit(cmd *cobra.Command, path string, f *submitFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	analysisType := document.AnalysisType(strings.ToLower(f.analysisType))
	if !analysisType.IsValid() {
		return errors.InvalidParam(fmt.Sprintf("unknown analysis type %q", f.analysisType))
	}
	opts := document.Options{MaxTokensPerSegment: f.maxTokens}
	if f.noContext {
		opts.PreserveContext = document.BoolPtr(false)
	}
	if err := opts.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}

	c, err := cliCtx.Client()
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	var resp *client.SubmitJobResponse
	if path == "-" {
		resp, err = c.Documents().SubmitFile(ctx, stdinName, cmd.InOrStdin(), analysisType, opts)
	} else {
		fh, openErr := os.Open(path)
		if openErr != nil {
			return errors.InvalidParam(fmt.Sprintf("cannot open %s", path)).WithDetail(openErr.Error())
		}
		defer fh.Close()
		resp, err = c.Documents().SubmitFile(ctx, filepath.Base(path), fh, analysisType, opts)
	}
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("job submitted", logging.String("job_id", resp.JobID))

	if !f.wait {
		return PrintResult(cmd, submitView{resp})
	}
	job, err := c.Documents().WaitJob(ctx, resp.JobID, f.interval)
	if err != nil {
		return err
	}
	return PrintResult(cmd, jobView{job})
}

func runStatus(cmd *cobra.Command, id string, f *statusFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	c, err := cliCtx.Client()
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	var job *client.Job
	if f.wait {
		job, err = c.Documents().WaitJob(ctx, id, f.interval)
	} else {
		job, err = c.Documents().GetJob(ctx, id)
	}
	if err != nil {
		return err
	}
	return PrintResult(cmd, jobView{job})
}

type submitView struct {
	*client.SubmitJobResponse
}

func (v submitView) Text() string {
	return fmt.Sprintf("Job %s %s at %s\n", v.JobID, v.Status, v.CreatedAt.Format(time.RFC3339))
}

type jobView struct {
	*client.Job
}

func (v jobView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Job:      %s\n", v.ID)
	fmt.Fprintf(&sb, "Status:   %s\n", v.Status)
	fmt.Fprintf(&sb, "Type:     %s\n", v.AnalysisType)
	if v.Filename != "" {
		fmt.Fprintf(&sb, "File:     %s\n", v.Filename)
	}
	fmt.Fprintf(&sb, "Attempts: %d\n", v.Attempts)
	fmt.Fprintf(&sb, "Created:  %s\n", v.CreatedAt.Format(time.RFC3339))
	if v.CompletedAt != nil {
		fmt.Fprintf(&sb, "Finished: %s\n", v.CompletedAt.Format(time.RFC3339))
	}
	if v.Error != "" {
		fmt.Fprintf(&sb, "Error:    %s\n", v.Error)
	}
	if v.Result != nil {
		sb.WriteString("\n")
		sb.WriteString(processedView{v.Result}.Text())
	} else if v.Summary != nil {
		writeSummary(&sb, *v.Summary)
	}
	return sb.String()
}

//Personal.AI order the ending
