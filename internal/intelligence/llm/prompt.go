package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// Template names used by the long-document pipeline.
const (
	TmplStructureSystem = "structure_analysis.system"
	TmplStructureUser   = "structure_analysis.user"
	TmplSegmentSystem   = "segment_analysis.system"
	TmplSegmentUser     = "segment_analysis.user"
	TmplMergeSystem     = "merge_analysis.system"
	TmplMergeUser       = "merge_analysis.user"
)

// PromptRenderer substitutes named variables into registered templates.
type PromptRenderer interface {
	Render(name string, vars map[string]interface{}) (string, error)
	Register(name, body string) error
	Templates() []string
}

type promptRenderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// NewPromptRenderer returns a renderer preloaded with the pipeline templates.
func NewPromptRenderer() (PromptRenderer, error) {
	r := &promptRenderer{
		templates: make(map[string]*template.Template),
		funcMap:   defaultFuncMap(),
	}
	for name, body := range builtinTemplates {
		if err := r.Register(name, body); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustPromptRenderer is NewPromptRenderer for static wiring.
func MustPromptRenderer() PromptRenderer {
	r, err := NewPromptRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// ---------------------------------------------------------------------------
// Render / Register
// ---------------------------------------------------------------------------

func (r *promptRenderer) Render(name string, vars map[string]interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", errors.Newf(errors.ErrCodePromptTemplateNotFound, "template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.Wrap(err, errors.ErrCodePromptRenderFailed, fmt.Sprintf("rendering template %q", name))
	}
	return buf.String(), nil
}

func (r *promptRenderer) Register(name, body string) error {
	if name == "" {
		return errors.InvalidParam("template name is required")
	}
	if body == "" {
		return errors.InvalidParam("template body is required")
	}
	parsed, err := template.New(name).Funcs(r.funcMap).Option("missingkey=zero").Parse(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePromptRenderFailed, fmt.Sprintf("parsing template %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = parsed
	return nil
}

func (r *promptRenderer) Templates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.templates))
	for name := range r.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Template function map
// ---------------------------------------------------------------------------

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":       strings.Join,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"trimSpace":  strings.TrimSpace,
		"replace":    strings.ReplaceAll,
		"runeCount":  utf8.RuneCountInString,
		"truncate":   templateTruncate,
		"default":    templateDefault,
		"formatList": templateFormatList,
		"toJSON":     templateJSON,
	}
}

func templateTruncate(maxLen int, s string) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func templateDefault(defaultVal, actual string) string {
	if actual == "" {
		return defaultVal
	}
	return actual
}

func templateFormatList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, item)
	}
	return b.String()
}

func templateJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// Built-in templates
// ---------------------------------------------------------------------------

var builtinTemplates = map[string]string{
	TmplStructureSystem: `You analyse the layout of patent prosecution documents.
Identify the major sections of the document and report where each one starts and ends.
Allowed section types: header, rejection, prior_art, claims, reasoning, other.
Offsets are character positions in the supplied text, start inclusive and end exclusive.
Respond with a single JSON object of the form:
{"sections": [{"type": "rejection", "start_index": 0, "end_index": 1200, "title": "Claim Rejections - 35 USC 103", "importance": "high"}]}
importance is one of high, medium, low. Do not include any text outside the JSON object.`,

	TmplStructureUser: `Document ({{.TotalLength}} characters):
"""
{{.Text}}
"""
{{- if .Truncated}}

NOTE: only the first {{.SampleLength}} of {{.TotalLength}} characters are shown. The document continues beyond this point; report sections for the visible part and let the final section run to the end of the visible text.
{{- end}}`,

	TmplSegmentSystem: `You are a patent prosecution analyst extracting structured data from one part of a longer document.
{{- if eq .AnalysisType "office_action"}}
Extract: rejections (claim numbers, statutory basis such as 35 USC 102/103/112, cited references, examiner reasoning), objections, allowable subject matter, and deadlines.
{{- else if eq .AnalysisType "prior_art"}}
Extract: cited references (number, title, publication date), the teachings relevant to the claims, and the passages relied on.
{{- else if eq .AnalysisType "patent"}}
Extract: independent and dependent claims, key claim elements, technical field, problem solved, and embodiments.
{{- else}}
Extract: the key facts, entities, dates, and conclusions.
{{- end}}
Only report what appears in this part. Respond with a single JSON object.`,

	TmplSegmentUser: `Analysis type: {{.AnalysisType}}
Part {{.Index}} of {{.Total}} (section type: {{.SegmentType}})
{{- if .Context}}

Preceding context:
{{.Context}}
{{- end}}

Content:
"""
{{.Content}}
"""`,

	TmplMergeSystem: `You consolidate partial analyses of one {{default "general" .AnalysisType}} document into a single analysis.
Merge entries that describe the same item, remove duplicates, keep every distinct finding, and preserve claim numbers and citations exactly.
Respond with a single JSON object using the same field names as the partial analyses.`,

	TmplMergeUser: `Document metadata:
{{toJSON .Metadata}}

{{.Count}} partial analyses, in document order:
{{toJSON .Partials}}`,
}

//Personal.AI order the ending
