// Phase: 应用层 - 长文档处理
// SubModule: longdoc
// File: internal/application/longdoc/service.go
//
// Generation Plan:
// - 功能定位: 超长审查意见/专利文档的分段、逐段分析与结果合并
// - 核心实现:
//   - Service 接口: SegmentDocument / ProcessLongDocument
//   - 流水线: 元数据提取 → 结构分析 → 分段构建 → 逐段处理(携带上下文) → 合并
//   - 各阶段失败降级为部分结果, 仅参数校验错误返回给调用方
// - 依赖: internal/intelligence/llm, pkg/types/document, pkg/errors
// - 被依赖: HTTP handler, CLI, analysisjob runner

package longdoc

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// Service is the long-document pipeline.
type Service interface {
	// SegmentDocument splits text without analysing the segments.
	SegmentDocument(ctx context.Context, text string, opts document.Options) (*document.SegmentationResult, error)
	// ProcessLongDocument segments, analyses and merges text.
	ProcessLongDocument(ctx context.Context, text string, analysisType document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error)
}

// PipelineRecorder receives pipeline-level measurements.
type PipelineRecorder interface {
	ObserveSegment(segmentType, status string)
	ObserveDegradation(stage string)
	ObservePipeline(analysisType string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSegment(string, string)          {}
func (nopRecorder) ObserveDegradation(string)              {}
func (nopRecorder) ObservePipeline(string, time.Duration) {}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Settings holds the defaults applied when a request leaves options unset.
type Settings struct {
	MaxTokensPerSegment  int
	PreserveContext      bool
	MergingStrategy      document.MergingStrategy
	StructureSampleChars int
	ContextSegments      int
	ContextPreviewChars  int
}

// DefaultSettings mirrors the documented pipeline defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxTokensPerSegment:  document.DefaultMaxTokensPerSegment,
		PreserveContext:      true,
		MergingStrategy:      document.MergeIntelligent,
		StructureSampleChars: defaultStructureSampleChars,
		ContextSegments:      defaultContextSegments,
		ContextPreviewChars:  defaultContextPreviewChars,
	}
}

// SettingsFromConfig maps the segmentation config section.
func SettingsFromConfig(c config.SegmentationConfig) Settings {
	s := DefaultSettings()
	if c.MaxTokensPerSegment > 0 {
		s.MaxTokensPerSegment = c.MaxTokensPerSegment
	}
	s.PreserveContext = c.PreserveContext
	if m := document.MergingStrategy(c.MergingStrategy); m.IsValid() {
		s.MergingStrategy = m
	}
	if c.StructureSampleChars > 0 {
		s.StructureSampleChars = c.StructureSampleChars
	}
	if c.ContextSegments > 0 {
		s.ContextSegments = c.ContextSegments
	}
	if c.ContextPreviewChars > 0 {
		s.ContextPreviewChars = c.ContextPreviewChars
	}
	return s
}

// Option configures the service.
type Option func(*service)

// WithEstimator replaces the token estimator.
func WithEstimator(est TokenEstimator) Option {
	return func(s *service) { s.estimator = est }
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(s *service) { s.logger = log }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r PipelineRecorder) Option {
	return func(s *service) { s.recorder = r }
}

// WithPromptRenderer replaces the built-in prompt templates.
func WithPromptRenderer(p llm.PromptRenderer) Option {
	return func(s *service) { s.prompts = p }
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	settings  Settings
	estimator TokenEstimator
	prompts   llm.PromptRenderer
	logger    logging.Logger
	recorder  PipelineRecorder

	analyzer  *StructureAnalyzer
	builder   *SegmentBuilder
	processor *SegmentProcessor
	merger    *MergeEngine
}

// NewService wires the pipeline stages around completer.  The returned
// service holds no per-request state.
func NewService(completer llm.Completer, settings Settings, opts ...Option) (Service, error) {
	if completer == nil {
		return nil, errors.New(errors.ErrCodeLLMNotConfigured, "completer is required")
	}
	s := &service{
		settings:  settings,
		estimator: HeuristicEstimator{},
		logger:    logging.NewNopLogger(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prompts == nil {
		p, err := llm.NewPromptRenderer()
		if err != nil {
			return nil, err
		}
		s.prompts = p
	}
	def := DefaultSettings()
	if s.settings.MaxTokensPerSegment <= 0 {
		s.settings.MaxTokensPerSegment = def.MaxTokensPerSegment
	}
	if s.settings.MergingStrategy == "" {
		s.settings.MergingStrategy = def.MergingStrategy
	}
	if s.settings.ContextSegments <= 0 {
		s.settings.ContextSegments = def.ContextSegments
	}
	if s.settings.ContextPreviewChars <= 0 {
		s.settings.ContextPreviewChars = def.ContextPreviewChars
	}
	s.logger = s.logger.Named("longdoc")

	s.analyzer = NewStructureAnalyzer(completer, s.prompts, s.settings.StructureSampleChars, s.logger)
	s.builder = NewSegmentBuilder(s.estimator)
	s.processor = NewSegmentProcessor(completer, s.prompts, s.logger)
	s.merger = NewMergeEngine(completer, s.prompts, s.logger)
	return s, nil
}

// resolved is Options with every default applied.
type resolved struct {
	budget          int
	preserveContext bool
	strategy        document.MergingStrategy
	analysisType    document.AnalysisType
}

func (s *service) resolve(text string, opts document.Options) (resolved, error) {
	if strings.TrimSpace(text) == "" {
		return resolved{}, errors.New(errors.ErrCodeDocumentEmpty, "document text is empty")
	}
	if err := opts.Validate(); err != nil {
		return resolved{}, errors.Wrap(err, errors.ErrCodeInvalidOptions, "invalid options")
	}
	r := resolved{
		budget:          s.settings.MaxTokensPerSegment,
		preserveContext: s.settings.PreserveContext,
		strategy:        s.settings.MergingStrategy,
		analysisType:    opts.TargetAnalysisType,
	}
	if opts.MaxTokensPerSegment > 0 {
		r.budget = opts.MaxTokensPerSegment
	}
	if opts.PreserveContext != nil {
		r.preserveContext = *opts.PreserveContext
	}
	if opts.MergingStrategy != "" {
		r.strategy = opts.MergingStrategy
	}
	if r.analysisType == "" {
		r.analysisType = document.AnalysisGeneral
	}
	return r, nil
}

// segmentation is the internal output of the segmenting stage.
type segmentation struct {
	result   *document.SegmentationResult
	degraded []string
	usage    llm.Usage
}

func (s *service) segment(ctx context.Context, text string, opts document.Options, r resolved) segmentation {
	meta := ExtractMetadata(text)
	total := s.estimator.Estimate(text)

	var (
		sections []Section
		out      segmentation
	)
	if total > r.budget {
		res := s.analyzer.AnalyzeStructure(ctx, text, opts)
		out.usage = res.Usage
		if !res.OK() {
			s.degrade(res.Degraded, logging.String("fallback", "fixed_size_chunks"))
			out.degraded = append(out.degraded, res.Degraded.Error())
		}
		sections = res.Value
	}

	segments := s.builder.BuildSegments(text, r.budget, sections)
	s.logger.Debug("document segmented",
		logging.Int("segments", len(segments)),
		logging.Int("total_tokens", total),
		logging.Int("budget", r.budget),
	)

	out.result = &document.SegmentationResult{
		Segments:         segments,
		TotalTokens:      total,
		DocumentMetadata: meta,
	}
	return out
}

// SegmentDocument implements Service.
func (s *service) SegmentDocument(ctx context.Context, text string, opts document.Options) (*document.SegmentationResult, error) {
	r, err := s.resolve(text, opts)
	if err != nil {
		return nil, err
	}
	return s.segment(ctx, text, opts, r).result, nil
}

// ProcessLongDocument implements Service.
func (s *service) ProcessLongDocument(ctx context.Context, text string, analysisType document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error) {
	start := time.Now()
	if analysisType != "" {
		opts.TargetAnalysisType = analysisType
	}
	r, err := s.resolve(text, opts)
	if err != nil {
		return nil, err
	}

	seg := s.segment(ctx, text, opts, r)
	segments := seg.result.Segments
	summary := document.ProcessingSummary{
		TotalSegments: len(segments),
		Degraded:      seg.degraded,
		InputTokens:   seg.usage.PromptTokens,
		OutputTokens:  seg.usage.CompletionTokens,
	}

	analyses := make([]SegmentAnalysis, 0, len(segments))
	for i := range segments {
		contextText := ""
		if r.preserveContext {
			contextText = BuildContext(segments[:i], s.settings.ContextSegments, s.settings.ContextPreviewChars)
		}

		res := s.processor.ProcessSegment(ctx, segments[i], r.analysisType, contextText, i, len(segments))
		summary.InputTokens += res.Usage.PromptTokens
		summary.OutputTokens += res.Usage.CompletionTokens

		md := segments[i].Metadata
		if !res.OK() {
			md[document.MetaProcessed] = false
			md[document.MetaError] = res.Degraded.Error()
			summary.FailedSegments++
			s.degrade(res.Degraded, logging.Int("segment", i), logging.String("segment_id", segments[i].ID))
			s.recorder.ObserveSegment(string(segments[i].Type), "failed")
			continue
		}
		md[document.MetaProcessed] = true
		md[document.MetaInputTokens] = res.Usage.PromptTokens
		md[document.MetaOutputTokens] = res.Usage.CompletionTokens
		summary.ProcessedSegments++
		s.recorder.ObserveSegment(string(segments[i].Type), "processed")
		analyses = append(analyses, res.Value)
	}

	merged := s.merger.Merge(ctx, analyses, seg.result.DocumentMetadata, r.analysisType)
	summary.InputTokens += merged.Usage.PromptTokens
	summary.OutputTokens += merged.Usage.CompletionTokens
	if !merged.OK() {
		s.degrade(merged.Degraded, logging.Int("analyses", len(analyses)))
		summary.Degraded = append(summary.Degraded, merged.Degraded.Error())
	}

	elapsed := time.Since(start)
	summary.TotalTokens = summary.InputTokens + summary.OutputTokens
	summary.ProcessingTimeMs = elapsed.Milliseconds()
	s.recorder.ObservePipeline(string(r.analysisType), elapsed)

	s.logger.Info("long document processed",
		logging.String("analysis_type", string(r.analysisType)),
		logging.String("merging_strategy", string(r.strategy)),
		logging.Int("segments", summary.TotalSegments),
		logging.Int("failed", summary.FailedSegments),
		logging.Int("total_tokens", summary.TotalTokens),
		logging.Duration("elapsed", elapsed),
	)

	return &document.ProcessedDocumentResult{
		Segments:         segments,
		Analysis:         merged.Value,
		DocumentMetadata: seg.result.DocumentMetadata,
		Summary:          summary,
	}, nil
}

func (s *service) degrade(d *Degraded, fields ...logging.Field) {
	s.recorder.ObserveDegradation(string(d.Stage))
	base := []logging.Field{
		logging.String("stage", string(d.Stage)),
		logging.String("reason", d.Reason),
	}
	if d.Err != nil {
		base = append(base, logging.Err(d.Err))
	}
	s.logger.Warn("pipeline stage degraded", append(base, fields...)...)
}

//Personal.AI order the ending
