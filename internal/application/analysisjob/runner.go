package analysisjob

import (
	"bytes"
	"context"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/longdoc"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/extract"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const (
	WorkerSource       = "longdoc-worker"
	defaultMaxAttempts = 3
	unlockTimeout      = 5 * time.Second
)

// RunnerConfig tunes job execution.  MaxAttempts bounds how often a job is
// retried on transient failures before it is marked failed; it should not
// exceed the consumer's retry count plus one.
type RunnerConfig struct {
	ResultTopic string
	Source      string
	JobTimeout  time.Duration
	LockTTL     time.Duration
	MaxAttempts int
}

// RunnerConfigFrom maps the worker and kafka config sections.
func RunnerConfigFrom(w config.WorkerConfig, k config.KafkaConfig) RunnerConfig {
	return RunnerConfig{
		ResultTopic: k.ResultTopic,
		JobTimeout:  w.JobTimeout,
		LockTTL:     w.LockTTL,
		MaxAttempts: k.MaxRetries + 1,
	}
}

// RunnerDeps groups the collaborators of a Runner.  Publisher and Recorder
// are optional.
type RunnerDeps struct {
	Repo      job.Repository
	Store     DocumentStore
	Locks     redis.LockFactory
	Processor longdoc.Service
	Publisher kafka.Publisher
	Recorder  JobRecorder
}

// Runner executes submitted jobs.  Handle is registered as the Kafka consumer
// handler of the job topic.
type Runner struct {
	deps   RunnerDeps
	cfg    RunnerConfig
	logger logging.Logger
}

// NewRunner validates deps and fills config defaults.
func NewRunner(deps RunnerDeps, cfg RunnerConfig, log logging.Logger) (*Runner, error) {
	if deps.Repo == nil || deps.Store == nil || deps.Locks == nil || deps.Processor == nil {
		return nil, errors.New(errors.ErrCodeInternal, "analysisjob: repository, store, locks and processor are required")
	}
	if deps.Recorder == nil {
		deps.Recorder = nopJobRecorder{}
	}
	if cfg.Source == "" {
		cfg.Source = WorkerSource
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = config.DefaultWorkerJobTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = config.DefaultWorkerLockTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Runner{deps: deps, cfg: cfg, logger: log.Named("analysisjob")}, nil
}

// Handle processes one longdoc.job.submitted event.
//
// Returning an error makes the consumer retry the message and finally
// dead-letter it.  Errors that retrying cannot fix mark the job failed and
// return nil instead.  When ctx ends mid-run the job is left running and
// ctx.Err() is returned so the offset stays uncommitted.
func (r *Runner) Handle(ctx context.Context, msg *common.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != job.EventSubmitted {
		r.logger.Debug("ignoring event", logging.String("event_type", env.EventType))
		return nil
	}
	var p job.SubmittedPayload
	if err := env.DecodePayload(&p); err != nil {
		return err
	}
	if p.JobID == "" {
		return errors.InvalidParam("job event without job_id")
	}
	log := r.logger.With(logging.String("job_id", p.JobID))

	lock := r.deps.Locks.NewMutex("job:"+p.JobID, redis.WithLockTTL(r.cfg.LockTTL), redis.WithWatchdog(true))
	ok, err := lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("job is being processed by another worker")
		return nil
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if err := lock.Unlock(uctx); err != nil {
			log.Warn("failed to release job lock", logging.Err(err))
		}
	}()

	j, err := r.deps.Repo.Get(ctx, p.JobID)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("job record not found, dropping event")
			return nil
		}
		return err
	}
	if j.Status.IsTerminal() {
		log.Info("job already finished", logging.String("status", string(j.Status)))
		return nil
	}
	if err := j.Start(); err != nil {
		return err
	}
	if err := r.deps.Repo.Save(ctx, j); err != nil {
		return err
	}
	log.Info("job started", logging.Int("attempt", j.Attempts), logging.String("analysis_type", string(j.AnalysisType)))

	started := time.Now()
	resultKey, summary, err := r.run(ctx, j)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("job interrupted", logging.Err(err))
			return ctx.Err()
		}
		if isTransient(err) && j.Attempts < r.cfg.MaxAttempts {
			log.Warn("job attempt failed", logging.Int("attempt", j.Attempts), logging.Err(err))
			return err
		}
		log.Error("job failed", logging.Int("attempt", j.Attempts), logging.Err(err))
		if ferr := j.Fail(err.Error()); ferr != nil {
			return ferr
		}
		return r.finish(ctx, j, started, log)
	}

	if err := j.Complete(resultKey, summary); err != nil {
		return err
	}
	log.Info("job completed",
		logging.Int("segments", summary.TotalSegments),
		logging.Int("failed_segments", summary.FailedSegments),
		logging.Duration("elapsed", time.Since(started)))
	return r.finish(ctx, j, started, log)
}

// run extracts, processes and stores one document.  The pipeline is bounded
// by the job timeout; storage calls use ctx so that a timed-out pipeline
// still gets its partial result persisted.
func (r *Runner) run(ctx context.Context, j *job.Job) (string, document.ProcessingSummary, error) {
	var none document.ProcessingSummary

	data, err := r.deps.Store.GetDocument(ctx, j.ObjectKey)
	if err != nil {
		return "", none, err
	}
	doc, err := extract.Extract(bytes.NewReader(data), j.Filename)
	if err != nil {
		return "", none, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	result, err := r.deps.Processor.ProcessLongDocument(runCtx, doc.Text, j.AnalysisType, j.Options)
	cancel()
	if err != nil {
		return "", none, err
	}
	if result.DocumentMetadata.PageCount == 0 {
		result.DocumentMetadata.PageCount = doc.PageCount
	}

	key, err := r.deps.Store.PutResult(ctx, j.ID, result)
	if err != nil {
		return "", none, err
	}
	return key, result.Summary, nil
}

func (r *Runner) finish(ctx context.Context, j *job.Job, started time.Time, log logging.Logger) error {
	if err := r.deps.Repo.Save(ctx, j); err != nil {
		return err
	}
	r.deps.Recorder.ObserveJob(string(j.Status), time.Since(started))

	if r.deps.Publisher == nil || r.cfg.ResultTopic == "" {
		return nil
	}
	env, err := kafka.NewEventEnvelope(job.EventCompleted, r.cfg.Source, job.NewCompletedPayload(j))
	if err != nil {
		log.Error("failed to build completion event", logging.Err(err))
		return nil
	}
	msg, err := env.ToMessage(r.cfg.ResultTopic, j.ID)
	if err == nil {
		err = r.deps.Publisher.Publish(ctx, msg)
	}
	if err != nil {
		log.Error("failed to publish completion event", logging.Err(err))
	}
	return nil
}

// isTransient reports whether another attempt could succeed.
func isTransient(err error) bool {
	switch {
	case errors.IsValidation(err),
		errors.IsNotFound(err),
		errors.IsCode(err, errors.ErrCodeUnsupportedFormat),
		errors.IsCode(err, errors.ErrCodeExtractionFailed):
		return false
	}
	return true
}

//Personal.AI order the ending
