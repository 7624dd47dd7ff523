package analysisjob

import (
	"context"
	"path"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/extract"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// DefaultSource is the envelope source of events published by this package.
const DefaultSource = "longdoc-apiserver"

// inlineFilename names documents submitted as raw text.
const inlineFilename = "document.txt"

// SubmitterConfig names the topic jobs are dispatched on.
type SubmitterConfig struct {
	JobTopic string
	Source   string
}

// Submitter queues analysis jobs and reports their status.
type Submitter struct {
	repo      job.Repository
	store     DocumentStore
	publisher kafka.Publisher
	cfg       SubmitterConfig
	logger    logging.Logger
}

// NewSubmitter wires a Submitter.
func NewSubmitter(repo job.Repository, store DocumentStore, publisher kafka.Publisher, cfg SubmitterConfig, log logging.Logger) (*Submitter, error) {
	if repo == nil || store == nil || publisher == nil {
		return nil, errors.New(errors.ErrCodeInternal, "analysisjob: repository, store and publisher are required")
	}
	if cfg.JobTopic == "" {
		return nil, errors.InvalidParam("analysisjob: job topic is required")
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Submitter{repo: repo, store: store, publisher: publisher, cfg: cfg, logger: log.Named("analysisjob")}, nil
}

// Submit stores the document, saves a queued job and publishes
// longdoc.job.submitted keyed by the job ID.  When the publish fails the job
// is marked failed so that it never sits in the queue forever.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*job.Job, error) {
	data, filename, err := resolveSource(req)
	if err != nil {
		return nil, err
	}

	j, err := job.NewJob(req.AnalysisType, req.Options, filename)
	if err != nil {
		return nil, err
	}

	if req.ObjectKey != "" {
		j.ObjectKey = req.ObjectKey
	} else {
		key, err := s.store.PutDocument(ctx, j.ID, filename, data)
		if err != nil {
			return nil, err
		}
		j.ObjectKey = key
	}

	if err := s.repo.Save(ctx, j); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, j); err != nil {
		s.logger.Error("failed to dispatch analysis job", logging.String("job_id", j.ID), logging.Err(err))
		if ferr := j.Fail("dispatch failed: " + err.Error()); ferr == nil {
			if serr := s.repo.Save(ctx, j); serr != nil {
				s.logger.Warn("failed to record dispatch failure", logging.String("job_id", j.ID), logging.Err(serr))
			}
		}
		return nil, err
	}

	s.logger.Info("analysis job submitted",
		logging.String("job_id", j.ID),
		logging.String("analysis_type", string(j.AnalysisType)),
		logging.String("object_key", j.ObjectKey))
	return j, nil
}

func (s *Submitter) publish(ctx context.Context, j *job.Job) error {
	env, err := kafka.NewEventEnvelope(job.EventSubmitted, s.cfg.Source, job.NewSubmittedPayload(j))
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(s.cfg.JobTopic, j.ID)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to publish job event")
	}
	return nil
}

// Get returns the job and, once it completed, its stored result.
func (s *Submitter) Get(ctx context.Context, id string) (*JobStatus, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("job id must not be empty")
	}
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &JobStatus{Job: j}
	if j.Status != job.StatusCompleted {
		return st, nil
	}
	res, err := s.store.GetResult(ctx, j.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("completed job has no stored result", logging.String("job_id", j.ID))
			return st, nil
		}
		return nil, err
	}
	st.Result = res
	return st, nil
}

// List returns the most recently created jobs.
func (s *Submitter) List(ctx context.Context, limit int) ([]*job.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRecent(ctx, limit)
}

func resolveSource(req SubmitRequest) ([]byte, string, error) {
	sources := 0
	if req.Text != "" {
		sources++
	}
	if len(req.Content) > 0 {
		sources++
	}
	if req.ObjectKey != "" {
		sources++
	}
	if sources > 1 {
		return nil, "", errors.InvalidParam("exactly one of text, file content or object_key must be given")
	}

	switch {
	case req.ObjectKey != "":
		name := req.Filename
		if name == "" {
			name = path.Base(req.ObjectKey)
		}
		if _, err := extract.ForFile(name); err != nil {
			return nil, "", err
		}
		return nil, name, nil
	case len(req.Content) > 0:
		if req.Filename == "" {
			return nil, "", errors.InvalidParam("filename is required for uploaded content")
		}
		if _, err := extract.ForFile(req.Filename); err != nil {
			return nil, "", err
		}
		return req.Content, req.Filename, nil
	case strings.TrimSpace(req.Text) != "":
		return []byte(req.Text), inlineFilename, nil
	default:
		return nil, "", errors.New(errors.ErrCodeDocumentEmpty, "document text must not be empty")
	}
}

//Personal.AI order the ending
