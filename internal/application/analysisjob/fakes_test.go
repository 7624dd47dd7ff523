package analysisjob

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// ---------------------------------------------------------------------------
// job repository
// ---------------------------------------------------------------------------

type memRepo struct {
	mu      sync.Mutex
	jobs    map[string]job.Job
	saves   int
	saveErr error
}

func newMemRepo() *memRepo { return &memRepo{jobs: map[string]job.Job{}} }

func (r *memRepo) Save(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.jobs[j.ID] = *j
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job not found")
	}
	return &j, nil
}

func (r *memRepo) ListRecent(_ context.Context, limit int) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*job.Job, 0, len(r.jobs))
	for id := range r.jobs {
		j := r.jobs[id]
		out = append(out, &j)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) get(id string) job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

// ---------------------------------------------------------------------------
// document store
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	results map[string]*document.ProcessedDocumentResult
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, results: map[string]*document.ProcessedDocumentResult{}}
}

func (s *memStore) PutDocument(_ context.Context, jobID, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	key := jobID + "/" + filename
	s.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *memStore) GetDocument(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found").WithDetail(key)
	}
	return data, nil
}

func (s *memStore) PutResult(_ context.Context, jobID string, result *document.ProcessedDocumentResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.results[jobID] = result
	return jobID + "/result.json", nil
}

func (s *memStore) GetResult(_ context.Context, jobID string) (*document.ProcessedDocumentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[jobID]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found")
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// publisher
// ---------------------------------------------------------------------------

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) messages() []*common.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*common.ProducerMessage(nil), p.msgs...)
}

// ---------------------------------------------------------------------------
// locks
// ---------------------------------------------------------------------------

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks { return &memLocks{held: map[string]bool{}} }

func (f *memLocks) NewMutex(name string, _ ...redis.LockOption) redis.DistributedLock {
	return &memLock{f: f, name: name}
}

func (f *memLocks) isHeld(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[name]
}

type memLock struct {
	f    *memLocks
	name string
}

func (l *memLock) Lock(ctx context.Context) error {
	ok, err := l.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return redis.ErrLockNotAcquired
	}
	return nil
}

func (l *memLock) TryLock(context.Context) (bool, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if l.f.held[l.name] {
		return false, nil
	}
	l.f.held[l.name] = true
	return true, nil
}

func (l *memLock) Unlock(context.Context) error {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if !l.f.held[l.name] {
		return redis.ErrLockNotHeld
	}
	delete(l.f.held, l.name)
	return nil
}

func (l *memLock) Extend(context.Context, time.Duration) (bool, error) { return true, nil }
func (l *memLock) TTL(context.Context) (time.Duration, error)           { return time.Minute, nil }

// ---------------------------------------------------------------------------
// processor
// ---------------------------------------------------------------------------

type processFunc func(ctx context.Context, text string, at document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error)

type stubProcessor struct {
	mu    sync.Mutex
	fn    processFunc
	texts []string
}

func (p *stubProcessor) SegmentDocument(context.Context, string, document.Options) (*document.SegmentationResult, error) {
	return &document.SegmentationResult{}, nil
}

func (p *stubProcessor) ProcessLongDocument(ctx context.Context, text string, at document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error) {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.mu.Unlock()
	if p.fn != nil {
		return p.fn(ctx, text, at, opts)
	}
	return &document.ProcessedDocumentResult{
		Analysis: map[string]interface{}{"summary": "ok"},
		Summary:  document.ProcessingSummary{TotalSegments: 2, ProcessedSegments: 2},
	}, nil
}

func (p *stubProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

type recordedJob struct {
	status string
	d      time.Duration
}

type jobRecorder struct {
	mu   sync.Mutex
	seen []recordedJob
}

func (r *jobRecorder) ObserveJob(status string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedJob{status, d})
}

// consumed turns a produced message into what the consumer hands a handler.
func consumed(msg *common.ProducerMessage) *common.Message {
	return &common.Message{Topic: msg.Topic, Key: msg.Key, Value: msg.Value, Headers: msg.Headers}
}

func decodeEnvelope(msg *common.ProducerMessage, payload interface{}) (*kafka.EventEnvelope, error) {
	env, err := kafka.MessageToEventEnvelope(consumed(msg))
	if err != nil {
		return nil, err
	}
	return env, env.DecodePayload(payload)
}

//Personal.AI order the ending
