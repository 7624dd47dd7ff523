package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

const defaultJobTTL = 7 * 24 * time.Hour

// JobRepository stores jobs as JSON under <prefix>job:<id> and indexes them
// by creation time in the <prefix>jobs sorted set.
type JobRepository struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

var _ job.Repository = (*JobRepository)(nil)

// NewJobRepository returns a repository whose records expire after ttl.
func NewJobRepository(client *Client, ttl time.Duration, log logging.Logger) *JobRepository {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobRepository{client: client, ttl: ttl, logger: log}
}

func (r *JobRepository) jobKey(id string) string { return r.client.Key("job", id) }
func (r *JobRepository) indexKey() string        { return r.client.Key("jobs") }

// Save writes j and refreshes its TTL.
func (r *JobRepository) Save(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job")
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.jobKey(j.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(j.CreatedAt.UnixMilli()), Member: j.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to save job").WithDetail(j.ID)
	}
	return nil
}

// Get loads one job.
func (r *JobRepository) Get(ctx context.Context, id string) (*job.Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to load job").WithDetail(id)
	}
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode job").WithDetail(id)
	}
	return &j, nil
}

// ListRecent returns up to limit jobs, newest first.  Index entries whose
// record has expired are skipped.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to list jobs")
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		j, err := r.Get(ctx, id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

//Personal.AI order the ending
