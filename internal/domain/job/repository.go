package job

import "context"

// Repository persists job state.  Get reports an unknown ID with the
// JOB_001 not-found code.
type Repository interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	ListRecent(ctx context.Context, limit int) ([]*Job, error)
}

//Personal.AI order the ending
