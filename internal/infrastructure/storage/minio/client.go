package minio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// ObjectAPI is the subset of the MinIO SDK the store depends on.  GetObject
// returns a plain io.ReadCloser so the API can be faked in tests.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := a.Client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces NoSuchKey before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

var ErrClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

// Client owns the MinIO connection and the two buckets the service uses.
type Client struct {
	api    ObjectAPI
	config config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects, verifies reachability, and creates missing buckets.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)

	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := sdk.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio").WithDetail(cfg.Endpoint)
	}

	c, err := NewClientWithAPI(ctx, sdkAPI{sdk}, cfg, log)
	if err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI builds a Client over an existing ObjectAPI and ensures
// the buckets exist.
func NewClientWithAPI(ctx context.Context, api ObjectAPI, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Client{api: api, config: cfg, logger: log}
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	c.setupLifecycleRules(ctx)
	return c, nil
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultMinIOEndpoint
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DocumentBucket == "" {
		cfg.DocumentBucket = config.DefaultMinIODocumentBucket
	}
	if cfg.ResultBucket == "" {
		cfg.ResultBucket = config.DefaultMinIOResultBucket
	}
}

// EnsureBuckets creates the document and result buckets when missing.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range c.buckets() {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").WithDetail(bucket)
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, fmt.Sprintf("failed to create bucket %s", bucket))
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// Results are reproducible from the stored document, so they expire.
const resultExpiryDays = 30

func (c *Client) setupLifecycleRules(ctx context.Context) {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     "results-cleanup",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(resultExpiryDays),
			},
		},
	}
	if err := c.api.SetBucketLifecycle(ctx, c.config.ResultBucket, cfg); err != nil {
		c.logger.Warn("Failed to set lifecycle for result bucket", logging.Err(err))
	}
}

func (c *Client) buckets() []string {
	return []string{c.config.DocumentBucket, c.config.ResultBucket}
}

func (c *Client) DocumentBucket() string { return c.config.DocumentBucket }
func (c *Client) ResultBucket() string   { return c.config.ResultBucket }

// API returns the underlying object API, or an error once closed.
func (c *Client) API() (ObjectAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.api, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HealthCheck satisfies common.HealthChecker: the endpoint must answer and
// both buckets must exist.
func (c *Client) HealthCheck(ctx context.Context) error {
	api, err := c.API()
	if err != nil {
		return err
	}
	if _, err := api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	for _, b := range c.buckets() {
		exists, err := api.BucketExists(ctx, b)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").WithDetail(b)
		}
		if !exists {
			return errors.New(errors.ErrCodeStorageError, fmt.Sprintf("bucket %s missing", b))
		}
	}
	return nil
}

//Personal.AI order the ending
