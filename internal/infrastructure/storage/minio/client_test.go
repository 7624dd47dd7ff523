package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	pkgerrors "github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func body(s string) io.ReadCloser { return io.NopCloser(bytes.NewBufferString(s)) }

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

// newMockClient returns a Client whose buckets already exist.
func newMockClient(t *testing.T) (*Client, *MockObjectAPI) {
	t.Helper()
	api := new(MockObjectAPI)
	api.On("BucketExists", mock.Anything, mock.Anything).Return(true, nil)
	api.On("SetBucketLifecycle", mock.Anything, config.DefaultMinIOResultBucket, mock.Anything).Return(nil)
	c, err := NewClientWithAPI(context.Background(), api, config.MinIOConfig{}, nil)
	require.NoError(t, err)
	return c, api
}

type ClientTestSuite struct {
	suite.Suite
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := config.MinIOConfig{}
	applyDefaults(&cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal(config.DefaultMinIOEndpoint, cfg.Endpoint)
	s.Equal(config.DefaultMinIODocumentBucket, cfg.DocumentBucket)
	s.Equal(config.DefaultMinIOResultBucket, cfg.ResultBucket)
}

func (s *ClientTestSuite) TestEnsureBuckets_CreatesMissing() {
	api := new(MockObjectAPI)
	api.On("BucketExists", mock.Anything, "docs").Return(true, nil)
	api.On("BucketExists", mock.Anything, "results").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "results", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)
	api.On("SetBucketLifecycle", mock.Anything, "results", mock.Anything).Return(errors.New("not supported"))

	c, err := NewClientWithAPI(context.Background(), api, config.MinIOConfig{
		Region: "eu-west-1", DocumentBucket: "docs", ResultBucket: "results",
	}, nil)
	s.Require().NoError(err)
	s.Equal("docs", c.DocumentBucket())
	s.Equal("results", c.ResultBucket())
	api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, "docs", mock.Anything)
	api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBuckets_Error() {
	api := new(MockObjectAPI)
	api.On("BucketExists", mock.Anything, mock.Anything).Return(false, errors.New("denied"))

	_, err := NewClientWithAPI(context.Background(), api, config.MinIOConfig{}, nil)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestHealthCheck() {
	c, api := newMockClient(s.T())
	api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil).Once()
	s.NoError(c.HealthCheck(context.Background()))

	api.On("ListBuckets", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
	err := c.HealthCheck(context.Background())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestClosed() {
	c, _ := newMockClient(s.T())
	s.NoError(c.Close())

	_, err := c.API()
	s.Equal(ErrClientClosed, err)
	s.Equal(ErrClientClosed, c.HealthCheck(context.Background()))
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "job-1/oa.pdf", DocumentKey("job-1", "oa.pdf"))
	assert.Equal(t, "job-1/oa.pdf", DocumentKey("job-1", "../../etc/oa.pdf"))
	assert.Equal(t, "job-1/oa.docx", DocumentKey("job-1", `C:\Users\me\oa.docx`))
	assert.Equal(t, "job-1/document", DocumentKey("job-1", ""))
	assert.Equal(t, "job-1/result.json", ResultKey("job-1"))
}

//Personal.AI order the ending
