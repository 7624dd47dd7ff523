package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

var ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")

const resultObjectName = "result.json"

// DocumentStore keeps uploaded source documents and finished pipeline
// results.  Documents live under <jobID>/<filename> in the document bucket,
// results under <jobID>/result.json in the result bucket.
type DocumentStore interface {
	PutDocument(ctx context.Context, jobID, filename string, data []byte) (string, error)
	GetDocument(ctx context.Context, key string) ([]byte, error)
	PutResult(ctx context.Context, jobID string, result *document.ProcessedDocumentResult) (string, error)
	GetResult(ctx context.Context, jobID string) (*document.ProcessedDocumentResult, error)
	DeleteJob(ctx context.Context, jobID, documentKey string) error
}

type documentStore struct {
	client *Client
	logger logging.Logger
}

// NewDocumentStore returns a DocumentStore over c.
func NewDocumentStore(c *Client, log logging.Logger) DocumentStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &documentStore{client: c, logger: log}
}

// DocumentKey is the object key for an uploaded file.  Directory components
// in filename are discarded.
func DocumentKey(jobID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return jobID + "/" + name
}

func ResultKey(jobID string) string {
	return jobID + "/" + resultObjectName
}

func (s *documentStore) PutDocument(ctx context.Context, jobID, filename string, data []byte) (string, error) {
	if jobID == "" || len(data) == 0 {
		return "", ErrInvalidRequest
	}
	key := DocumentKey(jobID, filename)
	contentType := http.DetectContentType(data[:min(512, len(data))])
	if err := s.put(ctx, s.client.DocumentBucket(), key, data, contentType, map[string]string{"filename": filename}); err != nil {
		return "", err
	}
	s.logger.Debug("Stored document", logging.String("key", key), logging.Int("bytes", len(data)))
	return key, nil
}

func (s *documentStore) GetDocument(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.client.DocumentBucket(), key)
}

func (s *documentStore) PutResult(ctx context.Context, jobID string, result *document.ProcessedDocumentResult) (string, error) {
	if jobID == "" || result == nil {
		return "", ErrInvalidRequest
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode result")
	}
	key := ResultKey(jobID)
	if err := s.put(ctx, s.client.ResultBucket(), key, data, "application/json", nil); err != nil {
		return "", err
	}
	return key, nil
}

func (s *documentStore) GetResult(ctx context.Context, jobID string) (*document.ProcessedDocumentResult, error) {
	data, err := s.get(ctx, s.client.ResultBucket(), ResultKey(jobID))
	if err != nil {
		return nil, err
	}
	var out document.ProcessedDocumentResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode result").WithDetail(jobID)
	}
	return &out, nil
}

// DeleteJob removes both objects of a job.  Missing objects are ignored.
func (s *documentStore) DeleteJob(ctx context.Context, jobID, documentKey string) error {
	api, err := s.client.API()
	if err != nil {
		return err
	}
	targets := [][2]string{{s.client.ResultBucket(), ResultKey(jobID)}}
	if documentKey != "" {
		targets = append(targets, [2]string{s.client.DocumentBucket(), documentKey})
	}
	for _, t := range targets {
		if err := api.RemoveObject(ctx, t[0], t[1], minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete object").WithDetail(t[1])
		}
	}
	return nil
}

func (s *documentStore) put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) error {
	api, err := s.client.API()
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: contentType, UserMetadata: meta}
	if _, err := api.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(bucket + "/" + key)
	}
	return nil
}

func (s *documentStore) get(ctx context.Context, bucket, key string) ([]byte, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	obj, err := api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "object not found").WithDetail(bucket + "/" + key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(bucket + "/" + key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(bucket + "/" + key)
	}
	return data, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

//Personal.AI order the ending
