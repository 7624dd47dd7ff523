package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
)

type mockKafkaConn struct {
	created  []kafka.TopicConfig
	existing map[string]bool
	createFn func(topics ...kafka.TopicConfig) error
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFn != nil {
		if err := m.createFn(topics...); err != nil {
			return err
		}
	}
	m.created = append(m.created, topics...)
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if len(topics) == 1 && m.existing[topics[0]] {
		return []kafka.Partition{{Topic: topics[0]}}, nil
	}
	return nil, errors.New("unknown topic")
}

func (m *mockKafkaConn) Close() error { return nil }

type samplePayload struct {
	JobID string `json:"job_id"`
	Pages int    `json:"pages"`
}

func TestEventEnvelope_RoundTripThroughMessage(t *testing.T) {
	env, err := NewEventEnvelope("longdoc.job.submitted", "apiserver", samplePayload{JobID: "j1", Pages: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)

	pm, err := env.ToMessage("longdoc.job.submitted", "j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", string(pm.Key))
	assert.Equal(t, "longdoc.job.submitted", pm.Headers[HeaderEventType])
	assert.Equal(t, "apiserver", pm.Headers[HeaderSourceService])

	decoded, err := MessageToEventEnvelope(&common.Message{Value: pm.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var p samplePayload
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, samplePayload{JobID: "j1", Pages: 3}, p)
}

func TestMessageToEventEnvelope_Errors(t *testing.T) {
	_, err := MessageToEventEnvelope(&common.Message{})
	assert.Error(t, err)
	_, err = MessageToEventEnvelope(&common.Message{Value: []byte("not json")})
	assert.Error(t, err)

	env := &EventEnvelope{}
	assert.Error(t, env.DecodePayload(&samplePayload{}))
}

func TestJobTopics(t *testing.T) {
	topics := JobTopics(config.KafkaConfig{JobTopic: "jobs", ResultTopic: "results", DLQTopic: "dlq"})
	require.Len(t, topics, 3)
	assert.Equal(t, "jobs", topics[0].Name)
	assert.Equal(t, "dlq", topics[2].Name)

	assert.Len(t, JobTopics(config.KafkaConfig{JobTopic: "jobs"}), 1)
}

func TestTopicManager_EnsureTopicsSkipsExisting(t *testing.T) {
	conn := &mockKafkaConn{existing: map[string]bool{"jobs": true}}
	m := NewTopicManagerWithConn(conn, nil)

	err := m.EnsureTopics(context.Background(), JobTopics(config.KafkaConfig{JobTopic: "jobs", ResultTopic: "results"}))
	require.NoError(t, err)
	require.Len(t, conn.created, 1)
	assert.Equal(t, "results", conn.created[0].Topic)
	require.Len(t, conn.created[0].ConfigEntries, 1)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
}

func TestTopicManager_CreateTopicErrors(t *testing.T) {
	conn := &mockKafkaConn{createFn: func(...kafka.TopicConfig) error { return kafka.TopicAlreadyExists }}
	m := NewTopicManagerWithConn(conn, nil)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))

	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{NumPartitions: 1, ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t"}))

	conn.createFn = func(...kafka.TopicConfig) error { return errors.New("denied") }
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))
}

//Personal.AI order the ending
