package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultLLMProvider, cfg.LLM.Provider)
	assert.Equal(t, DefaultMaxTokensPerSegment, cfg.Segmentation.MaxTokensPerSegment)
	assert.Equal(t, DefaultStructureSampleChars, cfg.Segmentation.StructureSampleChars)
	assert.Equal(t, DefaultContextSegments, cfg.Segmentation.ContextSegments)
	assert.Equal(t, DefaultContextPreviewChars, cfg.Segmentation.ContextPreviewChars)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaJobTopic, cfg.Kafka.JobTopic)
	assert.Equal(t, DefaultMinIOResultBucket, cfg.MinIO.ResultBucket)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Segmentation.MaxTokensPerSegment = 4000
	cfg.LLM.Model = "gpt-4o"
	ApplyDefaults(cfg)

	assert.Equal(t, 4000, cfg.Segmentation.MaxTokensPerSegment)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
