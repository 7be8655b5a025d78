package ingestion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/store"
	"github.com/coverhub/coverhub/testutils"
)

func testBody(t *testing.T) []byte {
	body, err := json.Marshal(core.Envelope{
		Repo:   "https://github.com/example/app",
		RepoID: "7f1d",
		Branch: "main",
		Commit: "abc123",
		CI:     core.CIMetadata{Provider: "gitlab", PipelineID: "42", JobID: "7"},
		Coverage: core.CoverageData{
			Format: core.FormatGoc,
			Raw:    "mode: count\na.go:10.1,12.5 3 2\na.go:20.1,20.9 1 0\n",
		},
		Timestamp: 1700000000,
	})
	require.NoError(t, err)
	return body
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.MemoryStore) {
	m := store.NewMemoryStore()
	require.NoError(t, m.SaveConfig(context.Background(), &core.RepoConfig{
		RepoID:  "7f1d",
		RepoURL: "https://github.com/example/app",
	}))
	logger, err := testutils.GetLogger()
	require.NoError(t, err)
	return NewPipeline(m, logger), m
}

func TestProcessStoresSnapshot(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	assert.Equal(t, VerdictAck, p.Process(ctx, testBody(t), 0))

	report, err := m.FindReport(ctx, "7f1d", "main")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, report.Status)
	assert.Equal(t, "abc123", report.Commit)

	files, err := m.ListFiles(ctx, "7f1d", "main")
	require.NoError(t, err)
	require.Len(t, files, 1)

	ranges, err := m.RangesForFile(ctx, files[0].ID)
	require.NoError(t, err)
	assert.Len(t, ranges, 2)
}

func TestProcessIdempotentRedelivery(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()
	body := testBody(t)

	assert.Equal(t, VerdictAck, p.Process(ctx, body, 0))
	assert.Equal(t, VerdictAck, p.Process(ctx, body, 1))

	files, err := m.ListFiles(ctx, "7f1d", "main")
	require.NoError(t, err)
	require.Len(t, files, 1)
	ranges, err := m.RangesForFile(ctx, files[0].ID)
	require.NoError(t, err)
	assert.Len(t, ranges, 2)
}

func TestProcessPoisonMessages(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("not json at all")},
		{"missing fields", []byte(`{"repo":"x"}`)},
		{"bad format", mustMarshal(t, core.Envelope{
			Repo: "r", RepoID: "7f1d", Branch: "main", Commit: "c",
			Coverage: core.CoverageData{Format: core.FormatGoc, Raw: "no mode header\n"},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, VerdictReject, p.Process(ctx, tt.body, 0))
		})
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return body
}

func TestProcessUnknownRepoSkipped(t *testing.T) {
	m := store.NewMemoryStore()
	logger, err := testutils.GetLogger()
	require.NoError(t, err)
	p := NewPipeline(m, logger)

	// acked without storing anything
	assert.Equal(t, VerdictAck, p.Process(context.Background(), testBody(t), 0))
	_, err = m.FindReport(context.Background(), "7f1d", "main")
	assert.Error(t, err)
}

func TestProcessRetriesTransientFailures(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()
	body := testBody(t)

	m.FailNextApply = global.MaxRetryCount + 1

	for attempt := 0; attempt < global.MaxRetryCount; attempt++ {
		assert.Equal(t, VerdictRetry, p.Process(ctx, body, attempt))
	}
	// the retry budget is spent, the message is dropped
	assert.Equal(t, VerdictReject, p.Process(ctx, body, global.MaxRetryCount))
}

func TestRetryCountHeader(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{}))
	assert.Equal(t, 3, retryCount(amqp.Table{global.RetryHeaderKey: int32(3)}))
	assert.Equal(t, 5, retryCount(amqp.Table{global.RetryHeaderKey: int64(5)}))
	assert.Equal(t, 0, retryCount(amqp.Table{global.RetryHeaderKey: "bogus"}))
}
