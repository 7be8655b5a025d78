package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverhub/coverhub/pkg/core"
)

func validEnvelope() *core.Envelope {
	return &core.Envelope{
		Repo:   "https://github.com/example/app",
		RepoID: RepoID("https://github.com/example/app"),
		Branch: "main",
		Commit: "abc123",
		Coverage: core.CoverageData{
			Format: core.FormatGoc,
			Raw:    "mode: count\n",
		},
	}
}

func TestRepoID(t *testing.T) {
	id := RepoID("https://github.com/example/app")
	assert.Len(t, id, 64)
	// stable across calls
	assert.Equal(t, id, RepoID("https://github.com/example/app"))
	assert.NotEqual(t, id, RepoID("https://github.com/example/other"))
}

func TestValidateEnvelope(t *testing.T) {
	require.NoError(t, ValidateEnvelope(validEnvelope()))

	tests := []struct {
		name   string
		mutate func(e *core.Envelope)
		field  string
	}{
		{"missing repo", func(e *core.Envelope) { e.Repo = "" }, "repo"},
		{"missing repo id", func(e *core.Envelope) { e.RepoID = "" }, "repo_id"},
		{"missing branch", func(e *core.Envelope) { e.Branch = "" }, "branch"},
		{"missing commit", func(e *core.Envelope) { e.Commit = "" }, "commit"},
		{"missing raw", func(e *core.Envelope) { e.Coverage.Raw = "" }, "raw"},
		{"unknown format", func(e *core.Envelope) { e.Coverage.Format = "lcov" }, "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEnvelope()
			tt.mutate(e)
			err := ValidateEnvelope(e)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITLAB_CI", "true")
	t.Setenv("CI_PIPELINE_ID", "42")
	t.Setenv("CI_JOB_ID", "7")

	meta := DetectCI()
	assert.Equal(t, "gitlab", meta.Provider)
	assert.Equal(t, "42", meta.PipelineID)
	assert.Equal(t, "7", meta.JobID)
}

func TestDetectCIUnknown(t *testing.T) {
	for _, p := range ciProviders {
		// t.Setenv records the original value for restore on cleanup
		t.Setenv(p.marker, "")
		require.NoError(t, os.Unsetenv(p.marker))
	}
	meta := DetectCI()
	assert.Empty(t, meta.Provider)
	assert.Empty(t, meta.PipelineID)
}
