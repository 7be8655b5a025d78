package agentloop

import (
	"context"
	"os"

	"github.com/coverhub/coverhub/pkg/core"
)

// FileProvider reads a raw coverage profile that the instrumented process
// keeps rewriting on disk.
type FileProvider struct {
	Path   string
	Format string
}

// Snapshot reads the current profile contents.
func (f *FileProvider) Snapshot(ctx context.Context) (*core.CoverageSnapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return &core.CoverageSnapshot{Format: f.Format, Raw: string(data)}, nil
}
