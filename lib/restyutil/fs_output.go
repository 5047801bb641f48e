package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	devenv "vamkhelp-backend/dev/env"
)

// FilesystemOutput writes each HTTP exchange to <dir>/<message id>, it is meant
// for inspecting portal markup when an extractor breaks.
// Several clients may share one output, so files are prefixed with a
// sequence number to keep message ids from colliding.
type FilesystemOutput struct {
	directory string
	seq       *uint64
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear %s: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, seq: new(uint64)}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	name := fmt.Sprintf("%05d-%s.txt", atomic.AddUint64(o.seq, 1), id)
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
