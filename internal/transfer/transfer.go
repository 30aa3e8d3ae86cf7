// Package transfer layers whole-file get/put on top of the eval channel. Both
// directions are single-shot: the file crosses in one encoded response, with
// no chunking or resume. The ceiling is whatever the channel and the remote
// evaluator tolerate in a single exchange; large files are out of scope.
package transfer

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RemoteFS reads and writes remote file bytes through the codec.
type RemoteFS interface {
	ReadFile(path, cwd string) ([]byte, error)
	WriteFile(path string, data []byte, cwd string) (int, error)
}

type Engine struct {
	fs RemoteFS
}

func New(fs RemoteFS) *Engine { return &Engine{fs: fs} }

// Get downloads remote (resolved against cwd on the remote side) to local,
// defaulting to the remote base name. The local write is atomic: a failed
// transfer never leaves a partial file behind. Returns the byte count and the
// local destination.
func (e *Engine) Get(remote, local, cwd string) (int, string, error) {
	if strings.TrimSpace(remote) == "" {
		return 0, "", fmt.Errorf("get: remote path is required")
	}
	dest := local
	if dest == "" {
		dest = path.Base(remote)
	}
	dest = expandHome(dest)
	data, err := e.fs.ReadFile(remote, cwd)
	if err != nil {
		return 0, "", err
	}
	if err := writeFileAtomic(dest, data, 0o644); err != nil {
		return 0, "", fmt.Errorf("write %s: %w", dest, err)
	}
	return len(data), dest, nil
}

// Put uploads local to remote, defaulting to the local base name under cwd.
// The byte count comes from the remote write, not the local size: a truncated
// remote write must show in the report.
func (e *Engine) Put(local, remote, cwd string) (int, string, error) {
	if strings.TrimSpace(local) == "" {
		return 0, "", fmt.Errorf("put: local path is required")
	}
	data, err := os.ReadFile(expandHome(local))
	if err != nil {
		return 0, "", fmt.Errorf("read %s: %w", local, err)
	}
	dest := remote
	if dest == "" {
		dest = filepath.Base(local)
	}
	n, err := e.fs.WriteFile(dest, data, cwd)
	if err != nil {
		return 0, "", err
	}
	return n, dest, nil
}

func writeFileAtomic(dest string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".evalsh-write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

func expandHome(p string) string {
	if p == "~" {
		if h, err := os.UserHomeDir(); err == nil && h != "" {
			return h
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if h, err := os.UserHomeDir(); err == nil && h != "" {
			return filepath.Join(h, strings.TrimPrefix(p, "~/"))
		}
	}
	return p
}
