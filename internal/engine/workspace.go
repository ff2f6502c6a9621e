package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Workspace describes one directory below the engine root.
type Workspace struct {
	Name    string
	Path    string
	Active  bool
	ModTime time.Time
}

// ListWorkspaces reports the workspaces under root. A workspace is active
// when another engine currently holds its lock.
func ListWorkspaces(root string) ([]Workspace, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	var out []Workspace
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		ws := Workspace{Name: entry.Name(), Path: dir}
		if info, err := entry.Info(); err == nil {
			ws.ModTime = info.ModTime()
		}
		active, err := workspaceLocked(dir)
		if err != nil {
			return nil, err
		}
		ws.Active = active
		out = append(out, ws)
	}
	return out, nil
}

// PruneWorkspaces removes inactive workspaces left behind by crashed runs
// and returns the names removed.
func PruneWorkspaces(root string) ([]string, error) {
	workspaces, err := ListWorkspaces(root)
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, ws := range workspaces {
		if ws.Active {
			continue
		}
		if err := os.RemoveAll(ws.Path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", ws.Path, err))
			continue
		}
		removed = append(removed, ws.Name)
	}
	return removed, errors.Join(errs...)
}

func workspaceLocked(dir string) (bool, error) {
	lockPath := filepath.Join(dir, lockFileName)
	if _, err := os.Stat(lockPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock %s: %w", lockPath, err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
