package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Writer persists a snapshot to a stable latest path and a per-day path.
type Writer struct {
	dir      string
	latest   string
	location *time.Location
}

func NewWriter(dir, latest string, loc *time.Location) *Writer {
	if latest == "" {
		latest = "latest.json"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Writer{dir: dir, latest: latest, location: loc}
}

// LatestPath is the file overwritten on every run.
func (w *Writer) LatestPath() string {
	return filepath.Join(w.dir, w.latest)
}

// DatedPath is the file for the calendar day of t in the writer's timezone.
func (w *Writer) DatedPath(t time.Time) string {
	return filepath.Join(w.dir, t.In(w.location).Format("2006-01-02")+".json")
}

// Write stages both files next to their targets and renames them into
// place only after both were written. If the dated rename fails, the
// previous latest file is put back, so a failed Write leaves no target
// changed.
func (w *Writer) Write(s *Snapshot, now time.Time) error {
	data, err := encode(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	latest, dated := w.LatestPath(), w.DatedPath(now)
	var staged []string
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}
	defer cleanup()

	latestTmp, err := stage(latest, data)
	if err != nil {
		return err
	}
	staged = append(staged, latestTmp)

	datedTmp, err := stage(dated, data)
	if err != nil {
		return err
	}
	staged = append(staged, datedTmp)

	backup, hadLatest, err := stageBackup(latest)
	if err != nil {
		return err
	}
	if backup != "" {
		staged = append(staged, backup)
	}

	if err := os.Rename(latestTmp, latest); err != nil {
		return fmt.Errorf("failed to move snapshot into %s: %w", latest, err)
	}
	if err := os.Rename(datedTmp, dated); err != nil {
		if restoreErr := restore(latest, backup, hadLatest); restoreErr != nil {
			return fmt.Errorf("failed to move snapshot into %s: %w (restoring %s: %v)", dated, err, latest, restoreErr)
		}
		return fmt.Errorf("failed to move snapshot into %s: %w", dated, err)
	}
	return nil
}

// stageBackup copies the current contents of path into a temp file beside
// it. hadFile is false when path did not exist.
func stageBackup(path string) (backup string, hadFile bool, err error) {
	old, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	backup, err = stage(path, old)
	if err != nil {
		return "", false, err
	}
	return backup, true, nil
}

func restore(path, backup string, hadFile bool) error {
	if !hadFile {
		return os.Remove(path)
	}
	return os.Rename(backup, path)
}

func encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func stage(target string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return f.Name(), nil
}
