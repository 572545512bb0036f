package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/propform/proposals-tracker/internal/common"
)

// ErrorSubdir holds files that failed processing, under the processed dir.
const ErrorSubdir = "com_erro"

// Queue is a directory-backed work queue. Files land in InputDir, are
// processed, and move to ProcessedDir on success or its error subdirectory
// on failure. The move is the acknowledgement.
type Queue struct {
	InputDir     string
	ProcessedDir string
	Pattern      string

	log *slog.Logger
}

func NewQueue(inputDir, processedDir, pattern string, logger *slog.Logger) (*Queue, error) {
	if pattern == "" {
		pattern = "*.pdf"
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{inputDir, processedDir, filepath.Join(processedDir, ErrorSubdir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.WrapError(err, "create queue directory")
		}
	}
	return &Queue{
		InputDir:     inputDir,
		ProcessedDir: processedDir,
		Pattern:      pattern,
		log:          logger,
	}, nil
}

// Scan lists pending files matching the queue pattern, in name order so a
// crashed run resumes deterministically.
func (q *Queue) Scan() ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(q.InputDir, q.Pattern))
	if err != nil {
		return nil, common.WrapError(err, "scan input directory")
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// MoveProcessed acknowledges a successfully processed file.
func (q *Queue) MoveProcessed(path string) error {
	return q.move(path, q.ProcessedDir)
}

// MoveErrored quarantines a failed file so it is not retried forever.
func (q *Queue) MoveErrored(path string) error {
	return q.move(path, filepath.Join(q.ProcessedDir, ErrorSubdir))
}

func (q *Queue) move(path, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		q.log.Info("queue.moved", "from", path, "to", dest)
		return nil
	}
	// Rename fails across filesystems; fall back to copy and remove.
	if err := copyFile(path, dest); err != nil {
		q.log.Error("queue.move_failed", "from", path, "to", dest, "error", err)
		return common.WrapError(err, "move queue file")
	}
	if err := os.Remove(path); err != nil {
		q.log.Error("queue.remove_failed", "path", path, "error", err)
		return common.WrapError(err, "remove moved queue file")
	}
	q.log.Info("queue.moved", "from", path, "to", dest)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
