package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RotatingFileWriter is an append-only log file that is shifted to numbered
// backups (crawl.1.log, crawl.2.log, ...) once it grows past maxSize.
type RotatingFileWriter struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	size       int64
}

// NewRotatingFileWriter opens filePath for appending.
// A maxSize of zero or less disables rotation.
func NewRotatingFileWriter(filePath string, maxSize int64, maxBackups int) (*RotatingFileWriter, error) {
	w := &RotatingFileWriter{
		filePath:   filePath,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}

	if err := w.openFile(); err != nil {
		return nil, err
	}

	info, err := w.file.Stat()
	if err != nil {
		_ = w.file.Close()
		return nil, err
	}
	w.size = info.Size()

	return w, nil
}

// Write implements io.Writer
func (w *RotatingFileWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// Never rotate an empty file, so an oversized first line still lands.
	if w.maxSize > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Sync flushes the file to stable storage.
func (w *RotatingFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the file
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) openFile() error {
	file, err := os.OpenFile(w.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	if w.maxBackups > 0 {
		_ = os.Remove(w.backupName(w.maxBackups))
		for i := w.maxBackups - 1; i > 0; i-- {
			if _, err := os.Stat(w.backupName(i)); err == nil {
				if err := os.Rename(w.backupName(i), w.backupName(i+1)); err != nil {
					return err
				}
			}
		}
		if err := os.Rename(w.filePath, w.backupName(1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		if err := os.Remove(w.filePath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if err := w.openFile(); err != nil {
		return err
	}
	w.size = 0
	return nil
}

// backupName returns the path of the index-th backup: dir/name.index.ext.
func (w *RotatingFileWriter) backupName(index int) string {
	dir := filepath.Dir(w.filePath)
	base := filepath.Base(w.filePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, index, ext))
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)
