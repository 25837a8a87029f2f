package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSnapshot 还没有任何成功运行留下的快照
var ErrNoSnapshot = errors.New("no snapshot published yet")

// FileWriter 把快照原子地写到本地路径：同目录临时文件 -> fsync -> rename
type FileWriter struct {
	Path string
}

func NewFileWriter(path string) *FileWriter {
	return &FileWriter{Path: path}
}

func (w *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// rename 成功后临时文件已不存在，Remove 返回的错误可以忽略
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, w.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	// 目录 fsync 失败不影响已经完成的替换
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Latest 读取当前快照原文
func (w *FileWriter) Latest(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(w.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
