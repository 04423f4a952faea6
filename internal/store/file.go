package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Load reads the document stored at path.
func Load(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// LoadOrEmpty reads the document at path. A missing or unreadable file yields
// an empty document so callers can fall back to defaults; failures other than
// a missing file are logged.
func LoadOrEmpty(path string, logger *slog.Logger) *Value {
	v, err := Load(path)
	if err == nil {
		return v
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("no stored document", "path", path)
	} else {
		logger.Warn("discarding unreadable document", "path", path, "error", err)
	}
	return New()
}

// Save writes v to path. The document is written to path+".tmp" first and
// renamed over path only when every byte reached the disk; the temporary file
// is removed in every case.
func Save(path string, v *Value) error {
	if v == nil {
		return fmt.Errorf("save %s: nil document", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	tmp := path + ".tmp"
	defer os.Remove(tmp)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := v.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
