// Package storage saves SOS attachments to disk or to an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttachmentStore persists an uploaded file and returns a reference to it
type AttachmentStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName builds <base>-<unixMillis><ext> from a client supplied filename
func objectName(filename string, now time.Time) string {
	return uniqueName(filename, now, "")
}

// uniqueName is objectName with an optional suffix after the timestamp
func uniqueName(filename string, now time.Time, suffix string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "attachment"
	}
	ext = unsafeChars.ReplaceAllString(ext, "")
	if suffix != "" {
		return fmt.Sprintf("%s-%d-%s%s", base, now.UnixMilli(), suffix, ext)
	}
	return fmt.Sprintf("%s-%d%s", base, now.UnixMilli(), ext)
}

// DiskStore writes attachments under a local directory
type DiskStore struct {
	dir string
	now func() time.Time
}

// NewDiskStore creates dir if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Save returns the path of the written file
func (s *DiskStore) Save(ctx context.Context, filename, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, path, err := s.create(filename, s.now())
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close attachment: %w", err)
	}
	return path, nil
}

// create opens a fresh file for filename. Two uploads of the same name in the
// same millisecond get a random suffix instead of failing.
func (s *DiskStore) create(filename string, now time.Time) (*os.File, string, error) {
	suffix := ""
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		path := filepath.Join(s.dir, uniqueName(filename, now, suffix))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		suffix = uuid.NewString()[:8]
	}
	return nil, "", fmt.Errorf("no free name for %q after %d attempts", filename, maxNameAttempts)
}

const maxNameAttempts = 4
