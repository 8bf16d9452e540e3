// Package staging writes uploaded audio to uniquely named temporary files and
// guarantees their removal.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

const (
	filePattern      = "voice-*"
	defaultExtension = ".webm"
)

// Upload is an inbound audio part before it touches the disk
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// Stager stages uploads under a single directory
type Stager struct {
	dir    string
	logger *zap.Logger
}

// NewStager creates a stager rooted at dir (the OS temp dir when empty)
func NewStager(dir string, logger *zap.Logger) (*Stager, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &Stager{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir returns the staging directory
func (s *Stager) Dir() string {
	return s.dir
}

// Stage writes the upload to a fresh file. The caller must call the returned
// release func; it is safe to call more than once.
func (s *Stager) Stage(upload Upload) (entities.AudioClip, func(), error) {
	file, err := os.CreateTemp(s.dir, filePattern+extensionFor(upload.Filename))
	if err != nil {
		return entities.AudioClip{}, func() {}, fmt.Errorf("failed to create staging file: %w", err)
	}
	path := file.Name()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove staged audio", zap.String("path", path), zap.Error(err))
			return
		}
		s.logger.Debug("Released staged audio", zap.String("path", path))
	}

	size, err := io.Copy(file, upload.Reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		release()
		return entities.AudioClip{}, func() {}, fmt.Errorf("failed to write staging file: %w", err)
	}

	clip := entities.AudioClip{
		Path:     path,
		Filename: upload.Filename,
		MIMEType: s.mimeType(path, upload.ContentType),
		Size:     size,
	}

	s.logger.Debug("Staged audio",
		zap.String("path", path),
		zap.String("mimeType", clip.MIMEType),
		zap.String("size", humanize.Bytes(uint64(size))))

	return clip, release, nil
}

// WithStaged stages the upload, runs fn and removes the file on every exit path,
// including a panic inside fn.
func (s *Stager) WithStaged(upload Upload, fn func(clip entities.AudioClip) error) error {
	clip, release, err := s.Stage(upload)
	if err != nil {
		return err
	}
	defer release()

	return fn(clip)
}

// mimeType prefers the declared part type and falls back to content sniffing
func (s *Stager) mimeType(path, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		s.logger.Debug("Failed to detect audio type", zap.Error(err))
		return declared
	}
	return detected.String()
}

func extensionFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, `/\*`) {
		return defaultExtension
	}
	return ext
}
