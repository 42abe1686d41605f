// Package upload stores inbound contract files and hands them to the parsers.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
)

// Parser is the document parser the service delegates to.
type Parser interface {
	Parse(ctx context.Context, path string) (parse.ParseResult, error)
}

// Config controls storage location and limits.
type Config struct {
	Dir         string
	MaxFileSize int64
	ChunkSize   int
}

// ConfigFrom lifts the upload section of the app config.
func ConfigFrom(c common.UploadConfig) Config {
	return Config{Dir: c.Dir, MaxFileSize: c.MaxFileSize, ChunkSize: c.ChunkSize}
}

// Service saves uploads under Dir with random names. Saved files are
// owned by the caller until Cleanup.
type Service struct {
	cfg    Config
	parser Parser
	logger *slog.Logger
}

func NewService(cfg Config, parser Parser, logger *slog.Logger) *Service {
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 << 20
	}
	if cfg.ChunkSize < parse.SniffLen {
		cfg.ChunkSize = 8192
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, parser: parser, logger: logger}
}

// Save streams r to a new file named after a fresh UUID. The extension of
// declaredName must be supported and the first bytes must carry its
// signature. Oversized or cancelled uploads leave nothing behind.
func (s *Service) Save(ctx context.Context, r io.Reader, declaredName string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(declaredName))
	if _, ok := constants.FormatForExt(ext); !ok {
		msg := fmt.Sprintf("지원하지 않는 파일 형식입니다. 지원 형식: %s", strings.Join(constants.SupportedExtensions(), ", "))
		return "", common.NewPipelineError(common.ErrUnsupportedFormat, msg, nil)
	}

	buf := make([]byte, s.cfg.ChunkSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := parse.CheckSignature(ext, buf[:n]); err != nil {
		s.logger.Warn("upload.signature_rejected", "name", declaredName, "ext", ext, "head_bytes", n)
		return "", err
	}
	if int64(n) > s.cfg.MaxFileSize {
		return "", s.tooLarge()
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.Dir, uuid.New().String()+"."+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	total, err := s.copy(ctx, f, r, buf, n)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close upload file: %w", cerr)
	}
	if err != nil {
		s.removePartial(path)
		s.logger.Warn("upload.save_aborted", "name", declaredName, "bytes", total, "error", err)
		return "", err
	}

	s.logger.Info("upload.saved", "name", declaredName, "path", path, "bytes", total)
	return path, nil
}

// copy writes the already-read head then the rest of r in chunks.
func (s *Service) copy(ctx context.Context, w io.Writer, r io.Reader, buf []byte, n int) (int64, error) {
	total := int64(n)
	if _, err := w.Write(buf[:n]); err != nil {
		return total, fmt.Errorf("write upload: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		m, rerr := r.Read(buf)
		if m > 0 {
			total += int64(m)
			if total > s.cfg.MaxFileSize {
				return total, s.tooLarge()
			}
			if _, err := w.Write(buf[:m]); err != nil {
				return total, fmt.Errorf("write upload: %w", err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return total, nil
		}
		if rerr != nil {
			return total, fmt.Errorf("read upload: %w", rerr)
		}
	}
}

func (s *Service) tooLarge() error {
	msg := fmt.Sprintf("파일 크기가 %dMB를 초과합니다.", s.cfg.MaxFileSize>>20)
	return common.NewPipelineError(common.ErrFileTooLarge, msg, nil)
}

func (s *Service) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("upload.remove_partial_failed", "path", path, "error", err)
	}
}

// Parse runs the parser registered for the file's extension.
func (s *Service) Parse(ctx context.Context, path string) (parse.ParseResult, error) {
	return s.parser.Parse(ctx, path)
}

// Cleanup removes a saved file. It never fails; problems are logged.
func (s *Service) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("upload.cleanup_failed", "path", path, "error", err)
		return
	}
	s.logger.Debug("upload.cleaned", "path", path)
}
