// Package media stores uploaded product imagery and video on local disk and
// returns the hosted URL for each stored file.
package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/desklyhq/deskly/internal/config"
)

const (
	MaxImageBytes = 5 << 20
	MaxVideoBytes = 100 << 20

	sniffLen = 512
)

var (
	ErrEmptyFile       = errors.New("empty_file")
	ErrUnsupportedType = errors.New("unsupported_media_type")
	ErrTooLarge        = errors.New("file_too_large")
)

// extensions per accepted sniffed content type. Anything absent here is
// rejected regardless of the uploaded filename.
var imageExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var videoExts = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// detectContentType sniffs the upload's type from its first bytes.
// QuickTime is checked explicitly because net/http's sniffer does not know
// the qt ftyp brand and reports .mov files as application/octet-stream.
func detectContentType(head []byte) string {
	if isQuickTime(head) {
		return "video/quicktime"
	}
	contentType := http.DetectContentType(head)
	contentType, _, _ = strings.Cut(contentType, ";")
	return contentType
}

// isQuickTime reports whether head starts with an ftyp box carrying the
// "qt  " major brand.
func isQuickTime(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[4:8], []byte("ftyp")) &&
		bytes.Equal(head[8:12], []byte("qt  "))
}

type UploadResult struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

type Service struct {
	dir     string
	baseURL string
	log     *zap.Logger
}

func New(p Params) (*Service, error) {
	if err := os.MkdirAll(p.Cfg.MediaDir, 0o755); err != nil {
		return nil, err
	}
	return &Service{
		dir:     p.Cfg.MediaDir,
		baseURL: strings.TrimRight(p.Cfg.MediaBaseURL, "/"),
		log:     p.Log,
	}, nil
}

// Dir returns the storage root, served as static files by the HTTP layer.
func (s *Service) Dir() string { return s.dir }

// Upload sniffs the content type from the first bytes of r, enforces the
// per-kind size cap, and stores the file under a random name. The uploaded
// filename is never trusted for type or path decisions.
func (s *Service) Upload(ctx context.Context, r io.Reader) (*UploadResult, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	head = head[:n]

	contentType := detectContentType(head)

	ext, ok := imageExts[contentType]
	limit := int64(MaxImageBytes)
	if !ok {
		ext, ok = videoExts[contentType]
		limit = MaxVideoBytes
	}
	if !ok {
		return nil, ErrUnsupportedType
	}

	filename := uuid.NewString() + ext
	path := filepath.Join(s.dir, filename)

	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	// +1 over the cap so an oversized stream is distinguishable from one
	// that ends exactly at the limit.
	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(out, io.LimitReader(body, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if written > limit {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	s.log.Info("media stored",
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int64("size_bytes", written),
	)

	return &UploadResult{
		URL:         s.baseURL + "/" + filename,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   written,
	}, nil
}

var Module = fx.Module("media.service",
	fx.Provide(New),
)
