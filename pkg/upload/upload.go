package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"menew-api/pkg/config"

	"github.com/google/uuid"
)

var cfg *config.UploadConfig

// ErrTooLarge is returned when the uploaded file exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds the maximum allowed size")

// ErrUnsupportedType is returned for anything that is not a JPEG/PNG/WebP/GIF image.
var ErrUnsupportedType = errors.New("unsupported file format, use JPEG, PNG, WebP or GIF")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Initialize stores the upload configuration and creates the target directories.
func Initialize(uploadConfig *config.UploadConfig) error {
	cfg = uploadConfig
	return os.MkdirAll(filepath.Join(cfg.Dir, "menu", "food"), 0o755)
}

// SaveProductImage persists an uploaded product image under a random filename
// and returns its public path (served under /uploads). Validation is done on
// the declared content type and the size reported by the multipart header.
func SaveProductImage(file *multipart.FileHeader) (string, error) {
	if cfg == nil {
		return "", errors.New("upload configuration not provided")
	}

	if file.Size > cfg.MaxBytes {
		return "", ErrTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	// The stored extension always comes from the whitelist. The client
	// filename is untrusted and a mismatching extension (x.html declared as
	// image/png) would be served verbatim under /uploads.
	name := uuid.New().String() + ext
	dst := filepath.Join(cfg.Dir, "menu", "food", name)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create upload target: %w", err)
	}
	defer out.Close()

	// Copy with a hard cap so a lying Content-Length cannot blow the limit.
	written, err := io.Copy(out, io.LimitReader(src, cfg.MaxBytes+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	if written > cfg.MaxBytes {
		os.Remove(dst)
		return "", ErrTooLarge
	}

	return "/uploads/menu/food/" + name, nil
}
