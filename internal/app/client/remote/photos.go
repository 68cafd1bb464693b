package remote

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vistoria/internal/domain/inspection"
)

// MaxPhotoSize ограничение размера одного фото
const MaxPhotoSize = 15 << 20

// PhotoEncoder готовит фото к отправке: локальные файлы превращаются в
// data URI, удаленные URL передаются как есть
type PhotoEncoder struct {
	baseDir string
}

// NewPhotoEncoder относительные пути разрешаются от baseDir
func NewPhotoEncoder(baseDir string) *PhotoEncoder {
	return &PhotoEncoder{baseDir: baseDir}
}

// Encode возвращает URI всех фото в исходном порядке
func (e *PhotoEncoder) Encode(fotos []inspection.Photo) ([]string, error) {
	uris := make([]string, 0, len(fotos))
	for i, f := range fotos {
		if f.IsRemote() || strings.HasPrefix(f.URI, "data:") {
			uris = append(uris, f.URI)
			continue
		}
		uri, err := e.encodeFile(f.URI)
		if err != nil {
			return nil, fmt.Errorf("foto %d: %w", i, err)
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func (e *PhotoEncoder) encodeFile(uri string) (string, error) {
	path := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(path) && e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPhotoUnreadable, err)
	}
	if info.Size() > MaxPhotoSize {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrPhotoUnreadable, path, info.Size(), MaxPhotoSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPhotoUnreadable, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
