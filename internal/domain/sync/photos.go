package sync

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"vistoria/internal/domain/inspection"
)

type photo struct {
	url         string
	contentType string
	data        []byte
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/gif":  ".gif",
}

// decodePhotos разбирает фото из payload: data: URI декодируются,
// http(s) ссылки остаются как есть
func decodePhotos(fotos []string, maxBytes int) ([]photo, error) {
	out := make([]photo, 0, len(fotos))
	for n, uri := range fotos {
		switch {
		case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
			out = append(out, photo{url: uri})
		case strings.HasPrefix(uri, "data:"):
			p, err := decodeDataURI(uri, maxBytes)
			if err != nil {
				return nil, invalidPhoto(n, err.Error())
			}
			out = append(out, p)
		default:
			return nil, invalidPhoto(n, "expected data URI or http(s) URL")
		}
	}
	return out, nil
}

func decodeDataURI(uri string, maxBytes int) (photo, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return photo{}, fmt.Errorf("malformed data URI")
	}

	contentType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return photo{}, fmt.Errorf("data URI must be base64 encoded")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return photo{}, fmt.Errorf("unsupported content type %q", contentType)
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return photo{}, fmt.Errorf("photo exceeds %d bytes", maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return photo{}, fmt.Errorf("bad base64: %w", err)
	}
	if len(data) == 0 {
		return photo{}, fmt.Errorf("photo is empty")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return photo{}, fmt.Errorf("photo exceeds %d bytes", maxBytes)
	}

	return photo{contentType: contentType, data: data}, nil
}

func invalidPhoto(n int, reason string) error {
	return &inspection.DomainError{
		Err:     ErrInvalidPhoto,
		Message: fmt.Sprintf("foto %d: %s", n, reason),
		Code:    inspection.CodeValidation,
	}
}

// photoKey ключ объекта: blake2b от id осмотра и содержимого.
// Одинаковое фото двух осмотров хранится дважды, так что откат
// одного осмотра не затрагивает другой.
func photoKey(inspectionID string, p photo) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(inspectionID))
	h.Write([]byte{0})
	h.Write(p.data)
	sum := hex.EncodeToString(h.Sum(nil))

	ext, ok := photoExtensions[p.contentType]
	if !ok {
		ext = ".bin"
	}
	return sum[:2] + "/" + sum + ext
}

// resolver возвращает PhotoResolver, который пишет фото осмотра в хранилище
func (s *Service) resolver(inspectionID string, photos []photo) PhotoResolver {
	return func(ctx context.Context) ([]string, func(), error) {
		urls := make([]string, len(photos))
		var created []string

		undo := func() {
			cleanup := context.WithoutCancel(ctx)
			for _, key := range created {
				if err := s.blobs.Delete(cleanup, key); err != nil {
					s.log.Error("failed to delete orphan photo", "key", key, "error", err)
				}
			}
		}

		for i, p := range photos {
			if p.url != "" {
				urls[i] = p.url
				continue
			}
			obj, err := s.blobs.Put(ctx, photoKey(inspectionID, p), p.contentType, p.data)
			if err != nil {
				undo()
				return nil, nil, fmt.Errorf("store photo %d: %w", i, err)
			}
			if obj.Created {
				created = append(created, obj.Key)
			}
			urls[i] = obj.URL
		}

		return urls, undo, nil
	}
}
