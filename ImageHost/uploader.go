package ImageHost

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are accepted")

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectType sniffs the content type of data and rejects non-images.
func DetectType(data []byte) (contentType, ext string, err error) {
	contentType = http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}
