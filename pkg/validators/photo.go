package validators

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoPhoto              = errors.New("no photo provided")
	ErrPhotoTooLarge        = errors.New("photo too large")
	ErrPhotoTypeUnsupported = errors.New("unsupported photo type, use JPEG, PNG or WebP")
	ErrPhotoEncoding        = errors.New("photo data is not valid base64")
)

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// PhotoValidator sniffs the real content type of b, the client supplied one
// is never trusted
func PhotoValidator(b []byte, maxSize int64) (contentType string, code int, err error) {
	if len(b) == 0 {
		return "", http.StatusBadRequest, ErrNoPhoto
	}

	if maxSize > 0 && int64(len(b)) > maxSize {
		return "", http.StatusRequestEntityTooLarge, ErrPhotoTooLarge
	}

	mime := mimetype.Detect(b)
	if !mimetype.EqualsAny(mime.String(), allowedPhotoTypes...) {
		return "", http.StatusBadRequest, ErrPhotoTypeUnsupported
	}

	return mime.String(), 0, nil
}

// DecodeDataURL accepts either a data URL ("data:image/jpeg;base64,...") or
// bare base64 and returns the raw bytes
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoPhoto
	}

	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, ErrPhotoEncoding
		}
		s = payload
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, ErrPhotoEncoding
		}
	}

	return b, nil
}
