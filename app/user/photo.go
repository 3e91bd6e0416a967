package user

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"utmcouncil/vote-api/pkg/validators"

	"github.com/gin-gonic/gin"
)

// readPhoto takes the carnet photo from a multipart "photo" file or, for
// JSON clients, from a base64 image_data field. The returned code is the
// status to answer with when err is set.
func readPhoto(c *gin.Context, imageData string, maxSize int64) ([]byte, string, int, error) {
	var b []byte

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("photo")
		switch {
		case err == nil:
			if maxSize > 0 && fh.Size > maxSize {
				return nil, "", http.StatusRequestEntityTooLarge, validators.ErrPhotoTooLarge
			}

			f, err := fh.Open()
			if err != nil {
				return nil, "", http.StatusInternalServerError, err
			}
			defer f.Close()

			var r io.Reader = f
			if maxSize > 0 {
				r = io.LimitReader(f, maxSize+1)
			}

			b, err = io.ReadAll(r)
			if err != nil {
				return nil, "", http.StatusInternalServerError, err
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			return nil, "", http.StatusBadRequest, err
		}
	}

	if b == nil {
		var err error
		if b, err = validators.DecodeDataURL(imageData); err != nil {
			return nil, "", http.StatusBadRequest, err
		}
	}

	contentType, code, err := validators.PhotoValidator(b, maxSize)
	if err != nil {
		return nil, "", code, err
	}

	return b, contentType, 0, nil
}
