package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// multipartMemory is how much of a multipart upload is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// uploadField is the multipart form field that carries the file.
const uploadField = "file"

var (
	errUploadMissing  = errors.New("file is required")
	errUploadTooLarge = errors.New("file exceeds the maximum upload size")
)

// readUpload returns the uploaded bytes: the "file" field of a multipart
// form, or the raw body for any other content type. The whole body is
// buffered, capped at limit bytes.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(r)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, uploadError(err)
	}

	if len(data) == 0 {
		return nil, errUploadMissing
	}

	return data, nil
}

func readMultipart(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadError(err)
	}

	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errUploadMissing
	}

	if err != nil {
		return nil, uploadError(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, uploadError(err)
	}

	return data, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errUploadTooLarge
	}

	return fmt.Errorf("reading upload: %w", err)
}
