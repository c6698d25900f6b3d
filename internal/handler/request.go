package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/storage"
)

// Base64 inflates uploads by a third; leave room for the JSON around them.
const maxJSONBody = config.MaxUploadBytes*4/3 + 64<<10

var errBadBody = errors.New("malformed request body")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

// readImage accepts either a multipart upload in field "image" or a JSON
// body whose "image" field holds a data URL. fields receives the remaining
// form values or the decoded JSON.
func readImage(w http.ResponseWriter, r *http.Request, fields *mediaRequest) (*domain.Media, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		if err := decodeJSON(w, r, fields); err != nil {
			return nil, err
		}
		if fields.Image == "" {
			return nil, nil
		}
		m, err := storage.DecodeDataURL(fields.Image)
		if err != nil {
			return nil, err
		}
		return &m, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	fields.Prompt = r.FormValue("prompt")
	fields.AspectRatio = r.FormValue("aspectRatio")
	fields.StarID = r.FormValue("starId")

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidMedia
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return &domain.Media{Data: data, MIMEType: mimeType}, nil
}

// mediaRequest is the shared body of endpoints that take an image.
type mediaRequest struct {
	Image       string `json:"image"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	StarID      string `json:"starId"`
}
