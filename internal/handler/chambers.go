package handler

import (
	"net/http"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/response"
	"github.com/set-night/cosmiccreator/internal/service"
)

type forgeRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// forge turns a prompt into an image.
func (h *Handler) forge(w http.ResponseWriter, r *http.Request) {
	var req forgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.chambers.Forge(r.Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		writeChamberError(w, r, err, "A cosmic storm interfered with the forging process. Please try again.")
		return
	}
	response.OK(w, result)
}

// weave edits an uploaded image following the prompt.
func (h *Handler) weave(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	source, err := readImage(w, r, &req)
	if err != nil {
		writeChamberError(w, r, err, "The source image could not be read.")
		return
	}
	if source == nil {
		writeChamberError(w, r, domain.ErrMissingSource, "")
		return
	}

	result, err := h.chambers.Weave(r.Context(), *source, req.Prompt)
	if err != nil {
		writeChamberError(w, r, err, "A cosmic disturbance interrupted the weaving. Please try again.")
		return
	}
	response.OK(w, result)
}

// animate starts a video job. The source is the upload, or the star's
// current image when starId is given without one.
func (h *Handler) animate(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())

	var req mediaRequest
	source, err := readImage(w, r, &req)
	if err != nil {
		writeChamberError(w, r, err, "The source image could not be read.")
		return
	}

	job, err := h.animator.Start(r.Context(), service.AnimateRequest{
		Creator:     creator.Username,
		StarID:      req.StarID,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Source:      source,
	})
	if err != nil {
		writeChamberError(w, r, err, "The star's image could not be reached for animation.")
		return
	}
	response.Accepted(w, job)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	job, err := h.animator.Get(creator.Username, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, job)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	job, err := h.animator.Cancel(creator.Username, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, job)
}

func (h *Handler) serveJobVideo(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	id := r.PathValue("id")
	video, err := h.animator.Video(r.Context(), creator.Username, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveMedia(w, r, id+".mp4", video)
}
