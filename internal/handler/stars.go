package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/response"
	"github.com/set-night/cosmiccreator/internal/service"
)

func (h *Handler) listStars(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	response.OK(w, h.sanctuary.Stars(r.Context(), creator.Username))
}

func (h *Handler) getStar(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	star, err := h.sanctuary.Star(r.Context(), creator.Username, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, star)
}

type starPrompts struct {
	Vision    string `json:"vision"`
	Animation string `json:"animation"`
}

// starPrompts returns the prompts the detail view prefills.
func (h *Handler) starPrompts(w http.ResponseWriter, r *http.Request) {
	star, err := service.FindStar(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, starPrompts{
		Vision:    service.VisionPrompt(star),
		Animation: service.AnimationPrompt(star),
	})
}

// linkImage makes the uploaded image the star's primary image.
func (h *Handler) linkImage(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())

	var req mediaRequest
	image, err := readImage(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if image == nil {
		writeError(w, r, domain.ErrMissingSource)
		return
	}

	star, err := h.sanctuary.LinkImage(r.Context(), creator.Username, r.PathValue("id"), *image)
	if err != nil {
		writeUpstreamError(w, r, err, "The image could not be saved to the sanctuary.")
		return
	}
	response.OK(w, star)
}

type starMedia struct {
	Image  string   `json:"image"`
	Images []string `json:"images"`
	Video  string   `json:"video,omitempty"`
}

func (h *Handler) starMedia(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	star, err := h.sanctuary.Star(r.Context(), creator.Username, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	images := star.Images
	if len(images) == 0 && star.Image != "" {
		images = []string{star.Image}
	}
	response.OK(w, starMedia{Image: star.Image, Images: images, Video: star.Video})
}

func (h *Handler) removeMedia(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		response.BadRequest(w, "index must be a non-negative integer", "")
		return
	}

	star, err := h.sanctuary.RemoveImage(r.Context(), creator.Username, r.PathValue("id"), index)
	if err != nil {
		writeUpstreamError(w, r, err, "The image could not be removed.")
		return
	}
	response.OK(w, star)
}

// serveStarVideo streams the creator's stored video for a star.
func (h *Handler) serveStarVideo(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	starID := r.PathValue("starId")
	video, err := h.blobs.Open(r.Context(), creator.Username, starID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveMedia(w, r, starID+".mp4", video)
}

// serveMedia writes m with range support so video players can seek.
func serveMedia(w http.ResponseWriter, r *http.Request, name string, m domain.Media) {
	w.Header().Set("Content-Type", m.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(m.Data))
}
