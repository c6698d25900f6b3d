package handler

import (
	"log/slog"
	"net/http"

	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/response"
)

type loginRequest struct {
	Username string `json:"username"`
	// Password is accepted and ignored. The sanctuary has no credentials.
	Password string `json:"password"`
}

// login enters the sanctuary under a name, registering it on first use.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	creator, created, err := h.creators.FindOrCreate(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, middleware.SessionCookie(creator.Username))
	if created {
		slog.Info("creator registered", "creator", creator.Username)
		response.Created(w, creator)
		return
	}
	response.OK(w, creator)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	response.OK(w, middleware.GetCreator(r.Context()))
}

// logout drops the session and every in-memory view of the creator.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if creator := middleware.GetCreator(r.Context()); creator != nil {
		h.sanctuary.Forget(creator.Username)
		h.oracle.Forget(creator.Username)
	}
	http.SetCookie(w, middleware.ClearSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}
