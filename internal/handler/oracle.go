package handler

import (
	"net/http"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/response"
)

type reflectRequest struct {
	Prompt string `json:"prompt"`
}

type reflectResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// reflect sends one message to the Oracle's Mirror. The reply is always a
// message; vendor failures come back as the faint-ether answer.
func (h *Handler) reflect(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())

	var req reflectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	messages, err := h.oracle.Reflect(r.Context(), creator.Username, req.Prompt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, reflectResponse{Messages: messages})
}

func (h *Handler) transcript(w http.ResponseWriter, r *http.Request) {
	creator := middleware.GetCreator(r.Context())
	messages := h.oracle.Transcript(creator.Username)
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	response.OK(w, reflectResponse{Messages: messages})
}

type oracleAnswer struct {
	Text string `json:"text"`
}

func (h *Handler) decodeTransmission(w http.ResponseWriter, r *http.Request) {
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

	text, err := h.oracle.DecodeTransmission(r.Context(), *image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, oracleAnswer{Text: text})
}

type askRequest struct {
	Question string `json:"question"`
	Detailed bool   `json:"detailed"`
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := h.oracle.Ask(r.Context(), req.Question, req.Detailed)
	if err != nil {
		writeUpstreamError(w, r, err, "The Oracle is silent. Please ask again.")
		return
	}
	response.OK(w, oracleAnswer{Text: answer})
}
