package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/storage"
)

// ChamberResult is the outcome of a one-shot chamber call.
type ChamberResult struct {
	Status   domain.ChamberStatus `json:"status"`
	Image    string               `json:"image"`
	MIMEType string               `json:"mimeType"`
}

// Chambers runs the forge (text to image) and the weaver (image edit).
type Chambers struct {
	images ImageGenerator
}

func NewChambers(images ImageGenerator) *Chambers {
	return &Chambers{images: images}
}

// Forge generates one image from a prompt. An empty aspect ratio means 1:1.
func (c *Chambers) Forge(ctx context.Context, prompt, aspectRatio string) (*ChamberResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}
	aspectRatio, err := pickAspectRatio(aspectRatio, config.DefaultImageAspect, config.ImageAspectRatios)
	if err != nil {
		return nil, err
	}

	m, err := c.images.GenerateImage(ctx, prompt, aspectRatio)
	if err != nil {
		return nil, fmt.Errorf("forge vision: %w", err)
	}
	if len(m.Data) == 0 {
		return nil, domain.ErrEmptyNebula
	}
	return chamberSuccess(m), nil
}

// Weave edits the source image following the prompt.
func (c *Chambers) Weave(ctx context.Context, source domain.Media, prompt string) (*ChamberResult, error) {
	if len(source.Data) == 0 {
		return nil, domain.ErrMissingSource
	}
	if source.Kind() != domain.MediaTypeImage {
		return nil, domain.ErrNotAnImage
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}

	m, err := c.images.EditImage(ctx, source, prompt)
	if err != nil {
		return nil, fmt.Errorf("weave vision: %w", err)
	}
	if len(m.Data) == 0 {
		return nil, domain.ErrNoNewReality
	}
	return chamberSuccess(m), nil
}

func chamberSuccess(m domain.Media) *ChamberResult {
	if m.MIMEType == "" {
		m.MIMEType = config.ForgeOutputMIMEType
	}
	return &ChamberResult{
		Status:   domain.ChamberSuccess,
		Image:    storage.EncodeDataURL(m),
		MIMEType: m.MIMEType,
	}
}

func pickAspectRatio(requested, fallback string, allowed []string) (string, error) {
	if requested == "" {
		return fallback, nil
	}
	if !slices.Contains(allowed, requested) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAspectRatio, requested)
	}
	return requested, nil
}
