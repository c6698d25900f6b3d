package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"google.golang.org/genai"
)

// TextGenerator produces text from a prompt, optionally grounded on an image.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
	DescribeImage(ctx context.Context, model string, image domain.Media, instruction string) (string, error)
}

// ImageGenerator backs the forge and weaver chambers.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (domain.Media, error)
	EditImage(ctx context.Context, source domain.Media, prompt string) (domain.Media, error)
}

// VideoGenerator backs the animator chamber.
type VideoGenerator interface {
	StartVideo(ctx context.Context, source domain.Media, prompt, aspectRatio string) (*domain.VideoOperation, error)
	PollVideo(ctx context.Context, operation string) (*domain.VideoOperation, error)
	FetchVideo(ctx context.Context, uri string) (domain.Media, error)
}

// GeminiService talks to the Gemini API: Gemini text and image models,
// Imagen and Veo.
type GeminiService struct {
	client     *genai.Client
	apiKey     string
	httpClient *http.Client
}

func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiService{
		client:     client,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: config.VideoFetchTimeout},
	}, nil
}

func (g *GeminiService) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", vendorError("generate text", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate text: empty response from %s", model)
	}
	return text, nil
}

func (g *GeminiService) DescribeImage(ctx context.Context, model string, image domain.Media, instruction string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image.Data, image.MIMEType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", vendorError("describe image", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("describe image: empty response from %s", model)
	}
	return text, nil
}

func (g *GeminiService) GenerateImage(ctx context.Context, prompt, aspectRatio string) (domain.Media, error) {
	resp, err := g.client.Models.GenerateImages(ctx, config.ModelImagen, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: config.ForgeOutputMIMEType,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return domain.Media{}, vendorError("generate image", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 ||
		resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return domain.Media{}, domain.ErrEmptyNebula
	}
	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = config.ForgeOutputMIMEType
	}
	return domain.Media{Data: img.ImageBytes, MIMEType: mimeType}, nil
}

func (g *GeminiService) EditImage(ctx context.Context, source domain.Media, prompt string) (domain.Media, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(source.Data, source.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, config.ModelImageEdit, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return domain.Media{}, vendorError("edit image", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.Media{}, domain.ErrNoNewReality
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return domain.Media{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
		}
	}
	return domain.Media{}, domain.ErrNoNewReality
}

func (g *GeminiService) StartVideo(ctx context.Context, source domain.Media, prompt, aspectRatio string) (*domain.VideoOperation, error) {
	op, err := g.client.Models.GenerateVideos(ctx, config.ModelVeo, prompt,
		&genai.Image{ImageBytes: source.Data, MIMEType: source.MIMEType},
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     config.VideoResolution,
			AspectRatio:    aspectRatio,
		})
	if err != nil {
		return nil, vendorError("start video generation", err)
	}
	return videoOperation(op), nil
}

func (g *GeminiService) PollVideo(ctx context.Context, operation string) (*domain.VideoOperation, error) {
	op, err := g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operation}, nil)
	if err != nil {
		return nil, vendorError("poll video operation", err)
	}
	return videoOperation(op), nil
}

// FetchVideo downloads a generated video. The key goes in a header so it
// never shows up in URLs carried by errors.
func (g *GeminiService) FetchVideo(ctx context.Context, uri string) (domain.Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return domain.Media{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.Media{}, fmt.Errorf("fetch video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Media{}, fmt.Errorf("fetch video: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxVideoUploadBytes))
	if err != nil {
		return domain.Media{}, fmt.Errorf("read video: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "video/") {
		mimeType = "video/mp4"
	}
	return domain.Media{Data: data, MIMEType: mimeType}, nil
}

func videoOperation(op *genai.GenerateVideosOperation) *domain.VideoOperation {
	if op == nil {
		return &domain.VideoOperation{}
	}
	out := &domain.VideoOperation{Name: op.Name, Done: op.Done}
	if op.Error != nil {
		if msg, ok := op.Error["message"].(string); ok {
			out.Error = msg
		} else {
			out.Error = fmt.Sprint(op.Error)
		}
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0].Video; v != nil {
			out.VideoURI = v.URI
		}
	}
	return out
}

// vendorError wraps a vendor failure, surfacing a rejected key as
// ErrInvalidAPIKey.
func vendorError(action string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "Requested entity was not found") {
		return fmt.Errorf("%s: %w", action, errors.Join(domain.ErrInvalidAPIKey, err))
	}
	return fmt.Errorf("%s: %w", action, err)
}
