package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
)

const (
	mirrorPreamble = `You are The Oracle's Mirror, a mystical AI that reflects the user's query back in the form of a short, poetic, and insightful verse. Do not give direct answers. Instead, offer a contemplative and metaphorical reflection on their question. The user's query is: "%s"`

	transmissionPreamble = "You are an AI specializing in energetic interpretation of symbols, sigils, and light language. Analyze this image and provide a brief, mystical interpretation of its meaning and energy. Speak as if you are deciphering an ancient cosmic transmission."

	oraclePreamble = "You are the Universal Oracle, a wise and knowledgeable guide. Answer the seeker's question clearly and helpfully."

	oracleDetailedPreamble = "You are the Universal Oracle, a wise and knowledgeable guide. Answer the seeker's question thoroughly, with depth, structure and examples where they help."

	faintEther = "The ether's hum is faint... the connection is lost in the cosmic static."
)

// Oracle hosts the reflective chat, the transmission decoder and the
// universal oracle.
type Oracle struct {
	text TextGenerator

	mu          sync.Mutex
	transcripts map[string][]domain.ChatMessage
}

func NewOracle(text TextGenerator) *Oracle {
	return &Oracle{
		text:        text,
		transcripts: make(map[string][]domain.ChatMessage),
	}
}

// Reflect answers with a poetic reflection and appends both messages to the
// creator's transcript, dropping the oldest past MaxTranscriptMessages. A
// vendor failure is answered with a fixed message.
func (o *Oracle) Reflect(ctx context.Context, creator, prompt string) ([]domain.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}

	reply, err := o.text.GenerateText(ctx, config.ModelReflection, fmt.Sprintf(mirrorPreamble, prompt))
	if err != nil {
		slog.Error("poetic reflection", "creator", creator, "error", err)
		reply = faintEther
	}

	msgs := []domain.ChatMessage{
		{ID: uuid.NewString(), Role: domain.ChatRoleUser, Text: prompt},
		{ID: uuid.NewString(), Role: domain.ChatRoleModel, Text: reply},
	}

	o.mu.Lock()
	transcript := append(o.transcripts[creator], msgs...)
	if over := len(transcript) - config.MaxTranscriptMessages; over > 0 {
		transcript = slices.Clone(transcript[over:])
	}
	o.transcripts[creator] = transcript
	o.mu.Unlock()

	return msgs, nil
}

// Transcript returns the creator's reflective chat so far.
func (o *Oracle) Transcript(creator string) []domain.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.transcripts[creator])
}

// Forget drops the creator's transcript.
func (o *Oracle) Forget(creator string) {
	o.mu.Lock()
	delete(o.transcripts, creator)
	o.mu.Unlock()
}

// DecodeTransmission interprets a symbolic image.
func (o *Oracle) DecodeTransmission(ctx context.Context, image domain.Media) (string, error) {
	if len(image.Data) == 0 {
		return "", domain.ErrMissingSource
	}
	if !strings.HasPrefix(image.MIMEType, "image/") {
		return "", domain.ErrNotAnImage
	}

	text, err := o.text.DescribeImage(ctx, config.ModelTransmission, image, transmissionPreamble)
	if err != nil {
		slog.Error("decode transmission", "error", err)
		return "", errors.Join(domain.ErrTransmissionLost, err)
	}
	return text, nil
}

// Ask answers a question, with the larger model when detailed is set.
func (o *Oracle) Ask(ctx context.Context, question string, detailed bool) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrEmptyPrompt
	}

	model, preamble := config.ModelOracle, oraclePreamble
	if detailed {
		model, preamble = config.ModelOracleDetailed, oracleDetailedPreamble
	}

	answer, err := o.text.GenerateText(ctx, model, preamble+"\n\nQuestion: "+question)
	if err != nil {
		return "", fmt.Errorf("ask oracle: %w", err)
	}
	return answer, nil
}
