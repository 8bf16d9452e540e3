package stt

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	transcriptionPrompt = "Transcribe the speech in this audio exactly as spoken. " +
		"Reply with the transcript only. If there is no speech, reply with nothing."
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiConfig holds configuration for the Gemini transcription adapter
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiSTT transcribes audio by sending it inline to a Gemini model
type GeminiSTT struct {
	generate generateFunc
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*GeminiSTT)(nil)

// NewGeminiSTT creates a new Gemini transcription instance
func NewGeminiSTT(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSTT, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini stt: %w", provider.ErrNoAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiSTT(config, logger, client.Models.GenerateContent), nil
}

func newGeminiSTT(config GeminiConfig, logger *zap.Logger, generate generateFunc) *GeminiSTT {
	model := config.Model
	if model == "" {
		model = defaultGeminiModel
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &GeminiSTT{
		generate: generate,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name implements repositories.SpeechToText
func (g *GeminiSTT) Name() string {
	return ProviderGemini
}

// TranscribeAudio sends the instruction and the audio bytes as one user turn
func (g *GeminiSTT) TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error) {
	audio, err := os.ReadFile(clip.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read staged audio: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcriptionPrompt),
			genai.NewPartFromBytes(audio, clip.AudioMIMEType()),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	response, err := g.generate(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", ErrEmptyTranscript
	}

	// Extract text from the response
	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
