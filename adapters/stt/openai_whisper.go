package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// WhisperConfig holds configuration for the OpenAI transcription adapter
type WhisperConfig struct {
	APIKey  string
	BaseURL string // optional, e.g. a proxy or a test server
	Model   string // default "whisper-1"
	Timeout time.Duration
}

// WhisperSTT implements SpeechToText using the OpenAI audio transcription API
type WhisperSTT struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSTT)(nil)

// NewWhisperSTT creates a new OpenAI Whisper instance
func NewWhisperSTT(config WhisperConfig, logger *zap.Logger) (*WhisperSTT, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai whisper: %w", provider.ErrNoAPIKey)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := config.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperSTT{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Name implements repositories.SpeechToText
func (w *WhisperSTT) Name() string {
	return ProviderOpenAIWhisper
}

// TranscribeAudio sends the staged file by path; the client opens and streams it.
func (w *WhisperSTT) TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error) {
	w.logger.Debug("Sending audio to OpenAI", zap.String("model", w.model))

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: clip.Path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	return text, nil
}
