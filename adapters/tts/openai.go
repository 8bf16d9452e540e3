package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// ErrEmptyAudio is returned when a provider answers without audio bytes.
var ErrEmptyAudio = errors.New("tts: empty audio")

const (
	defaultOpenAIModel = "gpt-4o-mini-tts"
	defaultOpenAIVoice = "alloy"
)

// OpenAIConfig holds configuration for the OpenAI speech adapter
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// OpenAITTS implements TextToSpeech using the OpenAI speech API
type OpenAITTS struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*OpenAITTS)(nil)

// NewOpenAITTS creates a new OpenAI TTS instance
func NewOpenAITTS(config OpenAIConfig, logger *zap.Logger) (*OpenAITTS, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai tts: %w", provider.ErrNoAPIKey)
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
		model = defaultOpenAIModel
	}
	voice := config.Voice
	if voice == "" {
		voice = defaultOpenAIVoice
	}

	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
		logger: logger,
	}, nil
}

// Name implements repositories.TextToSpeech
func (o *OpenAITTS) Name() string {
	return ProviderOpenAI
}

// ConvertTextToSpeech requests mp3 audio; the MIME type is always audio/mpeg
func (o *OpenAITTS) ConvertTextToSpeech(ctx context.Context, text string) (*entities.SpeechClip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	o.logger.Info("Received audio from OpenAI",
		zap.String("model", string(o.model)),
		zap.Int("size", len(audio)))

	return &entities.SpeechClip{
		Audio:    audio,
		MIMEType: defaultAudioMIME,
		Provider: ProviderOpenAI,
	}, nil
}
