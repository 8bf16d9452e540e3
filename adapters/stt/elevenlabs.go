package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// Provider names reported to the caller as stt_provider
const (
	ProviderElevenLabs    = "elevenlabs"
	ProviderOpenAIWhisper = "openai_whisper"
	ProviderGoogleSpeech  = "google_speech"
	ProviderGemini        = "gemini"
)

const (
	defaultAPIBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID    = "scribe_v1"
	defaultTimeout    = 60 * time.Second
)

// ErrEmptyTranscript is returned when a provider answers without usable text.
var ErrEmptyTranscript = errors.New("stt: empty transcript")

// ElevenLabsConfig holds configuration for the ElevenLabs Scribe adapter
// Required fields:
// - APIKey: ElevenLabs API key
// Optional fields with defaults:
// - APIBaseURL: default "https://api.elevenlabs.io/v1"
// - ModelID: default "scribe_v1"
// - Timeout: HTTP client timeout, default 60s
type ElevenLabsConfig struct {
	APIKey     string
	APIBaseURL string
	ModelID    string
	Timeout    time.Duration
}

// ElevenLabsSTT implements SpeechToText using the ElevenLabs speech-to-text API
type ElevenLabsSTT struct {
	apiKey     string
	apiBaseURL string
	modelID    string
	client     *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechToText = (*ElevenLabsSTT)(nil)

// elevenLabsTranscription is the subset of the convert response we read
type elevenLabsTranscription struct {
	Text          string `json:"text"`
	Transcription *struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// NewElevenLabsSTT creates a new ElevenLabs Scribe instance
func NewElevenLabsSTT(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsSTT, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs stt: %w", provider.ErrNoAPIKey)
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &ElevenLabsSTT{
		apiKey:     config.APIKey,
		apiBaseURL: apiBaseURL,
		modelID:    modelID,
		client:     provider.NewHTTPClient(timeout),
		logger:     logger,
	}, nil
}

// Name implements repositories.SpeechToText
func (e *ElevenLabsSTT) Name() string {
	return ProviderElevenLabs
}

// TranscribeAudio uploads the staged clip as multipart form data.
// The file is streamed from disk through a pipe rather than buffered.
func (e *ElevenLabsSTT) TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error) {
	file, err := os.Open(clip.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open staged audio: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(e.writeForm(form, file, clip))
	}()

	url := e.apiBaseURL + "/speech-to-text/convert"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Sending audio to ElevenLabs",
		zap.String("modelID", e.modelID),
		zap.String("mimeType", clip.AudioMIMEType()))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", provider.ParseAPIError(ProviderElevenLabs, resp)
	}

	var result elevenLabsTranscription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := result.Text
	if text == "" && result.Transcription != nil {
		text = result.Transcription.Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	return text, nil
}

func (e *ElevenLabsSTT) writeForm(form *multipart.Writer, file io.Reader, clip entities.AudioClip) error {
	if err := form.WriteField("model_id", e.modelID); err != nil {
		return err
	}

	filename := clip.Filename
	if filename == "" {
		filename = filepath.Base(clip.Path)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", clip.AudioMIMEType())

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}

	return form.Close()
}
