package api

import (
	"github.com/goccy/go-json"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

// Error markers returned in the "error" field
const (
	ErrorNoAudio            = "no audio"
	ErrorEmptyFilename      = "empty filename"
	ErrorEmptyTranscription = "empty transcription"
	ErrorOrchestratorCall   = "orchestrator_call_failed"
	ErrorAudioStagingFailed = "audio_staging_failed"
)

const (
	formFieldAudio     = "audio"
	formFieldSessionID = "session_id"
)

// VoiceResponse is the payload of a completed voice turn.
// Pointer fields are null when the value is absent.
type VoiceResponse struct {
	UserText                string          `json:"user_text"`
	ReplyText               string          `json:"reply_text"`
	AudioBase64             *string         `json:"audio_base64"`
	AudioMIME               *string         `json:"audio_mime"`
	TTSProvider             *string         `json:"tts_provider"`
	STTProvider             *string         `json:"stt_provider"`
	UserID                  string          `json:"user_id"`
	SessionID               string          `json:"session_id"`
	RawOrchestratorResponse json.RawMessage `json:"raw_orchestrator_response"`
}

// EmptyTranscriptionResponse is returned with 200 when no text was recognized
type EmptyTranscriptionResponse struct {
	Error       string  `json:"error"`
	STTProvider *string `json:"stt_provider"`
}

// OrchestratorFailureResponse is returned with 502 on a hard orchestrator failure
type OrchestratorFailureResponse struct {
	Error       string                        `json:"error"`
	Details     *entities.OrchestratorFailure `json:"details"`
	STTProvider *string                       `json:"stt_provider"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reports liveness and the configured provider order
type HealthResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	STTProviders []string `json:"stt_providers,omitempty"`
	TTSProviders []string `json:"tts_providers,omitempty"`
}

// nullable maps "" to JSON null
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
