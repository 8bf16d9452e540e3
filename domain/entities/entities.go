package entities

import (
	"encoding/base64"
	"strings"
)

// AudioClip represents a recorded utterance staged on disk for the STT stage
type AudioClip struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// AudioMIMEType returns the MIME hint as an audio/* type.
// Sniffers report WebM and Ogg containers as video/*, which speech APIs reject.
func (a AudioClip) AudioMIMEType() string {
	mime := a.MIMEType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))

	switch {
	case mime == "":
		return "audio/webm"
	case strings.HasPrefix(mime, "video/"):
		return "audio/" + strings.TrimPrefix(mime, "video/")
	default:
		return mime
	}
}

// Transcript is the STT stage output. An empty Provider means no backend produced text.
type Transcript struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Empty reports whether the stage produced no usable text
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// OrchestratorContext describes the caller to the dialogue service
type OrchestratorContext struct {
	Channel   string `json:"channel"`
	UserID    string `json:"user_id"`
	Locale    string `json:"locale"`
	Tenant    string `json:"tenant"`
	ClientApp string `json:"client_app"`
}

// Orchestrator failure markers
const (
	OrchestratorHTTPError      = "orchestrator_http_error"
	OrchestratorNonJSON        = "orchestrator_non_json_response"
	OrchestratorTransportError = "orchestrator_transport_error"
)

// OrchestratorFailure is the error-shaped value returned in place of a reply
type OrchestratorFailure struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// Hard reports whether the failure must abort the relay instead of degrading
func (f *OrchestratorFailure) Hard() bool {
	if f == nil {
		return false
	}
	return f.Error == OrchestratorHTTPError || f.Error == OrchestratorTransportError
}

// FallbackReplyText is spoken when the orchestrator payload carries no reply text
const FallbackReplyText = "I received your message, but I could not understand the response from the orchestrator."

// OrchestratorReply is the raw reply from the dialogue service.
// Raw always holds valid JSON: the service's body, or the encoded Failure.
type OrchestratorReply struct {
	StatusCode int
	Raw        []byte
	Failure    *OrchestratorFailure
}

// SpeechClip is the TTS stage output
type SpeechClip struct {
	Audio    []byte
	MIMEType string
	Provider string
}

// Base64 returns the audio encoded for JSON transport
func (s *SpeechClip) Base64() string {
	return base64.StdEncoding.EncodeToString(s.Audio)
}
