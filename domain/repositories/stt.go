package repositories

import (
	"context"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

// SpeechToText abstracts a single speech recognition provider
type SpeechToText interface {
	// Name identifies the provider in responses and logs
	Name() string
	// TranscribeAudio converts the staged clip to text. Empty text is an error.
	TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error)
}

// TranscriptionStage runs the STT providers in order and never fails
type TranscriptionStage interface {
	Transcribe(ctx context.Context, clip entities.AudioClip) entities.Transcript
}
