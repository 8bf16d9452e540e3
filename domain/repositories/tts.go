package repositories

import (
	"context"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

// TextToSpeech abstracts a single speech synthesis provider
type TextToSpeech interface {
	Name() string
	ConvertTextToSpeech(ctx context.Context, text string) (*entities.SpeechClip, error)
}

// SynthesisStage runs the TTS providers in order.
// Returns nil when the text is empty or every provider failed.
type SynthesisStage interface {
	Synthesize(ctx context.Context, text string) *entities.SpeechClip
}
