package tts

import (
	"context"
	"sync"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// Mock implements TextToSpeech for testing.
type Mock struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// SynthesizeFunc is called when ConvertTextToSpeech is invoked.
	// If nil, returns a few bytes of fake mp3 audio.
	SynthesizeFunc func(ctx context.Context, text string) (*entities.SpeechClip, error)

	mu    sync.Mutex
	texts []string
}

var _ repositories.TextToSpeech = (*Mock)(nil)

// NewMock creates a mock that always succeeds
func NewMock(name string) *Mock {
	return &Mock{ProviderName: name}
}

// WithError returns a mock that always fails with err
func WithError(name string, err error) *Mock {
	return &Mock{
		ProviderName: name,
		SynthesizeFunc: func(ctx context.Context, text string) (*entities.SpeechClip, error) {
			return nil, err
		},
	}
}

// Name implements repositories.TextToSpeech
func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// ConvertTextToSpeech calls SynthesizeFunc and records the text
func (m *Mock) ConvertTextToSpeech(ctx context.Context, text string) (*entities.SpeechClip, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return &entities.SpeechClip{
		Audio:    []byte("ID3mock"),
		MIMEType: defaultAudioMIME,
		Provider: m.Name(),
	}, nil
}

// Texts returns every text passed to ConvertTextToSpeech
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.texts))
	copy(result, m.texts)
	return result
}

// CallCount returns the number of synthesis calls
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}
