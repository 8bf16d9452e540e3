package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// MockSpeechToText is a scriptable provider for tests and local runs
type MockSpeechToText struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// TranscribeFunc is called when TranscribeAudio is invoked.
	// If nil, the transcript depends on the clip size.
	TranscribeFunc func(ctx context.Context, clip entities.AudioClip) (string, error)

	logger *zap.Logger

	mu    sync.Mutex
	clips []entities.AudioClip
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// Name implements repositories.SpeechToText
func (s *MockSpeechToText) Name() string {
	if s.ProviderName == "" {
		return "mock"
	}
	return s.ProviderName
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, clip entities.AudioClip) (string, error) {
	s.mu.Lock()
	s.clips = append(s.clips, clip)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Processing speech-to-text",
			zap.Int64("audioSize", clip.Size),
			zap.String("mimeType", clip.MIMEType))
	}

	if s.TranscribeFunc != nil {
		return s.TranscribeFunc(ctx, clip)
	}

	// Mock transcription based on audio size
	switch {
	case clip.Size > 10000:
		return "Hello, I would like to check the status of my order.", nil
	case clip.Size > 1000:
		return "Hello there!", nil
	case clip.Size > 0:
		return "Hi", nil
	default:
		return "", ErrEmptyTranscript
	}
}

// Clips returns the clips passed to TranscribeAudio, in call order
func (s *MockSpeechToText) Clips() []entities.AudioClip {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]entities.AudioClip, len(s.clips))
	copy(result, s.clips)
	return result
}

// CallCount returns how many times TranscribeAudio was called
func (s *MockSpeechToText) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}
