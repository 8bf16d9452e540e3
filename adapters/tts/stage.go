// Package tts renders reply text as audio using an ordered list of speech
// synthesis providers.
package tts

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
	"github.com/wbernardo-star/listen-client-mobile/internal/fallback"
)

// Stage runs the configured providers in order
type Stage struct {
	chain  *fallback.Chain[string, *entities.SpeechClip]
	logger *zap.Logger
}

var _ repositories.SynthesisStage = (*Stage)(nil)

// NewStage builds the synthesis stage. Order of providers is order of attempts.
func NewStage(logger *zap.Logger, providers ...repositories.TextToSpeech) (*Stage, error) {
	links := make([]fallback.Provider[string, *entities.SpeechClip], 0, len(providers))
	for _, p := range providers {
		links = append(links, fallback.Provider[string, *entities.SpeechClip]{
			Name: p.Name(),
			Call: func(ctx context.Context, text string) (*entities.SpeechClip, error) {
				clip, err := p.ConvertTextToSpeech(ctx, text)
				if err != nil {
					return nil, err
				}
				if clip == nil || len(clip.Audio) == 0 {
					return nil, ErrEmptyAudio
				}
				if clip.Provider == "" {
					clip.Provider = p.Name()
				}
				return clip, nil
			},
		})
	}

	chain, err := fallback.NewChain("tts", logger, links...)
	if err != nil {
		return nil, err
	}

	return &Stage{chain: chain, logger: logger}, nil
}

// Providers returns provider names in attempt order
func (s *Stage) Providers() []string {
	return s.chain.Names()
}

// Synthesize returns audio for text, or nil when text is empty or every provider failed
func (s *Stage) Synthesize(ctx context.Context, text string) *entities.SpeechClip {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	result, err := s.chain.Run(ctx, text)
	if err != nil {
		s.logger.Error("All text-to-speech providers failed", zap.Error(err))
		return nil
	}

	return result.Value
}
