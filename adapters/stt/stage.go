// Package stt turns a staged audio clip into text using an ordered list of
// speech recognition providers.
package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
	"github.com/wbernardo-star/listen-client-mobile/internal/fallback"
)

// Stage runs the configured providers in order and never fails
type Stage struct {
	chain  *fallback.Chain[entities.AudioClip, string]
	logger *zap.Logger
}

var _ repositories.TranscriptionStage = (*Stage)(nil)

// NewStage builds the transcription stage. Order of providers is order of attempts.
func NewStage(logger *zap.Logger, providers ...repositories.SpeechToText) (*Stage, error) {
	links := make([]fallback.Provider[entities.AudioClip, string], 0, len(providers))
	for _, p := range providers {
		links = append(links, fallback.Provider[entities.AudioClip, string]{
			Name: p.Name(),
			Call: p.TranscribeAudio,
		})
	}

	chain, err := fallback.NewChain("stt", logger, links...)
	if err != nil {
		return nil, err
	}

	return &Stage{chain: chain, logger: logger}, nil
}

// Providers returns provider names in attempt order
func (s *Stage) Providers() []string {
	return s.chain.Names()
}

// Transcribe returns the first non-empty transcript.
// When every provider fails the transcript is empty and has no provider.
func (s *Stage) Transcribe(ctx context.Context, clip entities.AudioClip) entities.Transcript {
	result, err := s.chain.Run(ctx, clip)
	if err != nil {
		s.logger.Error("All speech-to-text providers failed",
			zap.String("filename", clip.Filename),
			zap.Error(err))
		return entities.Transcript{}
	}

	s.logger.Info("Transcribed audio",
		zap.String("provider", result.Provider),
		zap.Int("textLength", len(result.Value)))

	return entities.Transcript{Text: result.Value, Provider: result.Provider}
}
