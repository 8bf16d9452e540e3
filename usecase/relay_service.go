package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
	"github.com/wbernardo-star/listen-client-mobile/internal/pipeline"
	"github.com/wbernardo-star/listen-client-mobile/internal/staging"
)

// ErrAudioStaging is returned when the upload could not be written to disk
var ErrAudioStaging = errors.New("relay: audio staging failed")

// Outcome says how a relay run ended
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeEmptyTranscript    Outcome = "empty_transcript"
	OutcomeOrchestratorFailed Outcome = "orchestrator_failed"
)

// CallerProfile is the static part of the orchestrator context
type CallerProfile struct {
	Channel   string
	Locale    string
	Tenant    string
	ClientApp string
}

// RelayRequest is one inbound voice turn
type RelayRequest struct {
	RequestID string
	Upload    staging.Upload
	Session   entities.SessionHandle
}

// RelayResult carries everything the handler needs to shape the response
type RelayResult struct {
	Outcome    Outcome
	Session    entities.SessionHandle
	Transcript entities.Transcript
	Reply      *entities.OrchestratorReply
	ReplyText  string
	Speech     *entities.SpeechClip
	Trace      pipeline.Trace
}

// RelayService sequences transcription, orchestration and synthesis for one request
type RelayService struct {
	runner *pipeline.Runner[*relayRun]
	logger *zap.Logger
}

// NewRelayService creates a new relay service
func NewRelayService(
	stager *staging.Stager,
	stt repositories.TranscriptionStage,
	orchestrator repositories.Orchestrator,
	extractor repositories.ReplyExtractor,
	tts repositories.SynthesisStage,
	caller CallerProfile,
	logger *zap.Logger,
) *RelayService {
	return &RelayService{
		runner: pipeline.NewRunner[*relayRun]("voice_relay", logger,
			&transcribeStep{stager: stager, stt: stt, logger: logger},
			&orchestrateStep{orchestrator: orchestrator, caller: caller, logger: logger},
			&extractReplyStep{extractor: extractor},
			&synthesizeStep{tts: tts, logger: logger},
		),
		logger: logger,
	}
}

// Steps returns the relay step ids in execution order
func (s *RelayService) Steps() []pipeline.StepID {
	return s.runner.StepIDs()
}

// Process runs one voice turn. The only error is ErrAudioStaging; every
// provider and orchestrator failure is reported through the result.
func (s *RelayService) Process(ctx context.Context, req RelayRequest) (*RelayResult, error) {
	run := &relayRun{
		upload:  req.Upload,
		session: req.Session,
	}

	s.logger.Info("Processing voice turn",
		zap.String("requestID", req.RequestID),
		zap.String("userID", req.Session.UserID),
		zap.String("sessionID", req.Session.SessionID),
		zap.String("filename", req.Upload.Filename))

	trace, err := s.runner.Run(ctx, req.RequestID, run)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioStaging, err)
	}

	outcome := OutcomeCompleted
	switch {
	case run.transcript.Empty():
		outcome = OutcomeEmptyTranscript
	case run.reply != nil && run.reply.Failure.Hard():
		outcome = OutcomeOrchestratorFailed
	}

	s.logger.Info("Voice turn finished",
		zap.String("requestID", req.RequestID),
		zap.String("outcome", string(outcome)),
		zap.String("sttProvider", run.transcript.Provider),
		zap.Bool("hasAudio", run.speech != nil),
		zap.Duration("elapsed", trace.CompletedAt.Sub(trace.StartedAt)))

	return &RelayResult{
		Outcome:    outcome,
		Session:    run.session,
		Transcript: run.transcript,
		Reply:      run.reply,
		ReplyText:  run.replyText,
		Speech:     run.speech,
		Trace:      trace,
	}, nil
}
