package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
	"github.com/wbernardo-star/listen-client-mobile/internal/pipeline"
	"github.com/wbernardo-star/listen-client-mobile/internal/staging"
)

// Step ids of the voice relay
const (
	StepTranscribe   pipeline.StepID = "transcribe"
	StepOrchestrate  pipeline.StepID = "orchestrate"
	StepExtractReply pipeline.StepID = "extract_reply"
	StepSynthesize   pipeline.StepID = "synthesize"
)

// relayRun is the state shared by the relay steps of one request
type relayRun struct {
	upload  staging.Upload
	session entities.SessionHandle

	transcript entities.Transcript
	reply      *entities.OrchestratorReply
	replyText  string
	speech     *entities.SpeechClip
}

// transcribeStep stages the upload and converts it to text.
// The staged file never outlives this step.
type transcribeStep struct {
	stager *staging.Stager
	stt    repositories.TranscriptionStage
	logger *zap.Logger
}

func (s *transcribeStep) ID() pipeline.StepID {
	return StepTranscribe
}

func (s *transcribeStep) Execute(ctx context.Context, run *relayRun) pipeline.StepResult {
	err := s.stager.WithStaged(run.upload, func(clip entities.AudioClip) error {
		run.transcript = s.stt.Transcribe(ctx, clip)
		return nil
	})
	if err != nil {
		return pipeline.Fail(err)
	}

	if run.transcript.Empty() {
		s.logger.Warn("Empty transcription", zap.String("sttProvider", run.transcript.Provider))
		return pipeline.Halt()
	}
	return pipeline.Continue()
}

// orchestrateStep forwards the transcript to the dialogue service
type orchestrateStep struct {
	orchestrator repositories.Orchestrator
	caller       CallerProfile
	logger       *zap.Logger
}

func (s *orchestrateStep) ID() pipeline.StepID {
	return StepOrchestrate
}

func (s *orchestrateStep) Execute(ctx context.Context, run *relayRun) pipeline.StepResult {
	caller := run.session.OrchestratorContext(s.caller.Channel, s.caller.Locale, s.caller.Tenant, s.caller.ClientApp)
	run.reply = s.orchestrator.Converse(ctx, run.transcript.Text, caller, run.session)

	if run.reply.Failure.Hard() {
		s.logger.Error("Orchestrator call failed",
			zap.String("error", run.reply.Failure.Error),
			zap.Int("statusCode", run.reply.Failure.StatusCode))
		return pipeline.Halt()
	}
	return pipeline.Continue()
}

// extractReplyStep finds the reply text or substitutes the apology
type extractReplyStep struct {
	extractor repositories.ReplyExtractor
}

func (s *extractReplyStep) ID() pipeline.StepID {
	return StepExtractReply
}

func (s *extractReplyStep) Execute(ctx context.Context, run *relayRun) pipeline.StepResult {
	text, ok := s.extractor.ExtractReplyText(run.reply.Raw)
	if !ok {
		text = entities.FallbackReplyText
	}
	run.replyText = text
	return pipeline.Continue()
}

// synthesizeStep renders the reply as audio; missing audio is tolerated
type synthesizeStep struct {
	tts    repositories.SynthesisStage
	logger *zap.Logger
}

func (s *synthesizeStep) ID() pipeline.StepID {
	return StepSynthesize
}

func (s *synthesizeStep) Execute(ctx context.Context, run *relayRun) pipeline.StepResult {
	run.speech = s.tts.Synthesize(ctx, run.replyText)
	if run.speech == nil {
		s.logger.Warn("Responding without audio")
	}
	return pipeline.Continue()
}
