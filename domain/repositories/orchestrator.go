package repositories

import (
	"context"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
)

// Orchestrator sends an utterance to the external dialogue service.
// Network-observable failures are encoded in the reply, never returned as errors.
type Orchestrator interface {
	Converse(ctx context.Context, utterance string, caller entities.OrchestratorContext, session entities.SessionHandle) *entities.OrchestratorReply
}

// ReplyExtractor finds the human-readable reply inside the service's payload
type ReplyExtractor interface {
	ExtractReplyText(raw []byte) (string, bool)
}
