package orchestrator

import (
	"context"
	"sync"

	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// MockCall records one Converse invocation
type MockCall struct {
	Utterance string
	Caller    entities.OrchestratorContext
	Session   entities.SessionHandle
}

// Mock implements repositories.Orchestrator for testing
type Mock struct {
	// ConverseFunc is called when Converse is invoked.
	// If nil, replies with {"reply":{"reply_text":"You said: <utterance>"}}.
	ConverseFunc func(ctx context.Context, utterance string) *entities.OrchestratorReply

	mu    sync.Mutex
	calls []MockCall
}

var _ repositories.Orchestrator = (*Mock)(nil)

// Converse implements repositories.Orchestrator
func (m *Mock) Converse(ctx context.Context, utterance string, caller entities.OrchestratorContext, session entities.SessionHandle) *entities.OrchestratorReply {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Utterance: utterance, Caller: caller, Session: session})
	m.mu.Unlock()

	if m.ConverseFunc != nil {
		return m.ConverseFunc(ctx, utterance)
	}
	return JSONReply(`{"reply":{"reply_text":"You said: ` + utterance + `"}}`)
}

// Calls returns all recorded invocations
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// JSONReply is a successful reply carrying raw
func JSONReply(raw string) *entities.OrchestratorReply {
	return &entities.OrchestratorReply{StatusCode: 200, Raw: []byte(raw)}
}

// FailedReply is an error-shaped reply as Client would produce it
func FailedReply(marker string, status int, body string) *entities.OrchestratorReply {
	return (&Client{}).fail(marker, status, body)
}
