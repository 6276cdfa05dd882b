package flow

import (
	"context"
	"fmt"

	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
	"github.com/LukaSashic/PitchPerfect/internal/store"
)

// Engine runs the coaching and analysis flows. All collaborators are
// injected; there is no package-level state.
type Engine struct {
	client   genai.ClientInterface
	registry *phase.Registry
	durable  store.Store
	fallback store.Store
	pricing  models.ModelPricing
}

// NewEngine creates a flow engine. The client may be nil when no API
// credential is configured; flows then take their fallback paths.
func NewEngine(client genai.ClientInterface, registry *phase.Registry, durable, fallback store.Store) *Engine {
	return &Engine{
		client:   client,
		registry: registry,
		durable:  durable,
		fallback: fallback,
		pricing:  models.DefaultPricing,
	}
}

// Registry exposes the phase catalog backing this engine.
func (e *Engine) Registry() *phase.Registry {
	return e.registry
}

// Session opens a turn session for the identified caller.
func (e *Engine) Session(id models.Identity, phaseID int) *TurnSession {
	return NewTurnSession(e.durable, e.fallback, id.UserID, id.ProjectID, phaseID)
}

// complete guards against a missing model client before delegating.
func (e *Engine) complete(ctx context.Context, req genai.CompletionRequest) (*genai.CompletionResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("no model client configured: %w", models.ErrConfigurationMissing)
	}
	return e.client.Complete(ctx, req)
}
