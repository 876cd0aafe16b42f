package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// Guidance handles study-planning and motivation queries.
type Guidance struct{}

func NewGuidance() *Guidance {
	return &Guidance{}
}

func (h *Guidance) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	message := "Consistency beats cramming: pick one chapter a day, revise yesterday's notes first, and attempt a short test every week. Tell me your subject and I'll suggest where to start."
	return successResult(message, map[string]any{"type": "guidance"}, turn), nil
}
