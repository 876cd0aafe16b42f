package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// Default is the fallback for categories with no registered handler. It
// always asks the calling channel to escalate.
type Default struct{}

func NewDefault() *Default {
	return &Default{}
}

func (h *Default) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	result := successResult(
		"I couldn't find an automated answer for this. Connecting you with someone who can help.",
		map[string]any{"type": "unhandled_category", "category": string(turn.Classification)},
		turn,
	)
	result.OpenEscalation = true
	return result, nil
}
