package handlers

import (
	"context"
	"fmt"

	"classifier-agent/internal/domain"
)

// Subject handles academic doubts by pointing at the matching subject
// content.
type Subject struct{}

func NewSubject() *Subject {
	return &Subject{}
}

func (h *Subject) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	message := "You'll find lectures and notes for this topic in the app's subject library."
	if turn.Subject != "" {
		message = fmt.Sprintf("You'll find %s lectures and notes for this topic in the app's subject library.", turn.Subject)
	}
	data := map[string]any{"type": "subject_doubt"}
	if turn.Subject != "" {
		data["subject"] = string(turn.Subject)
	}
	return successResult(message, data, turn), nil
}
