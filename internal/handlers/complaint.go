package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// Complaint acknowledges a reported problem and flags the conversation for
// human handoff.
type Complaint struct{}

func NewComplaint() *Complaint {
	return &Complaint{}
}

func (h *Complaint) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	result := successResult(
		"Sorry you're facing trouble. Your issue has been noted and our support team will follow up with you.",
		map[string]any{
			"type":            "complaint",
			"support_contact": "Available in the app",
		},
		turn,
	)
	result.OpenEscalation = true
	return result, nil
}
