// Package handlers contains the per-category response generators the
// pipeline dispatches to. Each handler is specified only by its
// input/output contract; bodies here are local templates, and individual
// handlers are free to grow external calls behind the same interface.
package handlers

import (
	"classifier-agent/internal/domain"
)

// baseMetadata is the metadata every handler attaches: the classification
// context a downstream channel needs to render or route the reply.
func baseMetadata(turn domain.TurnContext) map[string]any {
	md := map[string]any{
		"language": string(turn.Language),
	}
	if turn.Subject != "" {
		md["subject"] = string(turn.Subject)
	}
	return md
}

func successResult(message string, data map[string]any, turn domain.TurnContext) domain.HandlerResult {
	return domain.HandlerResult{
		Status:   domain.StatusSuccess,
		Message:  message,
		Data:     data,
		Metadata: baseMetadata(turn),
	}
}
