package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// Conversation handles greetings, thanks and other social messages with a
// short language-matched reply.
type Conversation struct{}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (h *Conversation) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	message := "Hello! I'm here to help with your board exam preparation. Ask me anything about your subjects, exams or the app."
	if turn.Language == domain.LanguageHindi {
		message = "Namaste! Main aapki board exam taiyari mein madad ke liye hoon. Subjects, exams ya app ke baare mein kuch bhi poochhiye."
	}
	return successResult(message, map[string]any{"type": "conversation"}, turn), nil
}
