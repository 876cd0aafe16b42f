package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// App handles questions about using the mobile app.
type App struct{}

func NewApp() *App {
	return &App{}
}

func (h *App) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	message := "Open the app's home screen: lectures, notes and tests are in the bottom navigation. If a screen isn't loading, update the app and try again."
	data := map[string]any{
		"type":   "app_navigation",
		"screen": "home",
	}
	return successResult(message, data, turn), nil
}
