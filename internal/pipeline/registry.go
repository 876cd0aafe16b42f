package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classifier-agent/internal/domain"
)

// CategoryHandler produces the response body for one primary category.
// Handlers are free to call further external services; only the
// input/output contract matters here.
type CategoryHandler interface {
	Handle(ctx context.Context, message string, turn domain.TurnContext) (domain.HandlerResult, error)
}

// Registry is a static, immutable category-to-handler mapping built at
// process start. Unregistered categories fall back to the default handler,
// so Dispatch is total over the category set.
type Registry struct {
	handlers map[domain.Category]CategoryHandler
	fallback CategoryHandler
	logger   *slog.Logger
}

// NewRegistry builds a Registry from the given mapping. The fallback
// handler is required; the mapping is copied and never mutated afterwards.
func NewRegistry(handlers map[domain.Category]CategoryHandler, fallback CategoryHandler, logger *slog.Logger) (*Registry, error) {
	if fallback == nil {
		return nil, errors.New("pipeline: fallback handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	copied := make(map[domain.Category]CategoryHandler, len(handlers))
	for cat, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("pipeline: nil handler for category %q", cat)
		}
		copied[cat] = h
	}
	return &Registry{handlers: copied, fallback: fallback, logger: logger}, nil
}

// Dispatch routes the message to the handler for its category. It never
// fails past this boundary: a missing mapping uses the fallback handler,
// and a handler error or panic is converted into an error-status result.
func (r *Registry) Dispatch(ctx context.Context, message string, turn domain.TurnContext) domain.HandlerResult {
	h, ok := r.handlers[turn.Classification]
	if !ok {
		r.logger.Warn("no handler registered for category, using fallback",
			"category", string(turn.Classification))
		h = r.fallback
	}

	result, err := safeHandle(ctx, h, message, turn)
	if err != nil {
		r.logger.Error("handler failed",
			"category", string(turn.Classification), "err", err)
		return domain.HandlerResult{
			Status:  domain.StatusError,
			Message: fmt.Sprintf("handler failed: %v", err),
		}
	}
	return result
}

func safeHandle(ctx context.Context, h CategoryHandler, message string, turn domain.TurnContext) (result domain.HandlerResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h.Handle(ctx, message, turn)
}
