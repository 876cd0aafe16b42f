package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"classifier-agent/internal/domain"
	"classifier-agent/internal/pipeline"
)

// Classifier is the single inbound operation this adapter exposes.
type Classifier interface {
	Classify(ctx context.Context, message string, userKey *string) (domain.Envelope, error)
}

// Handler adapts API Gateway proxy events to the classify operation.
type Handler struct {
	classifier Classifier
}

func NewHandler(c Classifier) (*Handler, error) {
	if c == nil {
		return nil, errors.New("handler: classifier must not be nil")
	}
	return &Handler{classifier: c}, nil
}

type classifyRequest struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Handle processes one classify request. Hard pipeline failures map to
// error statuses; everything the pipeline resolved internally comes back
// as a 200 envelope.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	var req classifyRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(pipeline.ErrorInvalidInput)}), nil
	}
	if strings.TrimSpace(req.Message) == "" {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(pipeline.ErrorInvalidInput)}), nil
	}

	var userKey *string
	if key := strings.TrimSpace(req.PhoneNumber); key != "" {
		userKey = &key
	}

	env, err := h.classifier.Classify(ctx, req.Message, userKey)
	if err != nil {
		status, body := mapError(err)
		slog.Error("classification failed", "correlationID", corrID, "stage", body.Stage, "err", err)
		return jsonResponse(status, corrID, body), nil
	}

	return jsonResponse(http.StatusOK, corrID, env), nil
}

func mapError(err error) (int, errorResponse) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError, errorResponse{Error: string(pipeline.ErrorInternal)}
	}
	body := errorResponse{Error: string(perr.Code), Stage: perr.Stage}
	switch perr.Code {
	case pipeline.ErrorInvalidInput:
		return http.StatusBadRequest, body
	case pipeline.ErrorUpstream:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func jsonResponse(status int, corrID string, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		// Marshalling our own response types cannot realistically fail;
		// fall back to a bare error body.
		status = http.StatusInternalServerError
		encoded = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": corrID,
		},
		Body: string(encoded),
	}
}

// correlationID reuses a caller-provided id (case-insensitive header
// lookup, as API Gateway forwards headers verbatim) or mints one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}
