package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"classifier-agent/internal/domain"
	"classifier-agent/internal/integrations/openai"
)

const (
	temperatureDeterministic = 0.0
	temperatureFollowUp      = 0.3
)

// ChatClient is the chat-completion capability the oracle is built on.
// *openai.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, temperature float64, schema *openai.ResponseSchema) (string, error)
}

// ParamGetter supplies configuration parameters (the model name) from SSM.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client answers the semantic judgments the pipeline delegates: follow-up
// detection, subject/language detection, translation, and the two
// classification steps. Each operation is a single chat round-trip with a
// strict JSON output contract.
type Client struct {
	chat        ChatClient
	params      ParamGetter
	paramPrefix string

	modelOnce sync.Once
	model     string
	modelErr  error
}

// New creates an oracle Client. The model name is fetched from SSM on the
// first call and cached for the process lifetime.
func New(chat ChatClient, params ParamGetter, paramPrefix string) (*Client, error) {
	if chat == nil {
		return nil, errors.New("oracle: chat client must not be nil")
	}
	if params == nil {
		return nil, errors.New("oracle: param getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("oracle: parameter prefix must not be empty")
	}
	return &Client{chat: chat, params: params, paramPrefix: paramPrefix}, nil
}

func (c *Client) resolveModel(ctx context.Context) (string, error) {
	c.modelOnce.Do(func() {
		c.model, c.modelErr = c.params.GetParameter(ctx, c.paramPrefix+"/config/openai_model")
		if c.modelErr == nil && strings.TrimSpace(c.model) == "" {
			c.modelErr = errors.New("oracle: model parameter is empty")
		}
	})
	return c.model, c.modelErr
}

type followUpPayload struct {
	IsFollowUp      bool   `json:"is_follow_up"`
	EnrichedMessage string `json:"enriched_message"`
	ShouldStop      bool   `json:"should_stop"`
}

// DetectFollowUp decides whether message continues the given history, and
// if so rewrites it to stand alone. It also detects a request to end the
// conversation, which takes priority over everything else.
func (c *Client) DetectFollowUp(ctx context.Context, message string, history []domain.ConversationRecord) (domain.FollowUpResult, error) {
	model, err := c.resolveModel(ctx)
	if err != nil {
		return domain.FollowUpResult{}, err
	}

	raw, err := c.chat.Chat(ctx, model, []domain.ChatMessage{
		{Role: "system", Content: followUpSystemPrompt},
		{Role: "user", Content: followUpUserPrompt(message, history)},
	}, temperatureFollowUp, followUpSchema())
	if err != nil {
		return domain.FollowUpResult{}, fmt.Errorf("oracle: follow-up detection: %w", err)
	}

	var payload followUpPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return domain.FollowUpResult{}, fmt.Errorf("oracle: follow-up detection: %w", err)
	}

	out := domain.FollowUpResult{
		IsFollowUp: payload.IsFollowUp,
		ShouldStop: payload.ShouldStop,
	}
	if payload.IsFollowUp {
		out.EnrichedMessage = strings.TrimSpace(payload.EnrichedMessage)
	}
	return out, nil
}

type detectionPayload struct {
	Subject  string `json:"subject"`
	Language string `json:"language"`
}

// DetectSubjectLanguage detects the academic subject (optional) and the
// language (required) of a message.
func (c *Client) DetectSubjectLanguage(ctx context.Context, message string) (domain.Detection, error) {
	model, err := c.resolveModel(ctx)
	if err != nil {
		return domain.Detection{}, err
	}

	raw, err := c.chat.Chat(ctx, model, []domain.ChatMessage{
		{Role: "system", Content: detectionSystemPrompt},
		{Role: "user", Content: message},
	}, temperatureDeterministic, detectionSchema())
	if err != nil {
		return domain.Detection{}, fmt.Errorf("oracle: subject/language detection: %w", err)
	}

	var payload detectionPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return domain.Detection{}, fmt.Errorf("oracle: subject/language detection: %w", err)
	}

	subject, err := domain.ParseSubject(normalizeNone(payload.Subject))
	if err != nil {
		return domain.Detection{}, fmt.Errorf("oracle: subject/language detection: %w", err)
	}
	language, err := domain.ParseLanguage(payload.Language)
	if err != nil {
		return domain.Detection{}, fmt.Errorf("oracle: subject/language detection: %w", err)
	}
	return domain.Detection{Subject: subject, Language: language}, nil
}

type translationPayload struct {
	Translation string `json:"translation"`
}

// Translate renders message into the target language, preserving intent
// and technical terms.
func (c *Client) Translate(ctx context.Context, message string, target domain.Language) (string, error) {
	model, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	raw, err := c.chat.Chat(ctx, model, []domain.ChatMessage{
		{Role: "system", Content: translationSystemPrompt(target)},
		{Role: "user", Content: message},
	}, temperatureDeterministic, translationSchema())
	if err != nil {
		return "", fmt.Errorf("oracle: translation: %w", err)
	}

	var payload translationPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return "", fmt.Errorf("oracle: translation: %w", err)
	}
	translated := strings.TrimSpace(payload.Translation)
	if translated == "" {
		return "", errors.New("oracle: translation: empty translation")
	}
	return translated, nil
}

type categoryPayload struct {
	Category string `json:"category"`
}

// ClassifyPrimary assigns one label from the closed primary category set.
func (c *Client) ClassifyPrimary(ctx context.Context, message string) (domain.Category, error) {
	model, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	raw, err := c.chat.Chat(ctx, model, []domain.ChatMessage{
		{Role: "system", Content: primarySystemPrompt},
		{Role: "user", Content: message},
	}, temperatureDeterministic, primarySchema())
	if err != nil {
		return "", fmt.Errorf("oracle: primary classification: %w", err)
	}

	var payload categoryPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return "", fmt.Errorf("oracle: primary classification: %w", err)
	}
	category, err := domain.ParseCategory(payload.Category)
	if err != nil {
		return "", fmt.Errorf("oracle: primary classification: %w", err)
	}
	return category, nil
}

type subCategoryPayload struct {
	SubCategory string `json:"sub_category"`
}

// ClassifySub assigns a label from the sub-taxonomy of a sub-typed primary
// category.
func (c *Client) ClassifySub(ctx context.Context, message string, primary domain.Category) (domain.SubCategory, error) {
	if !primary.SubTyped() {
		return "", fmt.Errorf("oracle: category %q has no sub-taxonomy", primary)
	}
	model, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	raw, err := c.chat.Chat(ctx, model, []domain.ChatMessage{
		{Role: "system", Content: subSystemPrompt},
		{Role: "user", Content: message},
	}, temperatureDeterministic, subSchema())
	if err != nil {
		return "", fmt.Errorf("oracle: sub-classification: %w", err)
	}

	var payload subCategoryPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return "", fmt.Errorf("oracle: sub-classification: %w", err)
	}
	sub, err := domain.ParseSubCategory(payload.SubCategory)
	if err != nil {
		return "", fmt.Errorf("oracle: sub-classification: %w", err)
	}
	return sub, nil
}

// normalizeNone maps the model's "no subject" spellings to the empty tag.
func normalizeNone(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null":
		return ""
	}
	return strings.TrimSpace(s)
}

// decodeStrict decodes exactly one JSON value into v, rejecting unknown
// fields and trailing data.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("decode payload: multiple JSON values")
		}
		return fmt.Errorf("decode payload trailing data: %w", err)
	}
	return nil
}
