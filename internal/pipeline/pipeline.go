package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"classifier-agent/internal/domain"
)

const (
	defaultWindowDuration = 24 * time.Hour
	defaultMaxHistory     = 5
	defaultRetention      = 90 * 24 * time.Hour
	defaultCallTimeout    = 10 * time.Second
	defaultConfidence     = 0.85
	stopConfidence        = 1.0
)

// HistoryStore is the read side of the conversation store.
type HistoryStore interface {
	RecentWindow(ctx context.Context, userKey string, window time.Duration, maxCount int) ([]domain.ConversationRecord, error)
}

// Oracle answers the semantic judgments the pipeline delegates out.
type Oracle interface {
	DetectFollowUp(ctx context.Context, message string, history []domain.ConversationRecord) (domain.FollowUpResult, error)
	DetectSubjectLanguage(ctx context.Context, message string) (domain.Detection, error)
	Translate(ctx context.Context, message string, target domain.Language) (string, error)
	ClassifyPrimary(ctx context.Context, message string) (domain.Category, error)
	ClassifySub(ctx context.Context, message string, primary domain.Category) (domain.SubCategory, error)
}

// RecordWriter schedules a conversation record for persistence without
// blocking. *HistoryWriter satisfies it.
type RecordWriter interface {
	Enqueue(rec domain.ConversationRecord) bool
}

// Config carries the pipeline tunables. Zero values fall back to defaults.
type Config struct {
	WindowDuration     time.Duration
	MaxHistoryMessages int
	Retention          time.Duration
	CallTimeout        time.Duration
	HistoryEnabled     bool
	SubClassifyEnabled bool
}

func (c Config) withDefaults() Config {
	if c.WindowDuration <= 0 {
		c.WindowDuration = defaultWindowDuration
	}
	if c.MaxHistoryMessages <= 0 {
		c.MaxHistoryMessages = defaultMaxHistory
	}
	if c.Retention <= 0 {
		c.Retention = defaultRetention
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultCallTimeout
	}
	return c
}

// Pipeline sequences the classification stages for one message and owns
// the per-run state. A Pipeline is safe for concurrent use; each run's
// state is exclusively its own.
type Pipeline struct {
	oracle   Oracle
	history  HistoryStore
	writer   RecordWriter
	registry *Registry
	logger   *slog.Logger
	cfg      Config
}

// runState is the transient per-request context. It is never shared across
// runs and never persisted directly.
type runState struct {
	rawMessage     string
	workingMessage string
	userKey        string

	followUp   domain.FollowUpResult
	detected   domain.Detection
	translated string
	primary    domain.Category
	sub        domain.SubCategory

	startedAt time.Time
}

// Swapped in tests.
var (
	nowFn   = time.Now
	newUUID = func() string { return uuid.NewString() }
)

// New creates a Pipeline. history and writer may be nil only when history
// is disabled in cfg.
func New(o Oracle, history HistoryStore, writer RecordWriter, registry *Registry, logger *slog.Logger, cfg Config) (*Pipeline, error) {
	if o == nil {
		return nil, errors.New("pipeline: oracle must not be nil")
	}
	if registry == nil {
		return nil, errors.New("pipeline: registry must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if cfg.HistoryEnabled {
		if history == nil {
			return nil, errors.New("pipeline: history store required when history is enabled")
		}
		if writer == nil {
			return nil, errors.New("pipeline: record writer required when history is enabled")
		}
	}
	return &Pipeline{
		oracle:   o,
		history:  history,
		writer:   writer,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Classify runs the full stage sequence for one message and returns the
// response envelope. userKey is optional; without it history lookup and
// persistence are skipped entirely.
func (p *Pipeline) Classify(ctx context.Context, rawMessage string, userKey *string) (domain.Envelope, error) {
	message := strings.TrimSpace(rawMessage)
	if message == "" {
		return domain.Envelope{}, newError(ErrorInvalidInput, StageInput, errors.New("empty message"))
	}

	run := &runState{
		rawMessage:     message,
		workingMessage: message,
		startedAt:      nowFn(),
	}
	if userKey != nil {
		run.userKey = strings.TrimSpace(*userKey)
	}
	requestID := newUUID()

	// Stage 1: history lookup. Store trouble means no history, not failure.
	history := p.lookupHistory(ctx, run)

	// Stage 2: follow-up detection, only with non-empty history.
	if len(history) > 0 {
		result, err := p.detectFollowUp(ctx, run, history)
		switch {
		case err != nil:
			p.logger.Warn("follow-up detection failed, treating as standalone message",
				"requestID", requestID, "err", err)
		case result.ShouldStop:
			env := p.stopEnvelope(requestID, run)
			p.persist(run, env)
			return env, nil
		case result.IsFollowUp && result.EnrichedMessage != "":
			run.followUp = result
			run.workingMessage = result.EnrichedMessage
		default:
			run.followUp = result
		}
	}

	// Stage 3: subject/language detection. Fatal: everything downstream
	// depends on the language.
	detected, err := p.detect(ctx, run)
	if err != nil {
		return domain.Envelope{}, newError(ErrorUpstream, StageDetect, err)
	}
	run.detected = detected

	// Stage 4: translation into the canonical language. Failure degrades
	// to classifying the untranslated message.
	if detected.Language.NeedsTranslation() {
		translated, err := p.translate(ctx, run)
		if err != nil {
			p.logger.Warn("translation failed, continuing with untranslated message",
				"requestID", requestID, "language", string(detected.Language), "err", err)
		} else {
			run.translated = translated
			run.workingMessage = translated
		}
	}

	// Stage 5: primary classification. Fatal.
	primary, err := p.classifyPrimary(ctx, run)
	if err != nil {
		return domain.Envelope{}, newError(ErrorUpstream, StageClassify, err)
	}
	run.primary = primary

	// Stage 6: sub-classification, only for sub-typed categories. Failure
	// proceeds without a sub-label.
	if p.cfg.SubClassifyEnabled && primary.SubTyped() {
		sub, err := p.classifySub(ctx, run)
		if err != nil {
			p.logger.Warn("sub-classification failed, continuing without sub-category",
				"requestID", requestID, "category", string(primary), "err", err)
		} else {
			run.sub = sub
		}
	}

	// Stage 7: dispatch.
	result := p.dispatch(ctx, run)

	// Stage 8: envelope assembly.
	env := p.assemble(requestID, run, result)

	// Stage 9: fire-and-forget persistence.
	p.persist(run, env)

	return env, nil
}

func (p *Pipeline) lookupHistory(ctx context.Context, run *runState) []domain.ConversationRecord {
	if !p.cfg.HistoryEnabled || run.userKey == "" {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	history, err := p.history.RecentWindow(callCtx, run.userKey, p.cfg.WindowDuration, p.cfg.MaxHistoryMessages)
	if err != nil {
		p.logger.Warn("history lookup failed, proceeding without history",
			"userKey", run.userKey, "err", err)
		return nil
	}
	return history
}

func (p *Pipeline) detectFollowUp(ctx context.Context, run *runState, history []domain.ConversationRecord) (domain.FollowUpResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.oracle.DetectFollowUp(callCtx, run.workingMessage, history)
}

func (p *Pipeline) detect(ctx context.Context, run *runState) (domain.Detection, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.oracle.DetectSubjectLanguage(callCtx, run.workingMessage)
}

func (p *Pipeline) translate(ctx context.Context, run *runState) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.oracle.Translate(callCtx, run.workingMessage, domain.CanonicalLanguage)
}

func (p *Pipeline) classifyPrimary(ctx context.Context, run *runState) (domain.Category, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.oracle.ClassifyPrimary(callCtx, run.workingMessage)
}

func (p *Pipeline) classifySub(ctx context.Context, run *runState) (domain.SubCategory, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.oracle.ClassifySub(callCtx, run.workingMessage, run.primary)
}

func (p *Pipeline) dispatch(ctx context.Context, run *runState) domain.HandlerResult {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	result := p.registry.Dispatch(callCtx, run.workingMessage, domain.TurnContext{
		Classification:    run.primary,
		SubClassification: run.sub,
		Subject:           run.detected.Subject,
		Language:          run.detected.Language,
		OriginalMessage:   run.rawMessage,
		TranslatedMessage: run.translated,
		UserKey:           run.userKey,
		IsFollowUp:        run.followUp.IsFollowUp,
	})
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["is_follow_up"] = run.followUp.IsFollowUp
	result.Metadata["original_message"] = run.rawMessage
	return result
}

func (p *Pipeline) assemble(requestID string, run *runState, result domain.HandlerResult) domain.Envelope {
	return domain.Envelope{
		RequestID:         requestID,
		Classification:    run.primary,
		SubClassification: run.sub,
		Subject:           run.detected.Subject,
		Language:          run.detected.Language,
		OriginalMessage:   run.rawMessage,
		TranslatedMessage: run.translated,
		ConfidenceScore:   defaultConfidence,
		ResponseData:      result,
		ProcessingTimeMS:  elapsedMS(run.startedAt),
	}
}

// stopEnvelope is the canonical "conversation ended" response: fixed
// category, empty body, full confidence. No stage past follow-up detection
// runs on this path.
func (p *Pipeline) stopEnvelope(requestID string, run *runState) domain.Envelope {
	return domain.Envelope{
		RequestID:         requestID,
		Classification:    domain.CategoryConversation,
		SubClassification: domain.SubStopConversation,
		Language:          domain.LanguageHindi,
		OriginalMessage:   run.rawMessage,
		ConfidenceScore:   stopConfidence,
		ResponseData: domain.HandlerResult{
			Status:  domain.StatusSuccess,
			Message: "",
			Metadata: map[string]any{
				"is_follow_up":      false,
				"original_message":  run.rawMessage,
				"stop_conversation": true,
			},
		},
		ProcessingTimeMS: elapsedMS(run.startedAt),
	}
}

// persist takes an immutable snapshot of the turn and hands it to the
// bounded writer. It never blocks and its failure is invisible to the
// response path.
func (p *Pipeline) persist(run *runState, env domain.Envelope) {
	if !p.cfg.HistoryEnabled || run.userKey == "" {
		return
	}
	now := nowFn()
	p.writer.Enqueue(domain.ConversationRecord{
		UserKey:         run.userKey,
		TurnTimestamp:   now.UnixMilli(),
		RequestText:     run.rawMessage,
		ResponseText:    env.ResponseData.Message,
		PrimaryCategory: env.Classification,
		SubCategory:     env.SubClassification,
		SubjectTag:      env.Subject,
		LanguageTag:     env.Language,
		IsFollowUp:      run.followUp.IsFollowUp,
		ExpireAt:        now.Add(p.cfg.Retention).Unix(),
	})
}

func elapsedMS(start time.Time) float64 {
	return float64(nowFn().Sub(start)) / float64(time.Millisecond)
}
