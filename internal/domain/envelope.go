package domain

// Handler result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HandlerResult is the body a category handler produces for a dispatched
// message.
type HandlerResult struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	OpenEscalation bool           `json:"open_escalation"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TurnContext is the read-only classification state handed to category
// handlers alongside the working message.
type TurnContext struct {
	Classification    Category
	SubClassification SubCategory
	Subject           Subject
	Language          Language
	OriginalMessage   string
	TranslatedMessage string
	UserKey           string
	IsFollowUp        bool
}

// Envelope is the uniform response returned to the caller regardless of
// which stage terminated the pipeline.
type Envelope struct {
	RequestID         string        `json:"request_id"`
	Classification    Category      `json:"classification"`
	SubClassification SubCategory   `json:"sub_classification,omitempty"`
	Subject           Subject       `json:"subject,omitempty"`
	Language          Language      `json:"language"`
	OriginalMessage   string        `json:"original_message"`
	TranslatedMessage string        `json:"translated_message,omitempty"`
	ConfidenceScore   float64       `json:"confidence_score"`
	ResponseData      HandlerResult `json:"response_data"`
	ProcessingTimeMS  float64       `json:"processing_time_ms"`
}
