package domain

// ConversationRecord is one persisted conversation turn. Records are
// immutable once written; the (UserKey, TurnTimestamp) pair is the unique
// identity and TurnTimestamp orders a user's turns.
type ConversationRecord struct {
	UserKey         string
	TurnTimestamp   int64 // ms since epoch
	RequestText     string
	ResponseText    string
	PrimaryCategory Category
	SubCategory     SubCategory // empty when no sub-classification applies
	SubjectTag      Subject     // empty when no subject was detected
	LanguageTag     Language
	IsFollowUp      bool
	ExpireAt        int64 // unix seconds; eligible for deletion afterwards
}

// FollowUpResult is the outcome of follow-up detection on a message with
// prior history.
type FollowUpResult struct {
	IsFollowUp      bool
	EnrichedMessage string // standalone rewrite, set only when IsFollowUp
	ShouldStop      bool   // user asked to end the conversation
}

// Detection is the outcome of subject and language detection.
type Detection struct {
	Subject  Subject // optional
	Language Language
}
