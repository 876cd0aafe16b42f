package handlers

import (
	"context"

	"classifier-agent/internal/domain"
)

// Exam handles exam-information queries, keyed on the sub-category when
// one was assigned.
type Exam struct{}

func NewExam() *Exam {
	return &Exam{}
}

func (h *Exam) Handle(_ context.Context, _ string, turn domain.TurnContext) (domain.HandlerResult, error) {
	var message string
	data := map[string]any{"type": "exam_info"}

	switch turn.SubClassification {
	case domain.SubPYQPDF:
		message = "Previous-year question papers are available in the app under Study Material > PYQ Papers."
		data["resource"] = "pyq_pdf"
	case domain.SubAskingPYQQuestion:
		message = "Let's practice previous-year questions. Open Practice > PYQ in the app to get started."
		data["resource"] = "pyq_practice"
	case domain.SubAskingTest:
		message = "You can take a mock test from the Tests section of the app."
		data["resource"] = "mock_test"
	case domain.SubAskingImportantQuestion:
		message = "Important and expected questions for your subject are in Study Material > Important Questions."
		data["resource"] = "important_questions"
	default:
		// FAQ and unclassified exam queries share the general answer path.
		message = "Board exam dates, pattern and syllabus details are published in the app's Exam Info section."
		data["resource"] = "exam_faq"
	}

	if turn.SubClassification != "" {
		data["sub_classification"] = string(turn.SubClassification)
	}
	return successResult(message, data, turn), nil
}
