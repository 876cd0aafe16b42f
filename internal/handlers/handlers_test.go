package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"classifier-agent/internal/domain"
)

func TestBaseMetadata(t *testing.T) {
	md := baseMetadata(domain.TurnContext{
		Subject:  domain.SubjectChemistry,
		Language: domain.LanguageHinglish,
	})
	require.Equal(t, "Hinglish", md["language"])
	require.Equal(t, "Chemistry", md["subject"])

	md = baseMetadata(domain.TurnContext{Language: domain.LanguageEnglish})
	require.NotContains(t, md, "subject")
}

func TestConversation_LanguageMatchedReply(t *testing.T) {
	h := NewConversation()

	result, err := h.Handle(context.Background(), "hello", domain.TurnContext{Language: domain.LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, result.Status)
	require.Contains(t, result.Message, "Hello")

	result, err = h.Handle(context.Background(), "namaste", domain.TurnContext{Language: domain.LanguageHindi})
	require.NoError(t, err)
	require.Contains(t, result.Message, "Namaste")
}

func TestExam_SubCategoryRouting(t *testing.T) {
	h := NewExam()

	cases := []struct {
		sub      domain.SubCategory
		resource string
	}{
		{domain.SubPYQPDF, "pyq_pdf"},
		{domain.SubAskingPYQQuestion, "pyq_practice"},
		{domain.SubAskingTest, "mock_test"},
		{domain.SubAskingImportantQuestion, "important_questions"},
		{domain.SubFAQ, "exam_faq"},
		{"", "exam_faq"},
	}
	for _, tc := range cases {
		result, err := h.Handle(context.Background(), "exam query", domain.TurnContext{
			Classification:    domain.CategoryExamInfo,
			SubClassification: tc.sub,
			Language:          domain.LanguageEnglish,
		})
		require.NoError(t, err)
		require.Equal(t, tc.resource, result.Data["resource"], "sub %q", tc.sub)
		require.NotEmpty(t, result.Message)
		if tc.sub != "" {
			require.Equal(t, string(tc.sub), result.Data["sub_classification"])
		} else {
			require.NotContains(t, result.Data, "sub_classification")
		}
	}
}

func TestComplaint_OpensEscalation(t *testing.T) {
	h := NewComplaint()

	result, err := h.Handle(context.Background(), "app keeps crashing", domain.TurnContext{
		Classification: domain.CategoryComplaint,
		Language:       domain.LanguageEnglish,
	})
	require.NoError(t, err)
	require.True(t, result.OpenEscalation)
	require.Equal(t, "complaint", result.Data["type"])
}

func TestDefault_OpensEscalationWithCategory(t *testing.T) {
	h := NewDefault()

	result, err := h.Handle(context.Background(), "anything", domain.TurnContext{
		Classification: domain.CategoryGuidance,
		Language:       domain.LanguageEnglish,
	})
	require.NoError(t, err)
	require.True(t, result.OpenEscalation)
	require.Equal(t, "guidance_based", result.Data["category"])
}

func TestRemainingHandlersSucceed(t *testing.T) {
	turn := domain.TurnContext{Language: domain.LanguageEnglish, Subject: domain.SubjectBiology}
	handlers := []interface {
		Handle(ctx context.Context, message string, turn domain.TurnContext) (domain.HandlerResult, error)
	}{
		NewSubject(),
		NewGuidance(),
		NewApp(),
	}
	for _, h := range handlers {
		result, err := h.Handle(context.Background(), "some message", turn)
		require.NoError(t, err)
		require.Equal(t, domain.StatusSuccess, result.Status)
		require.NotEmpty(t, result.Message)
		require.Equal(t, "English", result.Metadata["language"])
	}
}
