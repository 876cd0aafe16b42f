package domain

import "fmt"

// Category is the top-level classification label assigned to one message.
type Category string

const (
	CategorySubject      Category = "subject_related"
	CategoryApp          Category = "app_related"
	CategoryComplaint    Category = "complaint"
	CategoryGuidance     Category = "guidance_based"
	CategoryConversation Category = "conversation_based"
	CategoryExamInfo     Category = "exam_related_info"
)

// Categories lists every valid primary category.
func Categories() []Category {
	return []Category{
		CategorySubject,
		CategoryApp,
		CategoryComplaint,
		CategoryGuidance,
		CategoryConversation,
		CategoryExamInfo,
	}
}

// SubTyped reports whether the category carries a secondary taxonomy.
func (c Category) SubTyped() bool {
	return c == CategoryExamInfo
}

// ParseCategory validates a raw label against the closed category set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if s == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("domain: unknown category %q", s)
}

// SubCategory is the finer label assigned within sub-typed categories.
type SubCategory string

const (
	SubFAQ                     SubCategory = "faq"
	SubPYQPDF                  SubCategory = "pyq_pdf"
	SubAskingPYQQuestion       SubCategory = "asking_PYQ_question"
	SubAskingTest              SubCategory = "asking_test"
	SubAskingImportantQuestion SubCategory = "asking_important_question"

	// SubStopConversation only appears on the early-exit envelope; it is
	// never returned by sub-classification.
	SubStopConversation SubCategory = "stop_conversation"
)

// ParseSubCategory validates a raw label against the exam sub-taxonomy.
func ParseSubCategory(s string) (SubCategory, error) {
	switch SubCategory(s) {
	case SubFAQ, SubPYQPDF, SubAskingPYQQuestion, SubAskingTest, SubAskingImportantQuestion:
		return SubCategory(s), nil
	}
	return "", fmt.Errorf("domain: unknown sub-category %q", s)
}

// Subject is an academic subject tag.
type Subject string

const (
	SubjectPhysics     Subject = "Physics"
	SubjectChemistry   Subject = "Chemistry"
	SubjectMathematics Subject = "Mathematics"
	SubjectBiology     Subject = "Biology"
)

// ParseSubject validates a subject tag; the empty string is valid and means
// no subject was detected.
func ParseSubject(s string) (Subject, error) {
	switch Subject(s) {
	case "", SubjectPhysics, SubjectChemistry, SubjectMathematics, SubjectBiology:
		return Subject(s), nil
	}
	return "", fmt.Errorf("domain: unknown subject %q", s)
}

// Language is a detected message language.
type Language string

const (
	LanguageEnglish  Language = "English"
	LanguageHindi    Language = "Hindi"
	LanguageHinglish Language = "Hinglish"
)

// CanonicalLanguage is the working language every downstream classifier
// expects.
const CanonicalLanguage = LanguageEnglish

// NeedsTranslation reports whether a message in this language must be
// translated into the canonical language before classification.
func (l Language) NeedsTranslation() bool {
	return l == LanguageHindi || l == LanguageHinglish
}

// ParseLanguage validates a raw language tag.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageEnglish, LanguageHindi, LanguageHinglish:
		return Language(s), nil
	}
	return "", fmt.Errorf("domain: unknown language %q", s)
}
