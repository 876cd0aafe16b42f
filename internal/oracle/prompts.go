package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"classifier-agent/internal/domain"
	"classifier-agent/internal/integrations/openai"
)

const followUpSystemPrompt = `You analyze a short conversation between a student and a study assistant.

Decide, in priority order:
1. STOP: the user wants to end the chat or be left alone (e.g. "bye", "stop", "don't respond", "chup hojao", "band karo", "mujhe baat nahi karni", "bas karo").
2. FOLLOW-UP: the current message depends on the previous conversation to be understood. This includes pronouns without antecedents ("that", "it", "explain more"), short continuations ("more", "yes", "how?"), and greetings that continue an ongoing study conversation ("kya padha", "kaisi chal rahi h padhai").
3. Otherwise the message stands alone.

If it is a follow-up, rewrite it so it can be understood with no history, keeping the user's intent and language.

Return JSON with is_follow_up (boolean), enriched_message (string, empty unless is_follow_up) and should_stop (boolean).`

func followUpUserPrompt(message string, history []domain.ConversationRecord) string {
	var b strings.Builder
	b.WriteString("Previous conversation (newest last):\n")
	if len(history) == 0 {
		b.WriteString("No previous conversation.\n")
	}
	// History arrives newest first; replay oldest to newest.
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		fmt.Fprintf(&b, "User: %s\nBot: %s\n", rec.RequestText, rec.ResponseText)
	}
	fmt.Fprintf(&b, "\nCurrent message: %q\n", message)
	return b.String()
}

func followUpSchema() *openai.ResponseSchema {
	return &openai.ResponseSchema{
		Name: "follow_up_check",
		Schema: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"is_follow_up":{"type":"boolean"},
				"enriched_message":{"type":"string"},
				"should_stop":{"type":"boolean"}
			},
			"required":["is_follow_up","enriched_message","should_stop"]
		}`),
	}
}

const detectionSystemPrompt = `You classify one educational query.

Subject: Physics, Chemistry, Mathematics or Biology; empty string if none applies.

Language:
- "English": pure English, or casual Hinglish where English words carry the meaning ("force kya h", "important questions dedo").
- "Hindi": Devanagari script, or Hindi academic terms written in Roman script ("vidyut dhara ke lecture chahiye").
- "Hinglish": an even code-mix where neither rule above clearly applies.

Return JSON with subject and language.`

func detectionSchema() *openai.ResponseSchema {
	return &openai.ResponseSchema{
		Name: "subject_language",
		Schema: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"subject":{"type":"string","enum":["","Physics","Chemistry","Mathematics","Biology"]},
				"language":{"type":"string","enum":["English","Hindi","Hinglish"]}
			},
			"required":["subject","language"]
		}`),
	}
}

func translationSystemPrompt(target domain.Language) string {
	return fmt.Sprintf(`Translate the student's message into %s. Preserve the intent, question form and technical/academic terms. Return JSON with a single key "translation".`, target)
}

func translationSchema() *openai.ResponseSchema {
	return &openai.ResponseSchema{
		Name: "translation",
		Schema: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"translation":{"type":"string"}
			},
			"required":["translation"]
		}`),
	}
}

const primarySystemPrompt = `You classify student queries for an exam-preparation platform into exactly one category:

- subject_related: a doubt or question about academic content.
- app_related: navigating or using the mobile app, lectures, notes, downloads.
- complaint: dissatisfaction, frustration or a reported problem.
- guidance_based: study planning, motivation, how-to-prepare advice.
- conversation_based: greetings, thanks, small talk.
- exam_related_info: board exam information, past-year papers, tests, important questions, FAQ-style exam queries.

Return JSON with a single key "category".`

func primarySchema() *openai.ResponseSchema {
	return &openai.ResponseSchema{
		Name: "primary_category",
		Schema: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"category":{"type":"string","enum":["subject_related","app_related","complaint","guidance_based","conversation_based","exam_related_info"]}
			},
			"required":["category"]
		}`),
	}
}

const subSystemPrompt = `The query is about board exam information. Pick the single best fit:

- faq: general exam questions (dates, pattern, syllabus, passing marks).
- pyq_pdf: asking for previous-year question papers as files.
- asking_PYQ_question: asking to be quizzed on previous-year questions.
- asking_test: asking to take a test or mock exam.
- asking_important_question: asking for important/expected questions.

Return JSON with a single key "sub_category".`

func subSchema() *openai.ResponseSchema {
	return &openai.ResponseSchema{
		Name: "exam_sub_category",
		Schema: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"sub_category":{"type":"string","enum":["faq","pyq_pdf","asking_PYQ_question","asking_test","asking_important_question"]}
			},
			"required":["sub_category"]
		}`),
	}
}
