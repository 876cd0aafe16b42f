package domain

// ChatMessage is the provider-agnostic chat message shape passed to the
// LLM integration. Role follows the OpenAI convention ("system", "user",
// "assistant").
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
