package domain

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatUsage reports token consumption for a completion call.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletion is the result of a language-model call.
type ChatCompletion struct {
	Content      string    `json:"content"`
	Model        string    `json:"model"`
	Usage        ChatUsage `json:"usage"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

// ChatResponse is a completed chat turn, annotated with the retrieval
// context that grounded it.
type ChatResponse struct {
	Content     string   `json:"content"`
	Model       string   `json:"model"`
	Sources     []string `json:"sources"`
	ContextUsed bool     `json:"context_used"`
}
