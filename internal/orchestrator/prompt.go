package orchestrator

import (
	"strings"

	"github.com/longhornrumble/widget-backend/internal/llm"
	"github.com/longhornrumble/widget-backend/internal/model"
)

// maxHistoryEntries caps how much caller-supplied history reaches the model.
const maxHistoryEntries = 10

const basePrompt = `You are a helpful assistant embedded in an organization's website widget. Answer questions about the organization's programs and services.

Only state facts supported by the provided context. If the context does not cover the question, say you don't know and suggest contacting the organization directly. Never invent program details, dates, requirements, or contact information.`

// BuildSystemPrompt assembles the system prompt from the tenant's tone
// instructions and any retrieved knowledge passages.
func BuildSystemPrompt(cfg *model.TenantConfig, passages []string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if tone := strings.TrimSpace(cfg.ToneInstructions); tone != "" {
		b.WriteString("\n\n")
		b.WriteString(tone)
	}

	if len(passages) > 0 {
		b.WriteString("\n\nContext:\n")
		for _, p := range passages {
			b.WriteString("---\n")
			b.WriteString(strings.TrimSpace(p))
			b.WriteString("\n")
		}
		b.WriteString("---")
	}

	return b.String()
}

// BuildMessages converts caller history plus the current utterance into the
// chat message list, keeping only the most recent entries.
func BuildMessages(history []model.HistoryEntry, userInput string) []llm.ChatMessage {
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, h := range history {
		role := h.Role
		if role != "assistant" {
			role = "user"
		}
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: h.Content})
	}

	messages = append(messages, llm.ChatMessage{Role: "user", Content: userInput})
	return messages
}
