package services

import "chat-backend/internal/models"

// EmptyReplyPlaceholder is returned when a provider answers with no text.
const EmptyReplyPlaceholder = "I apologize, but I couldn't generate a response. Please try again."

var fallbackReplies = []string{
	"I'm running in offline mode right now, so I can't give you a full answer. Could you tell me a bit more about what you're looking for?",
	"That's an interesting question. The language model isn't reachable at the moment, but your message has been saved and you can ask again shortly.",
	"Thanks for your message! I can't reach the AI service right now. Please check that an API key is configured and try again.",
	"I'd love to help with that. The assistant is temporarily unavailable, so this is a placeholder reply.",
	"Good point. I'm not connected to a language model at the moment, but the conversation is stored and will be here when I am.",
}

// FallbackReply picks a canned reply from the latest user message. The choice
// depends only on that message's text: the sum of its character codes modulo
// the pool size.
func FallbackReply(history []models.ChatMessage) string {
	var latest string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			latest = history[i].Content
			break
		}
	}

	sum := 0
	for _, r := range latest {
		sum += int(r)
	}
	return fallbackReplies[sum%len(fallbackReplies)]
}
