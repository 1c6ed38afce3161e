package api

import (
	"net/http"
	"time"

	"github.com/wlcommunity/wlbot/wlbot/agent"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

// Request
type ChatRequest struct {
	Content []*Message `json:"content"`
}

type Message agent.Message

// Response
type ChatResponse struct {
	Created time.Time `json:"created"`
	Text    string    `json:"text"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

type ObserveRequest struct {
	MessageText string   `json:"message_text"`
	MessageID   string   `json:"message_id"`
	ChatID      int64    `json:"chat_id"`
	Username    string   `json:"username"`
	TopicTags   []string `json:"topic_tags,omitempty"`
}

type Statistics = knowledge.Statistics

/* HELPER  */

func NewBlobMessage(role string, b []byte, mimeType string) *Message {
	if mimeType == "" {
		mimeType = http.DetectContentType(b)
	}
	return &Message{
		Role: agent.Role(role),
		Parts: []*agent.Part{
			newBlobPart(b, mimeType),
		},
	}
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Role: agent.Role(role),
		Parts: []*agent.Part{
			NewTextPart(text),
		},
	}
}

func NewTextPart(text string) *agent.Part {
	return &agent.Part{
		Text: text,
	}
}

func newBlobPart(b []byte, mime string) *agent.Part {
	return &agent.Part{
		Blob: &agent.Blob{
			Bytes: b,
			Mime:  mime,
		},
	}
}
