package agent

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// ChatCompletionRequest sent to a provider.
type CCReq struct {
	Messages []*Message
	Stream   bool
	Think    bool
}

type Message struct {
	Role  Role
	Parts []*Part
}

// Text joins the textual parts of the message.
func (m *Message) Text() string {
	texts := []string{}
	for _, p := range m.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "")
}

type Part struct {
	Text string
	Blob *Blob
}

type Blob struct {
	// raw bytes
	Bytes []byte
	// IANA standard type
	Mime string
}

// ChatCompletionResponse received from a provider.
type CCRes struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Created time.Time `json:"created"`
	Choices []Choice  `json:"choices"`
	Usage   Usage
}

func (res *CCRes) Text() string {
	if len(res.Choices) == 0 {
		return ""
	}
	return res.Choices[0].Text
}

type Choice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

func NewTextMessage(role Role, text string) *Message {
	return &Message{
		Role: role,
		Parts: []*Part{
			{Text: text},
		},
	}
}

func NewBlobMessage(role Role, b []byte, mime string) *Message {
	return &Message{
		Role: role,
		Parts: []*Part{
			{
				Blob: &Blob{
					Bytes: b,
					Mime:  mime,
				},
			},
		},
	}
}
