package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const defaultSystemPrompt = `You are the assistant of the War Legends community chat. ` +
	`Answer questions about the game using the knowledge block provided in the ` +
	`system context. Be concise, stay on topic and answer in the language the ` +
	`question was asked in. If the knowledge block does not cover the question, ` +
	`say so instead of guessing.`

const defaultContextLimit = 5

// Knowledge supplies the rendered game-knowledge block injected into the
// system prompt.
type Knowledge interface {
	GameContext(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error)
}

// Responder turns a chat history into an answer: it grounds the system
// prompt with retrieved game knowledge, then delegates to the provider.
type Responder struct {
	provider Provider
	know     Knowledge
	system   string
	limit    int
}

func New(provider Provider, opts ...OptionFunc) *Responder {
	o := options{
		system: defaultSystemPrompt,
		limit:  defaultContextLimit,
	}
	for _, fn := range opts {
		fn(&o)
	}

	return &Responder{
		provider: provider,
		know:     o.know,
		system:   o.system,
		limit:    o.limit,
	}
}

// Respond answers the conversation, grounding the reply in game knowledge
// retrieved for the latest user message. Retrieval errors abort the call, a
// degraded answer without context would be worse than a retry.
func (r *Responder) Respond(ctx context.Context, msgs []*Message) (*Message, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("agent: empty conversation")
	}

	system := r.system
	if r.know != nil {
		topic := lastUserText(msgs)
		block, err := r.know.GameContext(ctx, topic, nil, conversationText(msgs), r.limit)
		if err != nil {
			return nil, fmt.Errorf("agent: knowledge retrieval: %w", err)
		}
		system = system + "\n\n" + block
	}

	history := make([]*Message, 0, len(msgs)+1)
	history = append(history, NewTextMessage(RoleSystem, system))
	history = append(history, msgs...)

	resp, err := r.provider.Chat(ctx, CCReq{Messages: history})
	if err != nil {
		return nil, fmt.Errorf("agent provider: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agent provider: empty response")
	}

	slog.Debug("agent respond",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return NewTextMessage(RoleAssistant, resp.Choices[0].Text), nil
}

// lastUserText is the retrieval topic: the most recent user message.
func lastUserText(msgs []*Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Text()
		}
	}
	return msgs[len(msgs)-1].Text()
}

// conversationText joins the recent user turns, it widens the retrieval net
// beyond the single topic message.
func conversationText(msgs []*Message) string {
	const recent = 4

	texts := []string{}
	for i := len(msgs) - 1; i >= 0 && len(texts) < recent; i-- {
		if msgs[i].Role != RoleUser {
			continue
		}
		if t := msgs[i].Text(); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}
