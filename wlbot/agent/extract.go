package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

const extractPrompt = `You mine game facts from War Legends community chat. ` +
	`Given one chat message, extract durable facts about the game: balance ` +
	`changes, unit or building properties, strategies, meta shifts. Ignore ` +
	`greetings, jokes and anything not about the game. Reply with a JSON array, ` +
	`each element {"type": "meta"|"timing"|"general", "title": string, ` +
	`"description": string, "tags": [string]}. Reply with [] when the message ` +
	`holds no durable fact. Output JSON only, no prose.`

var _ knowledge.Extractor = (*FactExtractor)(nil)

// FactExtractor asks the model to mine durable game facts out of chat
// messages. The output feeds the knowledge base as dynamic entries.
type FactExtractor struct {
	provider Provider
}

func NewFactExtractor(p Provider) *FactExtractor {
	return &FactExtractor{provider: p}
}

type extractedFact struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Extract implements knowledge.Extractor.
func (x *FactExtractor) Extract(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error) {
	resp, err := x.provider.Chat(ctx, CCReq{
		Messages: []*Message{
			NewTextMessage(RoleSystem, extractPrompt),
			NewTextMessage(RoleUser, u.MessageText),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extractor provider: %w", err)
	}

	raw := stripFence(resp.Text())
	if raw == "" {
		return nil, nil
	}

	var facts []extractedFact
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, fmt.Errorf("extractor: model output is not a fact list: %w", err)
	}

	entries := make([]*knowledge.Entry, 0, len(facts))
	for _, f := range facts {
		title := strings.TrimSpace(f.Title)
		if title == "" {
			continue
		}

		t := knowledge.TypeGeneral
		switch knowledge.Type(f.Type) {
		case knowledge.TypeMeta:
			t = knowledge.TypeMeta
		case knowledge.TypeTiming:
			t = knowledge.TypeTiming
		}

		entries = append(entries, &knowledge.Entry{
			ID:     string(t) + "_" + normalizeID(title),
			Type:   t,
			Source: knowledge.SourceDynamic,
			Content: knowledge.Content{General: &knowledge.General{
				Title:       title,
				Description: strings.TrimSpace(f.Description),
				Tags:        f.Tags,
			}},
			Confidence: 0.6,
			Tags:       f.Tags,
		})
	}
	return entries, nil
}

// stripFence drops a surrounding markdown code fence, models add one even
// when told not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeID(title string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			sep = false
		default:
			if !sep && b.Len() > 0 {
				b.WriteByte('_')
				sep = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
