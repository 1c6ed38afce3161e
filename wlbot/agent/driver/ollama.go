package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollama "github.com/ollama/ollama/api"

	"github.com/wlcommunity/wlbot/wlbot/agent"
)

const _ollama_domain = "http://127.0.0.1:11434"

var _ agent.Provider = (*OllamaAdapter)(nil)

// OllamaAdapter serves models from a local ollama daemon.
type OllamaAdapter struct {
	model string
	c     *ollama.Client
	conf  *Config
}

func NewOllamaAdapter(model string, config *Config) (*OllamaAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama_adapter model cannot be empty")
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = _ollama_domain
	}
	oUrl, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	cli := ollama.NewClient(oUrl, http.DefaultClient)
	oa := OllamaAdapter{
		model: model,
		c:     cli,
		conf:  config,
	}
	return &oa, nil
}

// Chat implements agent.Provider.
func (oapi *OllamaAdapter) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {

	msgs := []ollama.Message{}
	for _, msg := range req.Messages {
		oMsg := ollama.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		}
		for _, p := range msg.Parts {
			if p.Blob != nil {
				oMsg.Images = append(oMsg.Images, ollama.ImageData(p.Blob.Bytes))
			}
		}
		msgs = append(msgs, oMsg)
	}

	oReq := &ollama.ChatRequest{
		Model:    oapi.model,
		Messages: msgs,
		Stream:   &req.Stream,
		Think:    &req.Think,
		Options: map[string]any{
			"temperature": oapi.conf.Temperature,
			"top_p":       oapi.conf.TopP,
			"top_k":       oapi.conf.TopK,
			"min_p":       oapi.conf.MinP,
		},
	}

	var resp *agent.CCRes
	err := oapi.c.Chat(ctx, oReq, func(cr ollama.ChatResponse) error {
		resp = &agent.CCRes{
			Model:   cr.Model,
			Created: cr.CreatedAt,
			Choices: []agent.Choice{
				{
					Text:         cr.Message.Content,
					FinishReason: cr.DoneReason,
				},
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
