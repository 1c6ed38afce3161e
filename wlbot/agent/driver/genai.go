package driver

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wlcommunity/wlbot/wlbot/agent"
)

var _ agent.Provider = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	model string
	cli   *genai.Client
	conf  *Config
}

func NewGeminiAdapter(ctx context.Context, model, key string, config *Config) (*GeminiAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("gemini_adapter model cannot be empty")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed start gemini_adapter: %s", err)
	}

	ga := &GeminiAdapter{
		model: model,
		cli:   cli,
		conf:  config,
	}

	return ga, nil
}

// Chat implements agent.Provider.
func (g *GeminiAdapter) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {

	var sys *genai.Content
	contents := []*genai.Content{}

	// message encoding to genai content
	for _, msg := range req.Messages {
		content := &genai.Content{}
		switch msg.Role {
		case agent.RoleAssistant:
			content.Role = genai.RoleModel

		case agent.RoleUser:
			content.Role = genai.RoleUser

		case agent.RoleSystem:

		default:
			return nil, fmt.Errorf("gemini_adapter unknown message role: %v", msg.Role)
		}

		messageToContent(msg, content)

		if msg.Role == agent.RoleSystem {
			sys = content
			continue
		}

		contents = append(contents, content)
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini_adapter content is empty")
	}

	config := genai.GenerateContentConfig{
		SystemInstruction: sys,
		SafetySettings:    safetySetting,
		Temperature:       g.conf.Temperature,
		TopP:              g.conf.TopP,
		TopK:              g.conf.TopK,
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, &config)
	if err != nil {
		return nil, fmt.Errorf("gemini_adapter failed generating content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini_adapter response has no candidates")
	}

	candidate := resp.Candidates[0]
	a := &agent.CCRes{
		ID:    resp.ResponseID,
		Model: resp.ModelVersion,
		Choices: []agent.Choice{
			{
				Index:        0,
				Text:         resp.Text(),
				FinishReason: string(candidate.FinishReason),
			},
		},
		Created: resp.CreateTime,
		Usage: agent.Usage{
			CompletionTokens: candidate.TokenCount,
		},
	}

	return a, nil
}

func messageToContent(src *agent.Message, dst *genai.Content) {
	for _, p := range src.Parts {
		var part *genai.Part
		if p.Text != "" {
			part = genai.NewPartFromText(p.Text)
		} else if p.Blob != nil {
			part = genai.NewPartFromBytes(
				p.Blob.Bytes,
				p.Blob.Mime,
			)
		} else {
			continue
		}
		dst.Parts = append(dst.Parts, part)
	}
}

var safetySetting = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}
