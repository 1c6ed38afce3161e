package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wlcommunity/wlbot/wlbot/agent"
)

const _openai_completions_path = "v1/chat/completions"

const _http_default_max_retry = 2

var _ agent.Provider = (*OpenAIAdapter)(nil)

// OpenAIAdapter wraps any OpenAI compatible completion api, including
// LiteLLM style proxies.
type OpenAIAdapter struct {
	model    string
	hc       *http.Client
	apiKey   string
	baseUrl  string
	maxRetry int

	config Config
}

func NewOpenAIAdapter(model, key string, config *Config) (*OpenAIAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("openai_adapter model cannot be empty")
	}
	baseUrl, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("openai_adapter failed parse base url: %w", err)
	}
	baseUrl.Path = ""

	return &OpenAIAdapter{
		model:    model,
		hc:       http.DefaultClient,
		apiKey:   key,
		maxRetry: _http_default_max_retry,
		baseUrl:  baseUrl.String(),
		config:   *config,
	}, nil
}

func (d *OpenAIAdapter) doRetry(req *http.Request) (*http.Response, error) {
	baseDelay := 1 * time.Second
	maxAttempt := d.maxRetry + 1

	var lastErr error
	for attempt := range maxAttempt {
		res, err := d.hc.Do(req)
		if err == nil && res.StatusCode < 400 {
			return res, nil
		}

		if res != nil {
			// client errors do not recover on retry
			if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
				return res, fmt.Errorf("driver failed send request status: %v", res.Status)
			}
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
			lastErr = fmt.Errorf("status %s", res.Status)
		} else {
			lastErr = err
		}

		// the last failure returns without a pointless backoff
		if attempt == maxAttempt-1 {
			break
		}

		// exponential backoff with full jitter
		sleep := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
		jitter := time.Duration(rand.Int63n(int64(sleep)))
		time.Sleep(jitter)
		slog.Debug("retry", "attempt", attempt, "max", maxAttempt, "error", lastErr)
	}

	return nil, fmt.Errorf("api model request error after %d attempts: %w", maxAttempt, lastErr)
}

// Chat implements agent.Provider.
func (d *OpenAIAdapter) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {

	input := oaRequest{
		Model:    d.model,
		Messages: toMessages(req.Messages),
	}
	if d.config.Temperature != nil {
		input.Temperature = *d.config.Temperature
	}
	if d.config.TopP != nil {
		input.TopP = *d.config.TopP
	}

	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", d.baseUrl, _openai_completions_path)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}

	slog.Debug("provider request", "endpoint", request.URL.String())
	request.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", d.apiKey))
	}

	resp, err := d.doRetry(request)
	if err != nil {
		if resp != nil {
			bb, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("openai_adapter failed get response: %w message: %s", err, string(bb))
		}
		return nil, fmt.Errorf("openai_adapter failed get response: %w", err)
	}
	defer resp.Body.Close()

	var out oaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openai_adapter response error: %v", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai_adapter response has no choices")
	}

	text := ""
	if out.Choices[0].Message.Content != nil {
		text = *out.Choices[0].Message.Content
	}

	return &agent.CCRes{
		ID:      out.ID,
		Model:   out.Model,
		Created: time.Unix(out.Created, 0),
		Choices: []agent.Choice{
			{
				Index:        out.Choices[0].Index,
				Text:         text,
				FinishReason: out.Choices[0].FinishReason,
			},
		},
		Usage: agent.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

type oaRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Temperature float32     `json:"temperature,omitempty"`
	TopP        float32     `json:"top_p,omitempty"`
}

func toMessages(src []*agent.Message) []oaMessage {
	out := []oaMessage{}
	for _, msg := range src {
		out = append(out, oaMessage{
			Role:    string(msg.Role),
			Content: toParts(msg.Parts),
		})
	}
	return out
}

func toParts(src []*agent.Part) []oaPart {
	parts := []oaPart{}
	for _, in := range src {
		part := oaPart{}
		topart(in, &part)
		parts = append(parts, part)
	}
	return parts
}

func topart(in *agent.Part, out *oaPart) {
	// map text
	if in.Text != "" {
		out.Type = "text"
		out.Text = in.Text
		return
	}

	// map blob
	if in.Blob != nil {
		if strings.Contains(in.Blob.Mime, "image") {
			buf := bytes.NewBufferString("data:")
			buf.WriteString(in.Blob.Mime)
			buf.WriteString(";base64,")
			buf.Write(in.Blob.Bytes)

			out.Type = "image_url"
			out.ImageURL = &oaImageURL{
				URL: buf.String(),
			}
		}
	}
}

type oaMessage struct {
	Role    string   `json:"role"`
	Content []oaPart `json:"content"`
}

type oaPart struct {
	Type string `json:"type"` // "text" or "image_url"

	// Fields for a text block
	Text string `json:"text,omitempty"`

	// Fields for an image_url block
	ImageURL *oaImageURL `json:"image_url,omitempty"`
}

type oaImageURL struct {
	URL string `json:"url"`
}

//------------

type oaResponse struct {
	ID      string     `json:"id"`
	Object  string     `json:"object"`
	Created int64      `json:"created"`
	Model   string     `json:"model"`
	Choices []oaChoice `json:"choices"`
	Usage   oaUsage    `json:"usage"`
}

type oaChoice struct {
	Index        int          `json:"index"`
	Message      oaResMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type oaResMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"` // null or string
}

type oaUsage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}
