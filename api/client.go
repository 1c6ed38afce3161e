package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	default_address = "http://127.0.0.1:11823"
)

type Client struct {
	client   *http.Client
	Endpoint string
	key      string
}

func NewClient(endpoint, key string) *Client {
	if endpoint == "" {
		endpoint = default_address
	}
	return &Client{
		client:   http.DefaultClient,
		Endpoint: endpoint,
		key:      key,
	}
}

// Chat sends the conversation to the server and returns the answer.
func (c *Client) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.post(ctx, "v1/chat/completions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Context fetches a rendered knowledge block for the given topic.
func (c *Client) Context(ctx context.Context, topic string, tags []string, limit int) (*ContextResponse, error) {
	q := url.Values{}
	q.Set("topic", topic)
	for _, tag := range tags {
		q.Add("tag", tag)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out ContextResponse
	if err := c.get(ctx, "v1/knowledge/context?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Observe submits a chat message for knowledge extraction.
func (c *Client) Observe(ctx context.Context, in ObserveRequest) error {
	return c.post(ctx, "v1/knowledge/observe", in, nil)
}

// Stats fetches knowledge base statistics.
func (c *Client) Stats(ctx context.Context) (*Statistics, error) {
	var out Statistics
	if err := c.get(ctx, "v1/knowledge/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	urlString := fmt.Sprintf("%s/%s", c.Endpoint, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlString, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("client failed create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	urlString := fmt.Sprintf("%s/%s", c.Endpoint, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlString, nil)
	if err != nil {
		return fmt.Errorf("client failed create request: %v", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(b))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
