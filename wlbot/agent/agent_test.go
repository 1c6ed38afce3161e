package agent_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wlcommunity/wlbot/wlbot/agent"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

var _ agent.Provider = (*mockProvider)(nil)

type mockProvider struct {
	ChatFunc func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error)
}

func (mp *mockProvider) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
	if mp.ChatFunc != nil {
		return mp.ChatFunc(ctx, req)
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("message cannot be nil")
	}
	query := req.Messages[len(req.Messages)-1]
	return &agent.CCRes{
		Choices: []agent.Choice{
			{Text: query.Text()},
		},
	}, nil
}

var _ agent.Knowledge = (*mockKnowledge)(nil)

type mockKnowledge struct {
	GameContextFunc func(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error)
}

func (mk *mockKnowledge) GameContext(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error) {
	if mk.GameContextFunc != nil {
		return mk.GameContextFunc(ctx, topic, tags, messageContext, limit)
	}
	return "mock knowledge block", nil
}

func TestResponder_Respond(t *testing.T) {
	testCases := []struct {
		name          string
		msgs          []*agent.Message
		provider      agent.Provider
		opts          []agent.OptionFunc
		expectedText  string
		expectedError string
	}{
		{
			name: "plain response without knowledge",
			msgs: []*agent.Message{
				agent.NewTextMessage(agent.RoleUser, "hello"),
			},
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					return &agent.CCRes{Choices: []agent.Choice{{Text: "hello there"}}}, nil
				},
			},
			expectedText: "hello there",
		},
		{
			name:          "empty conversation",
			msgs:          nil,
			provider:      &mockProvider{},
			expectedError: "empty conversation",
		},
		{
			name: "provider failure",
			msgs: []*agent.Message{
				agent.NewTextMessage(agent.RoleUser, "hello"),
			},
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					return nil, fmt.Errorf("connection refused")
				},
			},
			expectedError: "agent provider",
		},
		{
			name: "provider returns no choices",
			msgs: []*agent.Message{
				agent.NewTextMessage(agent.RoleUser, "hello"),
			},
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					return &agent.CCRes{}, nil
				},
			},
			expectedError: "empty response",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := agent.New(tc.provider, tc.opts...)
			resp, err := r.Respond(t.Context(), tc.msgs)

			if tc.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, agent.RoleAssistant, resp.Role)
			assert.Equal(t, tc.expectedText, resp.Text())
		})
	}
}

func TestResponder_InjectsKnowledgeContext(t *testing.T) {
	var gotTopic string
	know := &mockKnowledge{
		GameContextFunc: func(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error) {
			gotTopic = topic
			return "Units:\n- Spearman: counters cavalry", nil
		},
	}

	var gotSystem string
	provider := &mockProvider{
		ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
			require.NotEmpty(t, req.Messages)
			first := req.Messages[0]
			require.Equal(t, agent.RoleSystem, first.Role)
			gotSystem = first.Text()
			return &agent.CCRes{Choices: []agent.Choice{{Text: "build spearmen"}}}, nil
		},
	}

	r := agent.New(provider, agent.WithKnowledge(know))

	resp, err := r.Respond(t.Context(), []*agent.Message{
		agent.NewTextMessage(agent.RoleAssistant, "welcome"),
		agent.NewTextMessage(agent.RoleUser, "how do I stop cavalry"),
	})
	require.NoError(t, err)
	assert.Equal(t, "build spearmen", resp.Text())
	assert.Equal(t, "how do I stop cavalry", gotTopic, "topic is the latest user message")
	assert.Contains(t, gotSystem, "Spearman", "knowledge block must land in the system prompt")
}

func TestResponder_PropagatesStoreFailure(t *testing.T) {
	know := &mockKnowledge{
		GameContextFunc: func(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error) {
			return "", knowledge.ErrStoreUnavailable
		},
	}

	r := agent.New(&mockProvider{}, agent.WithKnowledge(know))
	_, err := r.Respond(t.Context(), []*agent.Message{
		agent.NewTextMessage(agent.RoleUser, "anything"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, knowledge.ErrStoreUnavailable))
}
