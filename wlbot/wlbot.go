package wlbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wlcommunity/wlbot/wlbot/agent"
	"github.com/wlcommunity/wlbot/wlbot/agent/driver"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

type wlbot struct {
	Responder
	know *knowledge.Service
}

// Responder answers a chat conversation.
type Responder interface {
	Respond(ctx context.Context, msgs []*agent.Message) (*agent.Message, error)
}

func New(ctx context.Context, cfg *Config) (*wlbot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// logging
	if cfg.Server.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("configuration", "config", cfg)
	}

	// llm provider
	var provider agent.Provider
	var err error

	switch cfg.Provider.Name {
	case "ollama":
		provider, err = driver.NewOllamaAdapter(cfg.Provider.Model, &cfg.Provider.Extra)

	case "openai":
		extra := cfg.Provider.Extra
		if extra.Endpoint == "" {
			extra.Endpoint = cfg.Provider.Endpoint
		}
		provider, err = driver.NewOpenAIAdapter(cfg.Provider.Model, cfg.Provider.ApiKey, &extra)

	case "genai":
		provider, err = driver.NewGeminiAdapter(ctx, cfg.Provider.Model, cfg.Provider.ApiKey, &cfg.Provider.Extra)

	default:
		err = fmt.Errorf("unknown provider specified in config: %s", cfg.Provider.Name)
	}
	if err != nil {
		slog.Error("wlbot init provider", "error", err)
		return nil, err
	}

	// game knowledge
	know, err := knowledge.NewService(knowledge.Config{
		Path:         cfg.Knowledge.Path,
		CacheTTL:     time.Duration(cfg.Knowledge.CacheTTL) * time.Second,
		ContextLimit: cfg.Knowledge.ContextLimit,
	}, knowledge.WithExtractor(agent.NewFactExtractor(provider)))
	if err != nil {
		slog.Error("wlbot init knowledge", "error", err)
		return nil, err
	}

	if err := know.Initialize(ctx); err != nil {
		_ = know.Close()
		return nil, fmt.Errorf("wlbot seed knowledge: %w", err)
	}
	know.StartCacheSweeper(ctx)

	// responder
	r := agent.New(provider,
		agent.WithKnowledge(know),
		agent.WithContextLimit(cfg.Knowledge.ContextLimit),
		agent.WithSystemPrompt(cfg.Knowledge.SystemPrompt),
	)

	return &wlbot{
		Responder: r,
		know:      know,
	}, nil
}

// Knowledge exposes the game knowledge service.
func (w *wlbot) Knowledge() *knowledge.Service {
	return w.know
}

func (w *wlbot) Close() error {
	return w.know.Close()
}
