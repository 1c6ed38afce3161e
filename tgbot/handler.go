package telebot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/wlcommunity/wlbot/api"
	tele "gopkg.in/telebot.v4"
)

var startText = strings.TrimSpace(`
Hi, I am the War Legends community assistant.
Ask me about units, buildings, counters or build orders.

/know <topic> - look up stored game knowledge
/stats - knowledge base statistics
/forget - clear this chat's conversation history
`)

func Handle(ctx context.Context, bot *tele.Bot, ai *api.Client, cache *ChatCache) {
	bot.Handle("/start", func(c tele.Context) error {
		slog.Debug("got /start", "chat", c.Chat().ID)
		return c.Send(startText)
	})

	bot.Handle("/know", func(c tele.Context) error {
		topic := strings.TrimSpace(c.Message().Payload)
		if topic == "" {
			return c.Send("usage: /know <topic>")
		}
		res, err := ai.Context(ctx, topic, nil, 0)
		if err != nil {
			slog.Error("knowledge lookup failed", "error", err)
			return c.Send("service unavailable")
		}
		return c.Send(res.Context)
	})

	bot.Handle("/stats", func(c tele.Context) error {
		stats, err := ai.Stats(ctx)
		if err != nil {
			slog.Error("stats lookup failed", "error", err)
			return c.Send("service unavailable")
		}
		return c.Send(FormatStats(stats))
	})

	bot.Handle("/forget", func(c tele.Context) error {
		_ = cache.Clear(c.Chat().ID)
		return c.Send("conversation history cleared")
	})

	bot.Handle("/count", func(c tele.Context) error {
		n := cache.CountMessages(c.Chat().ID)
		return c.Send(strconv.Itoa(n))
	})

	h := Handler{
		ctx:   ctx,
		ai:    ai,
		cache: cache,
	}

	bot.Handle(tele.OnText, h.HandleText)
	bot.Handle(tele.OnPhoto, h.HandlePhoto)
}

type Handler struct {
	ctx   context.Context
	ai    *api.Client
	cache *ChatCache
}

func (h *Handler) HandleText(c tele.Context) error {
	slog.Debug("got text", "chat", c.Chat().ID)

	h.observe(c)

	res, err := h.do(h.ctx, c.Chat().ID, api.NewTextMessage("user", c.Text()))
	if err != nil {
		slog.Error("chat request failed", "error", err)
		return c.Send("service unavailable")
	}
	return c.Send(res.Text)
}

func (h *Handler) HandlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if !photo.File.InCloud() {
		return c.Send("picture not from telegram server")
	}

	rc, err := c.Bot().File(&photo.File)
	if err != nil {
		slog.Error("failed to fetch file from telegram", "error", err)
		return c.Send("server error")
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		slog.Error("failed to read photo", "error", err)
		return c.Send("server error")
	}
	mime := http.DetectContentType(b)

	msg := api.NewBlobMessage("user", b, mime)
	if caption := photo.InputMedia().Caption; caption != "" {
		msg.Parts = append(msg.Parts, api.NewTextPart(caption))
	}

	res, err := h.do(h.ctx, c.Chat().ID, msg)
	if err != nil {
		slog.Error("chat request failed", "error", err)
		return c.Send("service unavailable")
	}
	return c.Send(res.Text)
}

// observe forwards the raw message to the knowledge endpoint without
// blocking the reply.
func (h *Handler) observe(c tele.Context) {
	req := api.ObserveRequest{
		MessageText: c.Text(),
		MessageID:   strconv.Itoa(c.Message().ID),
		ChatID:      c.Chat().ID,
	}
	if c.Sender() != nil {
		req.Username = c.Sender().Username
	}
	go func() {
		if err := h.ai.Observe(h.ctx, req); err != nil {
			slog.Debug("observe failed", "error", err)
		}
	}()
}

func (h *Handler) do(ctx context.Context, id int64, query *api.Message) (*api.ChatResponse, error) {
	sc := h.cache.Get(id)
	sc.Add(*query)

	resp, err := h.ai.Chat(ctx, api.ChatRequest{Content: sc.Messages()})
	if err != nil {
		return nil, err
	}
	resp.Text = ParseThink(resp.Text)

	sc.Add(*api.NewTextMessage("assistant", resp.Text))
	return resp, nil
}

func FormatStats(s *api.Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entries: %d\n", s.TotalEntries)

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, s.ByType[t])
	}

	fmt.Fprintf(&b, "avg confidence: %.2f", s.AvgConfidence)
	return b.String()
}

// ParseThink strips a leading reasoning block from models that emit
// <think>...</think> before the answer.
func ParseThink(msg string) string {
	close := "</think>"
	idx := strings.Index(msg, close)
	if idx != -1 {
		return strings.TrimSpace(msg[idx+len(close):])
	}
	return msg
}
