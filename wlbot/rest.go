package wlbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/wlcommunity/wlbot/wlbot/agent"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

type Server struct {
	e   *echo.Echo
	bot *wlbot
	cfg Config

	ctx context.Context
}

func NewHttp(ctx context.Context, cfg Config) (Server, error) {

	// wlbot instance
	b, err := New(ctx, &cfg)
	if err != nil {
		return Server{}, err
	}

	// http server
	e := echo.New()

	// http handler
	RestHandler(ctx, b, b.Knowledge(), e)

	return Server{e: e, bot: b, cfg: cfg, ctx: ctx}, nil
}

func (s *Server) Start() error {
	var err error

	// start observability
	shutdown, err := InitObservability(s.ctx, "wlbot-server", s.cfg.Observe)
	if err != nil {
		return fmt.Errorf("failed init observability: %w", err)
	}

	go func() {
		<-s.ctx.Done()

		slog.Info("shutdown observability providers...")
		if xerr := shutdown(context.Background()); xerr != nil {
			slog.Error("observability shutdown", "error", xerr)
		}

		slog.Info("shutdown http server...")
		if xerr := s.e.Shutdown(context.Background()); xerr != nil {
			slog.Error("http shutdown", "error", xerr)
		}

		if xerr := s.bot.Close(); xerr != nil {
			slog.Error("knowledge close", "error", xerr)
		}
	}()

	if xerr := s.e.Start(s.cfg.Server.Address); !errors.Is(xerr, http.ErrServerClosed) {
		err = errors.Join(err, xerr)
		return err
	}
	return nil
}

// Request
type ChatRequest struct {
	Content []*agent.Message `json:"content"`
}

// Response
type ChatResponse struct {
	Created time.Time `json:"created"`
	Text    string    `json:"text"`
}

func (cr *ChatRequest) validate() error {
	if len(cr.Content) == 0 {
		return fmt.Errorf("messages cannot be nil")
	}
	for _, msg := range cr.Content {
		if len(msg.Parts) == 0 {
			return fmt.Errorf("some message has no parts")
		}
	}
	return nil
}

type ContextResponse struct {
	Context string `json:"context"`
}

type ObserveRequest struct {
	MessageText string   `json:"message_text"`
	MessageID   string   `json:"message_id"`
	ChatID      int64    `json:"chat_id"`
	Username    string   `json:"username"`
	TopicTags   []string `json:"topic_tags,omitempty"`
}

// Knowledge is the slice of the knowledge service the rest surface needs.
type Knowledge interface {
	GameContext(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error)
	UpdateFromMessage(ctx context.Context, u knowledge.Update) error
	CreateEntry(ctx context.Context, e *knowledge.Entry) error
	Read(ctx context.Context, id string) (*knowledge.Entry, error)
	Delete(ctx context.Context, id string) (bool, error)
	Statistics(ctx context.Context) (*knowledge.Statistics, error)
}

func RestHandler(ctx context.Context, a Responder, know Knowledge, e *echo.Echo) {
	if e == nil {
		panic("got nil parameter")
	}

	meter := otel.Meter("wlbot.rest")
	requestCounter, err := meter.Int64Counter(
		"wlbot.http.request_total",
		metric.WithDescription("total number of HTTP request"),
	)
	if err != nil {
		panic(err)
	}

	// otel middleware
	e.Use(otelecho.Middleware("wlbot-server"))

	// custom middleware to count requests
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			requestCounter.Add(c.Request().Context(), 1)
			return err
		}
	})

	// prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/v1/chat/completions", func(c echo.Context) error {
		slog.Debug("got chat request")
		if ok := IsJsonContentType(c.Request()); !ok {
			return c.JSON(400, echo.Map{"error": "expecting json body"})
		}

		var input ChatRequest
		if err := c.Bind(&input); err != nil {
			slog.Error("failed binding", "error", err)
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}

		if err := input.validate(); err != nil {
			slog.Error("validate error", "error", err)
			return c.JSON(400, echo.Map{"error": "bad json format."})
		}

		output, err := a.Respond(c.Request().Context(), input.Content)
		if err != nil {
			slog.Error("failed completion", "error", err)
			if errors.Is(err, knowledge.ErrStoreUnavailable) {
				return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
			}
			return c.JSON(500, echo.Map{"error": "server unavailable"})
		}

		slog.Debug("chat request finish")
		return c.JSON(200, ChatResponse{
			Created: time.Now().UTC(),
			Text:    output.Text(),
		})
	})

	e.GET("/v1/knowledge/context", func(c echo.Context) error {
		topic := c.QueryParam("topic")
		if topic == "" {
			return c.JSON(400, echo.Map{"error": "topic is required"})
		}
		tags := c.QueryParams()["tag"]
		limit := 0
		echo.QueryParamsBinder(c).Int("limit", &limit)

		block, err := know.GameContext(c.Request().Context(), topic, tags, "", limit)
		if err != nil {
			slog.Error("failed context assembly", "error", err)
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		}
		return c.JSON(200, ContextResponse{Context: block})
	})

	e.POST("/v1/knowledge/observe", func(c echo.Context) error {
		if ok := IsJsonContentType(c.Request()); !ok {
			return c.JSON(400, echo.Map{"error": "expecting json body"})
		}

		var input ObserveRequest
		if err := c.Bind(&input); err != nil {
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}
		if input.MessageText == "" {
			return c.JSON(400, echo.Map{"error": "message_text is required"})
		}

		err := know.UpdateFromMessage(c.Request().Context(), knowledge.Update{
			MessageText: input.MessageText,
			MessageID:   input.MessageID,
			ChatID:      input.ChatID,
			Username:    input.Username,
			Timestamp:   time.Now().UTC(),
			TopicTags:   input.TopicTags,
		})
		if err != nil {
			slog.Error("failed knowledge observe", "error", err)
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		}
		return c.NoContent(202)
	})

	e.GET("/v1/knowledge/stats", func(c echo.Context) error {
		stats, err := know.Statistics(c.Request().Context())
		if err != nil {
			slog.Error("failed knowledge stats", "error", err)
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		}
		return c.JSON(200, stats)
	})

	e.POST("/v1/knowledge/entries", func(c echo.Context) error {
		if ok := IsJsonContentType(c.Request()); !ok {
			return c.JSON(400, echo.Map{"error": "expecting json body"})
		}

		var entry knowledge.Entry
		if err := c.Bind(&entry); err != nil {
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}

		err := know.CreateEntry(c.Request().Context(), &entry)
		switch {
		case err == nil:
			return c.JSON(201, entry)
		case errors.Is(err, knowledge.ErrDuplicateID):
			return c.JSON(409, echo.Map{"error": "entry id already exists"})
		case errors.Is(err, knowledge.ErrStoreUnavailable):
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		default:
			var verr *knowledge.ValidationError
			if errors.As(err, &verr) {
				return c.JSON(400, echo.Map{"error": verr.Error()})
			}
			slog.Error("failed entry create", "error", err)
			return c.JSON(500, echo.Map{"error": "server unavailable"})
		}
	})

	e.GET("/v1/knowledge/entries/:id", func(c echo.Context) error {
		entry, err := know.Read(c.Request().Context(), c.Param("id"))
		if err != nil {
			slog.Error("failed entry read", "error", err)
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		}
		if entry == nil {
			return c.JSON(404, echo.Map{"error": "entry not found"})
		}
		return c.JSON(200, entry)
	})

	e.DELETE("/v1/knowledge/entries/:id", func(c echo.Context) error {
		removed, err := know.Delete(c.Request().Context(), c.Param("id"))
		if err != nil {
			slog.Error("failed entry delete", "error", err)
			return c.JSON(503, echo.Map{"error": "knowledge store unavailable"})
		}
		if !removed {
			return c.JSON(404, echo.Map{"error": "entry not found"})
		}
		return c.NoContent(204)
	})
}

func IsJsonContentType(req *http.Request) bool {
	ct := req.Header.Get("Content-Type")
	return ct == "application/json"
}
