package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultContextLimit bounds how many entries go into one context block.
const DefaultContextLimit = 5

const fallbackContext = `No stored knowledge matched this topic. ` +
	`War Legends is a real-time strategy game built around base building, ` +
	`army composition and counter play. Ask about specific units, buildings, ` +
	`strategies or game mechanics to get detailed information.`

// RankWeights tunes the composite relevance score used when assembling a
// context block.
type RankWeights struct {
	TokenHit    float64            `json:"token_hit"`
	Confidence  float64            `json:"confidence"`
	TagOverlap  float64            `json:"tag_overlap"`
	SourceBoost map[Source]float64 `json:"source_boost"`
}

// DefaultRankWeights favors confident, verified entries with matching tags.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		TokenHit:   0.1,
		Confidence: 0.3,
		TagOverlap: 0.2,
		SourceBoost: map[Source]float64{
			SourceVerified: 0.3,
			SourceStatic:   0.2,
			SourceDynamic:  0.1,
			SourceOutdated: 0,
		},
	}
}

// Config holds the knowledge service settings.
type Config struct {
	// Path is the SQLite database file, ":memory:" for ephemeral stores.
	Path string
	// CacheTTL bounds the lifetime of rendered context blocks.
	CacheTTL time.Duration
	// ContextLimit caps entries per context block, 0 uses the default.
	ContextLimit int
	// Weights overrides the relevance scoring, zero value uses defaults.
	Weights RankWeights
}

// Extractor proposes knowledge entries from a chat message. Implementations
// are expected to be slow (LLM backed) and fallible.
type Extractor interface {
	Extract(ctx context.Context, u Update) ([]*Entry, error)
}

// Service is the game-knowledge facade: validated writes, ranked retrieval
// and cached context assembly on top of the store.
type Service struct {
	store     *Store
	cache     *contextCache
	weights   RankWeights
	limit     int
	extractor Extractor

	closeOnce sync.Once
	initOnce  sync.Once
}

type Option func(*Service)

// WithExtractor wires the dynamic-knowledge extractor used by
// UpdateFromMessage. Without it chat messages are ignored.
func WithExtractor(x Extractor) Option {
	return func(s *Service) { s.extractor = x }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	store, err := Open(cfg.Path)
	if err != nil {
		return nil, err
	}

	weights := cfg.Weights
	if weights.SourceBoost == nil {
		weights = DefaultRankWeights()
	}

	limit := cfg.ContextLimit
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	s := &Service{
		store:   store,
		cache:   newContextCache(cfg.CacheTTL),
		weights: weights,
		limit:   limit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize seeds the curated baseline knowledge. Idempotent: entries that
// already exist are skipped.
func (s *Service) Initialize(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		var n int
		n, err = s.store.CreateBatch(ctx, SeedEntries())
		if err != nil {
			return
		}
		if n > 0 {
			s.cache.invalidate()
		}
		slog.Info("knowledge base initialized", "seeded", n)
	})
	return err
}

func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.store.Close()
	})
	return err
}

// StartCacheSweeper launches the background expiry sweep, stopped via ctx.
func (s *Service) StartCacheSweeper(ctx context.Context) {
	s.cache.startSweeper(ctx, 0)
}

// QueryCount exposes the store's SQL round-trip counter.
func (s *Service) QueryCount() uint64 {
	return s.store.QueryCount()
}

// InvalidateContextCache drops all cached context blocks.
func (s *Service) InvalidateContextCache() {
	s.cache.invalidate()
}

// CreateEntry stores a fully formed entry.
func (s *Service) CreateEntry(ctx context.Context, e *Entry) error {
	if err := s.store.Create(ctx, e); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// CreateBatch stores as many of the entries as are valid, returning the
// count of successful inserts.
func (s *Service) CreateBatch(ctx context.Context, entries []*Entry) (int, error) {
	n, err := s.store.CreateBatch(ctx, entries)
	if n > 0 {
		s.cache.invalidate()
	}
	return n, err
}

// CreateUnit stores a curated unit entry and returns its derived id.
func (s *Service) CreateUnit(ctx context.Context, u Unit, tags ...string) (string, error) {
	id := "unit_" + slug(u.Name)
	return id, s.CreateEntry(ctx, &Entry{
		ID:         id,
		Type:       TypeUnit,
		Source:     SourceStatic,
		Content:    Content{Unit: &u},
		Confidence: 1.0,
		Tags:       tags,
	})
}

// CreateBuilding stores a curated building entry and returns its derived id.
func (s *Service) CreateBuilding(ctx context.Context, b Building, tags ...string) (string, error) {
	id := "building_" + slug(b.Name)
	return id, s.CreateEntry(ctx, &Entry{
		ID:         id,
		Type:       TypeBuilding,
		Source:     SourceStatic,
		Content:    Content{Building: &b},
		Confidence: 1.0,
		Tags:       tags,
	})
}

// CreateStrategy stores a curated strategy entry and returns its derived id.
func (s *Service) CreateStrategy(ctx context.Context, st Strategy, tags ...string) (string, error) {
	id := "strategy_" + slug(st.Name)
	return id, s.CreateEntry(ctx, &Entry{
		ID:         id,
		Type:       TypeStrategy,
		Source:     SourceStatic,
		Content:    Content{Strategy: &st},
		Confidence: 1.0,
		Tags:       tags,
	})
}

// CreateMechanic stores a curated mechanics entry and returns its derived id.
func (s *Service) CreateMechanic(ctx context.Context, m Mechanic, tags ...string) (string, error) {
	id := "mechanics_" + slug(m.Name)
	return id, s.CreateEntry(ctx, &Entry{
		ID:         id,
		Type:       TypeMechanics,
		Source:     SourceStatic,
		Content:    Content{Mechanic: &m},
		Confidence: 1.0,
		Tags:       tags,
	})
}

// CreatePlayer stores a player entry and returns its derived id.
func (s *Service) CreatePlayer(ctx context.Context, p Player, tags ...string) (string, error) {
	id := "player_" + slug(p.Nickname)
	return id, s.CreateEntry(ctx, &Entry{
		ID:         id,
		Type:       TypePlayer,
		Source:     SourceDynamic,
		Content:    Content{Player: &p},
		Confidence: 0.8,
		Tags:       tags,
	})
}

// Read returns the entry or nil when absent.
func (s *Service) Read(ctx context.Context, id string) (*Entry, error) {
	return s.store.Read(ctx, id)
}

// ReadByType lists entries of one type, most recently updated first.
func (s *Service) ReadByType(ctx context.Context, t Type, limit int) ([]*Entry, error) {
	return s.store.ReadByType(ctx, t, limit)
}

// Update patches an entry, invalidating cached contexts on success.
func (s *Service) Update(ctx context.Context, id string, p Patch) error {
	if err := s.store.Update(ctx, id, p); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// Delete removes an entry, reporting whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Delete(ctx, id)
	if removed {
		s.cache.invalidate()
	}
	return removed, err
}

// Statistics aggregates store-wide counters.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	return s.store.Statistics(ctx)
}

// GameContext assembles a rendered knowledge block for the given topic.
// Deterministic for a fixed store state, cached by the full query shape and
// never empty: with no matches it returns the general fallback text.
func (s *Service) GameContext(ctx context.Context, topic string, tags []string, messageContext string, limit int) (string, error) {
	if limit <= 0 {
		limit = s.limit
	}

	key := cacheKey(topic, tags, messageContext, limit)
	if block, ok := s.cache.get(key); ok {
		return block, nil
	}

	matches, err := s.rankedMatches(ctx, topic, tags, messageContext, limit)
	if err != nil {
		return "", err
	}

	block := renderContext(matches)
	s.cache.set(key, block)
	return block, nil
}

func (s *Service) rankedMatches(ctx context.Context, topic string, tags []string, messageContext string, limit int) ([]*Entry, error) {
	pool := limit * 4
	if pool < 20 {
		pool = 20
	}

	candidates := map[string]*Entry{}

	text := strings.TrimSpace(topic + " " + messageContext)
	if text != "" {
		found, err := s.store.SearchFTS(ctx, text, pool)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			candidates[e.ID] = e
		}
	}

	if len(tags) > 0 {
		found, err := s.store.SearchByTags(ctx, tags, false, pool)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			candidates[e.ID] = e
		}
	}

	scored := make([]scoredEntry, 0, len(candidates))
	topicTokens := tokenize(topic)
	for _, e := range candidates {
		scored = append(scored, scoredEntry{
			entry: e,
			score: s.weights.score(e, topicTokens, tags),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].entry.Confidence != scored[j].entry.Confidence {
			return scored[i].entry.Confidence > scored[j].entry.Confidence
		}
		return scored[i].entry.ID < scored[j].entry.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]*Entry, len(scored))
	for i, sc := range scored {
		out[i] = sc.entry
	}
	return out, nil
}

type scoredEntry struct {
	entry *Entry
	score float64
}

func (w RankWeights) score(e *Entry, topicTokens, queryTags []string) float64 {
	score := e.Confidence * w.Confidence

	if len(queryTags) > 0 {
		own := map[string]bool{}
		for _, t := range e.Tags {
			own[strings.ToLower(t)] = true
		}
		for _, t := range e.ContextTags {
			own[strings.ToLower(t)] = true
		}
		for _, t := range e.Content.tags() {
			own[strings.ToLower(t)] = true
		}

		hits := 0
		for _, t := range queryTags {
			if own[strings.ToLower(t)] {
				hits++
			}
		}
		score += float64(hits) / float64(len(queryTags)) * w.TagOverlap
	}

	if len(topicTokens) > 0 {
		body := strings.ToLower(e.SearchText())
		for _, tok := range topicTokens {
			if strings.Contains(body, tok) {
				score += w.TokenHit
			}
		}
	}

	score += w.SourceBoost[e.Source]
	return score
}

// sectionOrder fixes the rendering order of the grouped context block.
var sectionOrder = []struct {
	t      Type
	header string
}{
	{TypeUnit, "Units"},
	{TypeBuilding, "Buildings"},
	{TypeStrategy, "Strategies"},
	{TypeTiming, "Timings"},
	{TypeMechanics, "Game Mechanics"},
	{TypePlayer, "Players"},
	{TypeMeta, "Meta"},
	{TypeGeneral, "General"},
}

func renderContext(matches []*Entry) string {
	if len(matches) == 0 {
		return fallbackContext
	}

	byType := map[Type][]*Entry{}
	for _, e := range matches {
		byType[e.Type] = append(byType[e.Type], e)
	}

	var b strings.Builder
	b.WriteString("Relevant game knowledge:\n")
	for _, section := range sectionOrder {
		entries := byType[section.t]
		if len(entries) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(section.header)
		b.WriteString(":\n")
		for _, e := range entries {
			b.WriteString(renderEntry(e))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderEntry(e *Entry) string {
	c := &e.Content
	switch {
	case c.Unit != nil:
		u := c.Unit
		line := fmt.Sprintf("- %s (tier %d %s): %s", u.Name, u.Tier, u.Category, u.Description)
		if len(u.Counters) > 0 {
			line += " Counters: " + strings.Join(u.Counters, ", ") + "."
		}
		if len(u.CounteredBy) > 0 {
			line += " Countered by: " + strings.Join(u.CounteredBy, ", ") + "."
		}
		return line

	case c.Building != nil:
		b := c.Building
		return fmt.Sprintf("- %s (%s, max level %d): %s", b.Name, b.Category, b.MaxLevel, b.Description)

	case c.Strategy != nil:
		st := c.Strategy
		line := fmt.Sprintf("- %s (%s %s): %s", st.Name, st.Difficulty, st.Category, st.Description)
		if len(st.StrongAgainst) > 0 {
			line += " Strong against: " + strings.Join(st.StrongAgainst, ", ") + "."
		}
		if len(st.Counters) > 0 {
			line += " Countered by: " + strings.Join(st.Counters, ", ") + "."
		}
		return line

	case c.Mechanic != nil:
		m := c.Mechanic
		line := fmt.Sprintf("- %s: %s", m.Name, m.Description)
		if m.Formula != "" {
			line += " Formula: " + m.Formula
		}
		return line

	case c.Player != nil:
		p := c.Player
		line := "- " + p.Nickname
		if p.Clan != "" {
			line += " [" + p.Clan + "]"
		}
		if p.Rating > 0 {
			line += fmt.Sprintf(", rating %d", p.Rating)
		}
		if len(p.PreferredStrategies) > 0 {
			line += ". Prefers: " + strings.Join(p.PreferredStrategies, ", ")
		}
		return line

	case c.General != nil:
		g := c.General
		return fmt.Sprintf("- %s: %s", g.Title, g.Description)
	}
	return "- " + e.ID
}

// UpdateFromMessage feeds a chat message through the extractor and stores
// whatever facts come back as dynamic knowledge. Extraction and per-entry
// failures are logged, never surfaced: a broken extractor must not break
// the chat flow. Store unavailability is surfaced.
func (s *Service) UpdateFromMessage(ctx context.Context, u Update) error {
	if s.extractor == nil || strings.TrimSpace(u.MessageText) == "" {
		return nil
	}

	proposals, err := s.extractor.Extract(ctx, u)
	if err != nil {
		slog.Warn("knowledge extraction failed", "message_id", u.MessageID, "error", err)
		return nil
	}

	stored := 0
	for _, e := range proposals {
		if e == nil {
			continue
		}

		e.Source = SourceDynamic
		if e.Confidence <= 0 || e.Confidence >= 1 {
			e.Confidence = 0.7
		}
		if len(u.TopicTags) > 0 {
			e.ContextTags = mergeTags(e.ContextTags, u.TopicTags)
		}
		if u.MessageID != "" {
			e.References = mergeTags(e.References, []string{"msg:" + u.MessageID})
		}

		if err := s.upsertDynamic(ctx, e); err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return err
			}
			slog.Warn("dynamic knowledge entry rejected", "id", e.ID, "error", err)
			continue
		}
		stored++
	}

	if stored > 0 {
		s.cache.invalidate()
		slog.Info("dynamic knowledge stored", "message_id", u.MessageID, "entries", stored)
	}
	return nil
}

func (s *Service) upsertDynamic(ctx context.Context, e *Entry) error {
	err := s.store.Create(ctx, e)
	if !errors.Is(err, ErrDuplicateID) {
		return err
	}

	return s.store.Update(ctx, e.ID, Patch{
		Content:     &e.Content,
		Source:      &e.Source,
		Confidence:  &e.Confidence,
		References:  e.References,
		Tags:        e.Tags,
		ContextTags: e.ContextTags,
	})
}

// SearchUnits filters the unit roster by category, tier and tags. Zero
// values match everything.
func (s *Service) SearchUnits(ctx context.Context, category string, tier int, tags []string) ([]*Entry, error) {
	units, err := s.store.ReadByType(ctx, TypeUnit, 0)
	if err != nil {
		return nil, err
	}

	out := units[:0]
	for _, e := range units {
		u := e.Content.Unit
		if u == nil {
			continue
		}
		if category != "" && !strings.EqualFold(u.Category, category) {
			continue
		}
		if tier > 0 && u.Tier != tier {
			continue
		}
		if len(tags) > 0 && !hasAllTags(e, tags) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// PlayerInfo resolves a player entry by handle, falling back to full-text
// search when the derived id misses. Returns nil when unknown.
func (s *Service) PlayerInfo(ctx context.Context, handle string) (*Entry, error) {
	e, err := s.store.Read(ctx, "player_"+slug(handle))
	if err != nil || e != nil {
		return e, err
	}

	found, err := s.store.SearchFTS(ctx, handle, 5)
	if err != nil {
		return nil, err
	}
	for _, cand := range found {
		if cand.Type == TypePlayer {
			return cand, nil
		}
	}
	return nil, nil
}

func hasAllTags(e *Entry, want []string) bool {
	own := map[string]bool{}
	for _, t := range e.Tags {
		own[strings.ToLower(t)] = true
	}
	for _, t := range e.ContextTags {
		own[strings.ToLower(t)] = true
	}
	for _, t := range e.Content.tags() {
		own[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if !own[strings.ToLower(t)] {
			return false
		}
	}
	return true
}

func mergeTags(base, extra []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range base {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range extra {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func slug(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
