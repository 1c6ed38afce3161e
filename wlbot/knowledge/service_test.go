package knowledge_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

var _ knowledge.Extractor = (*mockExtractor)(nil)

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error)
}

func (m *mockExtractor) Extract(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, u)
	}
	return nil, nil
}

func newTestService(t *testing.T, opts ...knowledge.Option) *knowledge.Service {
	t.Helper()
	svc, err := knowledge.NewService(knowledge.Config{Path: ":memory:"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_InitializeSeedsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	require.NoError(t, svc.Initialize(ctx))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(knowledge.SeedEntries()), stats.TotalEntries)

	// Re-seeding over an already populated store inserts nothing.
	n, err := svc.CreateBatch(ctx, knowledge.SeedEntries())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestService_TypedConstructors(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	id, err := svc.CreateUnit(ctx, knowledge.Unit{
		Name:     "War Elephant",
		Category: "cavalry",
		Tier:     4,
	}, "heavy")
	require.NoError(t, err)
	assert.Equal(t, "unit_war_elephant", id)

	got, err := svc.Read(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, knowledge.TypeUnit, got.Type)
	assert.Equal(t, knowledge.SourceStatic, got.Source)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)

	_, err = svc.CreateUnit(ctx, knowledge.Unit{Name: "War Elephant", Category: "cavalry", Tier: 4})
	require.ErrorIs(t, err, knowledge.ErrDuplicateID)
}

func TestService_GameContextFallback(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	block, err := svc.GameContext(ctx, "quantum entanglement", nil, "", 5)
	require.NoError(t, err)
	assert.Contains(t, block, "No stored knowledge matched")

	again, err := svc.GameContext(ctx, "quantum entanglement", nil, "", 5)
	require.NoError(t, err)
	assert.Equal(t, block, again, "context assembly must be deterministic")
}

func TestService_GameContextCacheHit(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()
	require.NoError(t, svc.Initialize(ctx))

	block, err := svc.GameContext(ctx, "cavalry attack", nil, "", 3)
	require.NoError(t, err)
	assert.Contains(t, block, "Cavalry")

	queries := svc.QueryCount()

	again, err := svc.GameContext(ctx, "cavalry attack", nil, "", 3)
	require.NoError(t, err)
	assert.Equal(t, block, again)
	assert.Equal(t, queries, svc.QueryCount(), "cached context must not touch the store")
}

func TestService_GameContextRanking(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()
	require.NoError(t, svc.Initialize(ctx))

	block, err := svc.GameContext(ctx, "how to defend against cavalry", []string{"anti_cavalry"}, "", 3)
	require.NoError(t, err)

	assert.Contains(t, block, "Spearman", "the anti-cavalry unit must be in the context")
	assert.Contains(t, block, "Units:")

	// The tag-matching entry outranks the generic cavalry entry.
	spear := strings.Index(block, "Spearman")
	cav := strings.Index(block, "- Cavalry")
	if cav >= 0 {
		assert.Less(t, spear, cav)
	}
}

func TestService_MutationsInvalidateContext(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()
	require.NoError(t, svc.Initialize(ctx))

	block, err := svc.GameContext(ctx, "archer rush opening", []string{"aggressive"}, "", 5)
	require.NoError(t, err)
	assert.Contains(t, block, "Archer Rush")

	removed, err := svc.Delete(ctx, "strategy_archer_rush")
	require.NoError(t, err)
	require.True(t, removed)

	block, err = svc.GameContext(ctx, "archer rush opening", []string{"aggressive"}, "", 5)
	require.NoError(t, err)
	assert.NotContains(t, block, "Archer Rush", "deleted entries must not linger in cached contexts")
}

func TestService_UpdateFromMessage(t *testing.T) {
	t.Run("stores extracted facts as dynamic", func(t *testing.T) {
		extractor := &mockExtractor{
			ExtractFunc: func(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error) {
				return []*knowledge.Entry{{
					ID:     "meta_patch_notes",
					Type:   knowledge.TypeMeta,
					Source: knowledge.SourceStatic, // extractor output is overridden
					Content: knowledge.Content{General: &knowledge.General{
						Title:       "Patch 2.1 meta",
						Description: "knights got a defense nerf",
					}},
					Confidence: 1.0, // clamped below 1
				}}, nil
			},
		}
		svc := newTestService(t, knowledge.WithExtractor(extractor))
		ctx := t.Context()

		err := svc.UpdateFromMessage(ctx, knowledge.Update{
			MessageText: "knights feel weaker after the patch",
			MessageID:   "42",
			Username:    "scout",
			TopicTags:   []string{"meta"},
		})
		require.NoError(t, err)

		got, err := svc.Read(ctx, "meta_patch_notes")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, knowledge.SourceDynamic, got.Source)
		assert.Less(t, got.Confidence, 1.0)
		assert.Contains(t, got.ContextTags, "meta")
		assert.Contains(t, got.References, "msg:42")
	})

	t.Run("extractor failure is swallowed", func(t *testing.T) {
		extractor := &mockExtractor{
			ExtractFunc: func(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error) {
				return nil, errors.New("model unavailable")
			},
		}
		svc := newTestService(t, knowledge.WithExtractor(extractor))

		err := svc.UpdateFromMessage(t.Context(), knowledge.Update{MessageText: "hello"})
		assert.NoError(t, err)
	})

	t.Run("no extractor is a no-op", func(t *testing.T) {
		svc := newTestService(t)
		err := svc.UpdateFromMessage(t.Context(), knowledge.Update{MessageText: "hello"})
		assert.NoError(t, err)
	})

	t.Run("repeated extraction updates in place", func(t *testing.T) {
		desc := "first"
		extractor := &mockExtractor{
			ExtractFunc: func(ctx context.Context, u knowledge.Update) ([]*knowledge.Entry, error) {
				return []*knowledge.Entry{{
					ID:   "meta_same",
					Type: knowledge.TypeMeta,
					Content: knowledge.Content{General: &knowledge.General{
						Title:       "Same fact",
						Description: desc,
					}},
				}}, nil
			},
		}
		svc := newTestService(t, knowledge.WithExtractor(extractor))
		ctx := t.Context()

		require.NoError(t, svc.UpdateFromMessage(ctx, knowledge.Update{MessageText: "a"}))
		desc = "second"
		require.NoError(t, svc.UpdateFromMessage(ctx, knowledge.Update{MessageText: "b"}))

		got, err := svc.Read(ctx, "meta_same")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "second", got.Content.General.Description)
	})
}

func TestService_SearchUnits(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()
	require.NoError(t, svc.Initialize(ctx))

	testCases := []struct {
		name     string
		category string
		tier     int
		tags     []string
		wantIDs  []string
	}{
		{
			name:     "by category",
			category: "cavalry",
			wantIDs:  []string{"unit_cavalry", "unit_knight"},
		},
		{
			name:     "by category and tier",
			category: "cavalry",
			tier:     3,
			wantIDs:  []string{"unit_knight"},
		},
		{
			name:    "by tag",
			tags:    []string{"anti_cavalry"},
			wantIDs: []string{"unit_spearman"},
		},
		{
			name:     "no match",
			category: "naval",
			wantIDs:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := svc.SearchUnits(ctx, tc.category, tc.tier, tc.tags)
			require.NoError(t, err)

			ids := make([]string, 0, len(found))
			for _, e := range found {
				ids = append(ids, e.ID)
			}
			assert.ElementsMatch(t, tc.wantIDs, ids)
		})
	}
}

func TestService_PlayerInfo(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	id, err := svc.CreatePlayer(ctx, knowledge.Player{
		Nickname:            "IronWolf",
		Clan:                "WL",
		Rating:              1850,
		PreferredStrategies: []string{"cavalry_flanking"},
	})
	require.NoError(t, err)
	assert.Equal(t, "player_ironwolf", id)

	got, err := svc.PlayerInfo(ctx, "IronWolf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "IronWolf", got.Content.Player.Nickname)

	got, err = svc.PlayerInfo(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}
