package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testUnit(id, name string, tags ...string) *Entry {
	return &Entry{
		ID:     id,
		Type:   TypeUnit,
		Source: SourceStatic,
		Content: Content{Unit: &Unit{
			Name:        name,
			Category:    "infantry",
			Tier:        1,
			Description: "test unit " + name,
			Tags:        tags,
		}},
		Confidence: 0.9,
		Tags:       tags,
	}
}

func TestStore_CreateAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	e := testUnit("unit_test_swordsman", "Swordsman", "melee", "tank")
	require.NoError(t, s.Create(ctx, e))

	got, err := s.Read(ctx, "unit_test_swordsman")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, TypeUnit, got.Type)
	assert.Equal(t, SourceStatic, got.Source)
	assert.Equal(t, "Swordsman", got.Content.Unit.Name)
	assert.Equal(t, []string{"melee", "tank"}, got.Tags)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestStore_ReadAbsent(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Read(t.Context(), "no_such_id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, testUnit("unit_dup", "Original")))

	err := s.Create(ctx, testUnit("unit_dup", "Impostor"))
	require.ErrorIs(t, err, ErrDuplicateID)

	got, err := s.Read(ctx, "unit_dup")
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Content.Unit.Name, "existing entry must stay untouched")
}

func TestStore_CreateInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	testCases := []struct {
		name  string
		entry *Entry
	}{
		{
			name:  "empty id",
			entry: testUnit("", "Nameless"),
		},
		{
			name: "unknown type",
			entry: &Entry{
				ID: "x", Type: Type("dragon"), Source: SourceStatic,
				Content: Content{Unit: &Unit{Name: "X", Tier: 1}},
			},
		},
		{
			name: "confidence out of range",
			entry: &Entry{
				ID: "x", Type: TypeUnit, Source: SourceStatic,
				Content:    Content{Unit: &Unit{Name: "X", Tier: 1}},
				Confidence: 1.5,
			},
		},
		{
			name: "payload mismatch",
			entry: &Entry{
				ID: "x", Type: TypeUnit, Source: SourceStatic,
				Content: Content{General: &General{Title: "not a unit"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Create(ctx, tc.entry)
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestStore_CreateBatchSkipsBad(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	entries := []*Entry{
		testUnit("unit_a", "Alpha"),
		testUnit("unit_a", "AlphaAgain"),
		testUnit("unit_b", "Bravo"),
	}

	n, err := s.CreateBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_UpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	e := testUnit("unit_patch", "Patchling", "melee")
	require.NoError(t, s.Create(ctx, e))

	before, err := s.Read(ctx, "unit_patch")
	require.NoError(t, err)

	conf := 0.4
	src := SourceVerified
	require.NoError(t, s.Update(ctx, "unit_patch", Patch{
		Confidence: &conf,
		Source:     &src,
	}))

	after, err := s.Read(ctx, "unit_patch")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, after.Confidence, 1e-9)
	assert.Equal(t, SourceVerified, after.Source)
	assert.Equal(t, "Patchling", after.Content.Unit.Name, "unpatched field must survive")
	assert.Equal(t, []string{"melee"}, after.Tags)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at must strictly increase")
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestStore_UpdateAbsent(t *testing.T) {
	s := newTestStore(t)

	conf := 0.5
	err := s.Update(t.Context(), "ghost", Patch{Confidence: &conf})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateRejectsBadPatch(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, testUnit("unit_strict", "Strict")))

	bad := 2.0
	err := s.Update(ctx, "unit_strict", Patch{Confidence: &bad})
	require.Error(t, err)

	got, err := s.Read(ctx, "unit_strict")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9, "failed patch must not change the entry")
}

func TestStore_DeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, testUnit("unit_gone", "Goner")))

	removed, err := s.Delete(ctx, "unit_gone")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "unit_gone")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.Read(ctx, "unit_gone")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ReadByTypeOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	old := time.Now().UTC().Add(-2 * time.Hour)
	newer := time.Now().UTC().Add(-1 * time.Hour)

	first := testUnit("unit_old", "Old")
	first.CreatedAt, first.UpdatedAt = old, old
	second := testUnit("unit_new", "New")
	second.CreatedAt, second.UpdatedAt = newer, newer

	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))

	got, err := s.ReadByType(ctx, TypeUnit, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "unit_new", got[0].ID)

	// Patching the old entry makes it the most recent.
	conf := 0.5
	require.NoError(t, s.Update(ctx, "unit_old", Patch{Confidence: &conf}))

	got, err = s.ReadByType(ctx, TypeUnit, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unit_old", got[0].ID)
}

func TestStore_SearchFTSTracksMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	e := testUnit("unit_fts", "Gryphon")
	e.Content.Unit.Description = "a flying beast"
	require.NoError(t, s.Create(ctx, e))

	found, err := s.SearchFTS(ctx, "flying", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "unit_fts", found[0].ID)

	// Content patch must re-derive the index in the same transaction.
	patched := e.Content
	patched.Unit.Description = "a burrowing beast"
	require.NoError(t, s.Update(ctx, "unit_fts", Patch{Content: &patched}))

	found, err = s.SearchFTS(ctx, "flying", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.SearchFTS(ctx, "burrowing", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = s.Delete(ctx, "unit_fts")
	require.NoError(t, err)

	found, err = s.SearchFTS(ctx, "burrowing", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStore_SearchByTags(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	a := testUnit("unit_t1", "TagOne", "melee", "tank")
	b := testUnit("unit_t2", "TagTwo", "melee")
	c := testUnit("unit_t3", "TagThree", "ranged")
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))
	require.NoError(t, s.Create(ctx, c))

	t.Run("match any", func(t *testing.T) {
		found, err := s.SearchByTags(ctx, []string{"melee", "ranged"}, false, 10)
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("match all", func(t *testing.T) {
		found, err := s.SearchByTags(ctx, []string{"melee", "tank"}, true, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "unit_t1", found[0].ID)
	})

	t.Run("no tags", func(t *testing.T) {
		found, err := s.SearchByTags(ctx, nil, false, 10)
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestStore_Statistics(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Create(ctx, testUnit("unit_s1", "One")))
	require.NoError(t, s.Create(ctx, testUnit("unit_s2", "Two")))

	strat := &Entry{
		ID: "strategy_s1", Type: TypeStrategy, Source: SourceDynamic,
		Content:    Content{Strategy: &Strategy{Name: "Scout Spam"}},
		Confidence: 0.5,
	}
	require.NoError(t, s.Create(ctx, strat))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 2, stats.ByType["unit"])
	assert.Equal(t, 1, stats.ByType["strategy"])
	assert.Equal(t, 2, stats.BySource["static"])
	assert.Equal(t, 1, stats.BySource["dynamic"])
	assert.InDelta(t, (0.9+0.9+0.5)/3, stats.AvgConfidence, 1e-9)
	assert.Equal(t, 3, stats.RecentUpdates)
}

func TestStore_QueryCount(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	before := s.QueryCount()
	_, err := s.Read(ctx, "whatever")
	require.NoError(t, err)
	assert.Equal(t, before+1, s.QueryCount())
}
