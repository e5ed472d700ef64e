package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldreach/sendgate/internal/policy/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnapshot(t *testing.T) RuleSnapshot {
	t.Helper()
	days, err := domain.NewWeekdaySet(6, 7)
	require.NoError(t, err)
	start, err := domain.ParseClockTime("22:00:00")
	require.NoError(t, err)
	end, err := domain.ParseClockTime("06:30:00")
	require.NoError(t, err)
	date, err := domain.ParseCivilDate("2026-12-25")
	require.NoError(t, err)
	dr, err := domain.NewDomainRule(
		domain.RuleMeta{ID: uuid.New(), Name: "no competitors", Enabled: true},
		"*.competitor.io", true, "requested by legal",
	)
	require.NoError(t, err)
	return RuleSnapshot{
		Temporal: []domain.TemporalRule{
			domain.DayOfWeekRule{
				RuleMeta: domain.RuleMeta{ID: uuid.New(), Name: "weekends", Enabled: true},
				Days:     days,
			},
			domain.TimeRangeRule{
				RuleMeta: domain.RuleMeta{ID: uuid.New(), Name: "overnight", Enabled: true},
				Start:    start,
				End:      end,
			},
			domain.SpecificDateRule{
				RuleMeta: domain.RuleMeta{ID: uuid.New(), Name: "christmas", Enabled: true},
				Date:     date,
			},
		},
		Domains:   []domain.DomainRule{dr},
		Zone:      "America/New_York",
		UpdatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	want := testSnapshot(t)

	require.NoError(t, s.Put("list-1", want))

	got, ok, err := s.Get("list-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Zone, got.Zone)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	require.Len(t, got.Temporal, 3)
	require.Len(t, got.Domains, 1)
	assert.Equal(t, want.Temporal[0], got.Temporal[0])
	assert.Equal(t, want.Temporal[1], got.Temporal[1])
	assert.Equal(t, want.Temporal[2], got.Temporal[2])
	assert.Equal(t, want.Domains[0], got.Domains[0])
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("list-1", testSnapshot(t)))

	require.NoError(t, s.Put("list-1", RuleSnapshot{Zone: "UTC"}))

	got, ok, err := s.Get("list-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "UTC", got.Zone)
	assert.Empty(t, got.Temporal)
	assert.Empty(t, got.Domains)
}

func TestStore_PutEmptyListID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Put("", testSnapshot(t)))
}

func TestStore_DeleteAndLists(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("a", RuleSnapshot{}))
	require.NoError(t, s.Put("b", RuleSnapshot{}))

	ids, err := s.Lists()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a")) // missing key is fine

	ids, err = s.Lists()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("list-1", testSnapshot(t)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok, err := s.Get("list-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
