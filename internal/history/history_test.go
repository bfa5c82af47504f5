package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lectern/internal/coach"
)

func openTestStore(t *testing.T, limit int) *Store {
	t.Helper()
	clock := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ids := 0
	store, err := Open(t.TempDir(), Options{
		Limit: limit,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		NewID: func() string {
			ids++
			return fmt.Sprintf("session-%02d", ids)
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func sampleAnalysis(score float64) coach.SpeechAnalysis {
	return coach.SpeechAnalysis{
		Transcript:          "Good morning corps members.",
		OverallScore:        score,
		LeadershipAlignment: "Commanding throughout.",
		Metrics:             []coach.FeedbackMetric{{Label: "Clarity", Score: score, Feedback: "Clear."}},
	}
}

func TestSaveListNewestFirst(t *testing.T) {
	store := openTestStore(t, 0)

	records, err := store.List(0)
	require.NoError(t, err)
	require.Empty(t, records)

	first, err := store.Save(Record{Scenario: "Address to Corps Members (Camp)", Analysis: sampleAnalysis(70), WPM: 120, Duration: 95})
	require.NoError(t, err)
	require.Equal(t, "session-01", first.ID)
	require.Equal(t, time.Date(2026, 5, 4, 10, 1, 0, 0, time.UTC), first.Date)

	second, err := store.Save(Record{ID: "custom", Analysis: sampleAnalysis(82)})
	require.NoError(t, err)
	require.Equal(t, "custom", second.ID)

	records, err = store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "custom", records[0].ID)
	require.Equal(t, "session-01", records[1].ID)
	require.Equal(t, 70.0, records[1].Analysis.OverallScore)
	require.Equal(t, 95, records[1].Duration)

	limited, err := store.List(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "custom", limited[0].ID)
}

func TestSaveTrimsToLimit(t *testing.T) {
	store := openTestStore(t, 3)
	for i := 0; i < 5; i++ {
		_, err := store.Save(Record{WPM: i})
		require.NoError(t, err)
	}

	records, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"session-05", "session-04", "session-03"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestGet(t *testing.T) {
	store := openTestStore(t, 0)
	_, err := store.Save(Record{ID: "a1b2", WPM: 101})
	require.NoError(t, err)
	_, err = store.Save(Record{ID: "a1c3", WPM: 140})
	require.NoError(t, err)

	got, err := store.Get("a1c3")
	require.NoError(t, err)
	require.Equal(t, 140, got.WPM)

	got, err = store.Get("a1b")
	require.NoError(t, err)
	require.Equal(t, "a1b2", got.ID)

	_, err = store.Get("a1")
	require.ErrorContains(t, err, "ambiguous")

	_, err = store.Get("zz")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(" ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, Options{})
	require.NoError(t, err)
	saved, err := store.Save(Record{Scenario: "Parade Ground Command", Analysis: sampleAnalysis(64)})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.NoError(t, store.Close())

	reopened, err := Open(dir, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(saved.ID)
	require.NoError(t, err)
	require.Equal(t, "Parade Ground Command", got.Scenario)
	require.Equal(t, "Commanding throughout.", got.Analysis.LeadershipAlignment)
}

func TestInMemoryStore(t *testing.T) {
	store, err := Open("", Options{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(Record{WPM: 99})
	require.NoError(t, err)
	records, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
