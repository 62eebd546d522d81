package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/closeguard/closeguard/internal/engine"
)

func testReport(id string, createdAt time.Time) *Report {
	return &Report{
		ID:     id,
		Status: "complete",
		Flags: []engine.Finding{
			{Rule: "high_interest_rate", Message: "rate too high", Severity: "medium"},
		},
		Analytics: engine.Analytics{ForensicScore: 90, TotalFlags: 1, MediumSeverity: 1},
		Metadata:  Metadata{Filename: id + ".pdf", TextLength: 1000, UploadedAt: createdAt},
		CreatedAt: createdAt,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		store := NewMemoryStore()
		report := testReport("r1", time.Now())

		if err := store.Save(ctx, report); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ID != "r1" || got.Analytics.ForensicScore != 90 {
			t.Errorf("Wrong report returned: %+v", got)
		}
	})

	t.Run("GetUnknownID", func(t *testing.T) {
		store := NewMemoryStore()
		if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		store := NewMemoryStore()
		base := time.Now()
		store.Save(ctx, testReport("older", base.Add(-time.Hour)))
		store.Save(ctx, testReport("newest", base))
		store.Save(ctx, testReport("middle", base.Add(-time.Minute)))

		summaries, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(summaries) != 3 {
			t.Fatalf("List returned %d summaries, want 3", len(summaries))
		}
		for i, want := range []string{"newest", "middle", "older"} {
			if summaries[i].ID != want {
				t.Errorf("Position %d = %s, want %s", i, summaries[i].ID, want)
			}
		}
		if summaries[0].FlagCount != 1 {
			t.Errorf("Summary flag count = %d, want 1", summaries[0].FlagCount)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := NewMemoryStore()
		store.Save(ctx, testReport("gone", time.Now()))

		if err := store.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Report still retrievable after delete: %v", err)
		}
		if err := store.Delete(ctx, "gone"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Second delete should return ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveOverwritesSameID", func(t *testing.T) {
		store := NewMemoryStore()
		store.Save(ctx, testReport("dup", time.Now()))

		updated := testReport("dup", time.Now())
		updated.Analytics.ForensicScore = 40
		store.Save(ctx, updated)

		got, err := store.Get(ctx, "dup")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Analytics.ForensicScore != 40 {
			t.Errorf("Overwrite did not take effect: score %d", got.Analytics.ForensicScore)
		}

		summaries, _ := store.List(ctx)
		if len(summaries) != 1 {
			t.Errorf("Overwrite created a second entry: %d summaries", len(summaries))
		}
	})
}
