package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return db
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Errorf("second EnsureSchema failed: %v", err)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	got, err := db.LoadProfile(ctx, "hiker")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no profile, got %+v", got)
	}

	p := pace.NewProfile("hiker")
	p.Push(0.9, 5)
	p.Push(1.1, 5)
	if err := db.SaveProfile(ctx, "hiker", p); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err = db.LoadProfile(ctx, "hiker")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("profile mismatch (-saved +loaded):\n%s", diff)
	}

	// Upsert
	p.Push(1.3, 5)
	if err := db.SaveProfile(ctx, "hiker", p); err != nil {
		t.Fatalf("second SaveProfile failed: %v", err)
	}
	got, _ = db.LoadProfile(ctx, "hiker")
	if len(got.RecentSpeedFactors) != 3 || got.SpeedFactor != p.SpeedFactor {
		t.Errorf("updated profile = %+v", got)
	}
}

func TestItineraryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if got, err := db.LoadItinerary(ctx, "hiker"); err != nil || got != nil {
		t.Fatalf("LoadItinerary = %+v, %v, want nil, nil", got, err)
	}

	it := itinerary.New([]string{"s_WM_01", "WM_02"}, []string{"WM_02", "WM_03", "WM_04"})
	it.DayIndex = 1
	it.ProgressIndex = 1
	if err := db.SaveItinerary(ctx, "hiker", it); err != nil {
		t.Fatalf("SaveItinerary failed: %v", err)
	}

	got, err := db.LoadItinerary(ctx, "hiker")
	if err != nil {
		t.Fatalf("LoadItinerary failed: %v", err)
	}
	if diff := cmp.Diff(it, got); diff != "" {
		t.Errorf("itinerary mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestCompletionsAndCleanup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := pace.Completion{ID: uuid.New(), FromID: "A", ToID: "B", Elapsed: 12 * time.Minute, At: time.Now().Add(-72 * time.Hour)}
	recent := pace.Completion{ID: uuid.New(), FromID: "B", ToID: "C", Elapsed: 20 * time.Minute, At: time.Now()}

	for _, c := range []pace.Completion{old, recent} {
		if err := db.RecordCompletion(ctx, "hiker", c, pace.Observation{Factor: 1.2, Accepted: true}); err != nil {
			t.Fatalf("RecordCompletion failed: %v", err)
		}
	}
	if n, _ := db.CountCompletions(ctx, "hiker"); n != 2 {
		t.Fatalf("CountCompletions = %d, want 2", n)
	}

	if err := db.Cleanup(ctx, 24*time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if n, _ := db.CountCompletions(ctx, "hiker"); n != 1 {
		t.Errorf("CountCompletions after cleanup = %d, want 1", n)
	}
}
