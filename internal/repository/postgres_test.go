package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewWithQuerier(mock)
}

func TestLoadProfile(t *testing.T) {
	mock, repo := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT profile_id::text, username, speed_factor`).
		WithArgs("hiker").
		WillReturnRows(pgxmock.NewRows([]string{"profile_id", "username", "speed_factor", "recent_speed_factors", "stats_count", "stats_mean", "stats_m2"}).
			AddRow(id.String(), "hiker", 1.1, []float64{1.0, 1.2}, 2, 1.1, 0.02))

	p, err := repo.LoadProfile(context.Background(), "hiker")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.ID != id || p.SpeedFactor != 1.1 || len(p.RecentSpeedFactors) != 2 || p.Stats.Count != 2 {
		t.Errorf("unexpected profile: %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadProfileMissing(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT profile_id::text`).
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"profile_id", "username", "speed_factor", "recent_speed_factors", "stats_count", "stats_mean", "stats_m2"}))

	p, err := repo.LoadProfile(context.Background(), "nobody")
	if err != nil || p != nil {
		t.Errorf("LoadProfile = %+v, %v, want nil, nil", p, err)
	}
}

func TestLoadProfileError(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT profile_id::text`).
		WithArgs("hiker").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.LoadProfile(context.Background(), "hiker"); err == nil {
		t.Error("expected error")
	}
}

func TestSaveProfile(t *testing.T) {
	mock, repo := newMock(t)
	p := pace.NewProfile("hiker")
	p.Push(1.2, 5)

	mock.ExpectExec(`INSERT INTO user_profiles`).
		WithArgs("hiker", p.ID.String(), "hiker", 1.2, pgxmock.AnyArg(), 1, 1.2, 0.0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.SaveProfile(context.Background(), "hiker", p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestItineraryRoundTrip(t *testing.T) {
	mock, repo := newMock(t)
	ctx := context.Background()
	it := itinerary.New([]string{"A", "B"}, []string{"B", "C"})
	it.DayIndex = 1

	mock.ExpectExec(`INSERT INTO itineraries`).
		WithArgs("hiker", `[["A","B"],["B","C"]]`, 1, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.SaveItinerary(ctx, "hiker", it); err != nil {
		t.Fatalf("save itinerary: %v", err)
	}

	mock.ExpectQuery(`SELECT days::text, day_index, progress_index`).
		WithArgs("hiker").
		WillReturnRows(pgxmock.NewRows([]string{"days", "day_index", "progress_index"}).
			AddRow(`[["A","B"],["B","C"]]`, 1, 0))

	got, err := repo.LoadItinerary(ctx, "hiker")
	if err != nil {
		t.Fatalf("load itinerary: %v", err)
	}
	if got.DayIndex != 1 || len(got.Days) != 2 || got.Days[1][1] != "C" {
		t.Errorf("unexpected itinerary: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordCompletion(t *testing.T) {
	mock, repo := newMock(t)
	c := pace.Completion{ID: uuid.New(), FromID: "A", ToID: "B", Elapsed: 90 * time.Second, At: time.Now()}

	mock.ExpectExec(`INSERT INTO segment_completions`).
		WithArgs(c.ID.String(), "hiker", "A", "B", 90.0, 0.5, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.RecordCompletion(context.Background(), "hiker", c, pace.Observation{Factor: 0.5, Accepted: true})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS user_profiles`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
}

func TestCleanup(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectExec(`DELETE FROM segment_completions WHERE completed_at < \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	if err := repo.Cleanup(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPingWithoutPool(t *testing.T) {
	_, repo := newMock(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
}
