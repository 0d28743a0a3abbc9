package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Apiary/internal/domain"
)

func TestNextDueInterval(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 300, Timezone: "UTC"}
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}

	want := from.Add(5 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextDueCron(t *testing.T) {
	// Каждый день в 9:00
	sched := &domain.Schedule{CronExpr: "0 9 * * *", Timezone: "UTC"}
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}

	want := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextDueCronTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// 9:00 по Берлину — в марте (CET, UTC+1) это 8:00 UTC
	sched := &domain.Schedule{CronExpr: "0 9 * * *", Timezone: "Europe/Berlin"}
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}

	wantLocal := time.Date(2026, 3, 11, 9, 0, 0, 0, loc)
	if !next.Equal(wantLocal) {
		t.Errorf("next = %v, want %v", next, wantLocal)
	}
}

func TestNextDueCronPrecedesInterval(t *testing.T) {
	// Если заданы оба, используется cron
	sched := &domain.Schedule{CronExpr: "*/5 * * * *", IntervalSec: 7, Timezone: "UTC"}
	from := time.Date(2026, 3, 10, 12, 1, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("NextDue failed: %v", err)
	}

	want := time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextDueInvalid(t *testing.T) {
	if _, err := NextDue(&domain.Schedule{Timezone: "UTC"}, time.Now()); err == nil {
		t.Error("expected error for schedule without cron_expr and interval_sec")
	}

	if _, err := NextDue(&domain.Schedule{CronExpr: "not a cron", Timezone: "UTC"}, time.Now()); err == nil {
		t.Error("expected error for malformed cron expression")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("expected error for out-of-range minute")
	}
}
