package batch

import (
	"testing"
	"time"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 22 * * *", false},   // 10 PM daily
		{"0 12 * * 1-5", false}, // noon weekdays
		{"*/5 * * * *", false},  // every 5 minutes
		{"invalid", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestScheduleEntry_Validate(t *testing.T) {
	entry := ScheduleEntry{
		Name:  "nightly",
		Cron:  "0 22 * * *",
		Limit: 50,
	}

	if err := entry.Validate(); err != nil {
		t.Errorf("valid entry should not error: %v", err)
	}

	entry.Name = ""
	if err := entry.Validate(); err == nil {
		t.Error("empty name should error")
	}

	entry.Name = "nightly"
	entry.Cron = "not a cron"
	if err := entry.Validate(); err == nil {
		t.Error("bad cron should error")
	}

	entry.Cron = "0 22 * * *"
	entry.Limit = -1
	if err := entry.Validate(); err == nil {
		t.Error("negative limit should error")
	}
}

func TestScheduler_NextRun(t *testing.T) {
	entry := ScheduleEntry{Name: "test", Cron: "0 22 * * *"}

	sched, err := NewScheduler([]ScheduleEntry{entry}, nil)
	if err != nil {
		t.Fatal(err)
	}

	next := sched.NextRun("test")
	if next.IsZero() {
		t.Error("NextRun should return a time")
	}
	if !next.After(time.Now()) {
		t.Error("NextRun should be in the future")
	}

	if !sched.NextRun("missing").IsZero() {
		t.Error("NextRun for unknown entry should be zero")
	}
}

func TestScheduler_ShouldRun(t *testing.T) {
	entry := ScheduleEntry{Name: "test", Cron: "* * * * *"} // every minute

	sched, err := NewScheduler([]ScheduleEntry{entry}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !sched.ShouldRun("test") {
		t.Error("entry with a long-passed last run should be due")
	}

	sched.MarkRunning("test")
	if sched.ShouldRun("test") {
		t.Error("running entry should not be due")
	}

	sched.MarkComplete("test")
	if sched.ShouldRun("test") {
		t.Error("just-completed entry should not be immediately due again")
	}
}

func TestScheduler_RejectsInvalidEntries(t *testing.T) {
	_, err := NewScheduler([]ScheduleEntry{{Name: "x", Cron: "bogus"}}, nil)
	if err == nil {
		t.Error("invalid entry should fail scheduler construction")
	}
}
