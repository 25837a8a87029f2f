package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/LJTian/NewsPulse/internal/pipeline"
)

func TestSectionRunsFromReport(t *testing.T) {
	started := time.Date(2025, 11, 5, 19, 5, 0, 0, time.UTC)
	r := &pipeline.Report{
		Outcome:   pipeline.OutcomePublished,
		Forced:    true,
		StartedAt: started,
		Sections: []pipeline.SectionStats{
			{Key: "canada", Name: "Canada", Fetched: 10, Kept: 9, Drops: map[string]int{"empty_title": 1}, Published: 9},
			{Key: "technology", Name: "Technology", Error: "fetch https://feeds.test/technology: timeout"},
		},
	}

	rows := sectionRuns(r)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Outcome != "published" || rows[0].Published != 9 || rows[0].Drops["empty_title"] != 1 {
		t.Fatalf("canada row = %+v", rows[0])
	}
	if rows[1].Outcome != "failed" || rows[1].Error == "" {
		t.Fatalf("failed section should be marked failed: %+v", rows[1])
	}
	if !rows[0].Forced || !rows[0].RunAt.Equal(started) {
		t.Fatalf("run metadata not copied: %+v", rows[0])
	}
}

func TestTruncateRunesDB(t *testing.T) {
	long := strings.Repeat("错", 2000)
	if got := truncateRunesDB(long, 1024); len([]rune(got)) != 1024 {
		t.Fatalf("truncateRunesDB length = %d", len([]rune(got)))
	}
	if got := truncateRunesDB("  ok  ", 10); got != "ok" {
		t.Fatalf("truncateRunesDB = %q", got)
	}
	if got := toValidUTF8("a\xffb"); got != "a�b" {
		t.Fatalf("toValidUTF8 = %q", got)
	}
}
