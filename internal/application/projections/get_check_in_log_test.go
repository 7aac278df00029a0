package projections

import (
	"context"
	"testing"
	"time"

	"gymfloor/internal/application/listutil"
	"gymfloor/internal/domain/attendance"
)

// TestQueryGetCheckInLog_NewestFirst verifies the flat log ordering and joins.
func TestQueryGetCheckInLog_NewestFirst(t *testing.T) {
	deps, _, _ := fixtureDeps()
	result, err := QueryGetCheckInLog(context.Background(), GetCheckInLogQuery{Window: "week", Now: fixtureNow}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"e4", "e2", "e1", "e3"}
	if len(result.Entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(result.Entries), len(want))
	}
	for i, id := range want {
		if result.Entries[i].EventID != id {
			t.Errorf("Entries[%d] = %s, want %s", i, result.Entries[i].EventID, id)
		}
	}
	if result.Stats.TotalCheckIns != len(result.Entries) {
		t.Errorf("TotalCheckIns = %d, entries = %d", result.Stats.TotalCheckIns, len(result.Entries))
	}

	ghost := result.Entries[0]
	if ghost.DurationMinutes != 30 || !ghost.Valid {
		t.Errorf("ghost entry = %+v, want 30 valid minutes", ghost)
	}
	bruno := result.Entries[1]
	if bruno.DisplayName != "bruno" || bruno.Role != attendance.RoleTrainer || !bruno.IsActive || bruno.DurationMinutes != 0 {
		t.Errorf("bruno entry = %+v", bruno)
	}
}

// TestQueryGetCheckInLog_InvalidInterval verifies reversed intervals are
// listed but flagged.
func TestQueryGetCheckInLog_InvalidInterval(t *testing.T) {
	deps, store, _ := fixtureDeps()
	in := fixtureNow.Add(-time.Hour)
	store.events = []attendance.Event{{ID: "r1", UserID: "ana", UserRole: attendance.RoleMember, CheckInAt: in, CheckOutAt: in.Add(-time.Minute)}}

	result, err := QueryGetCheckInLog(context.Background(), GetCheckInLogQuery{Now: fixtureNow}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Valid || result.Entries[0].DurationMinutes != 0 {
		t.Errorf("entries = %+v, want one invalid zero-minute entry", result.Entries)
	}
}

// TestQueryGetCheckInLog_Paged verifies paging keeps the order and the
// full-set stats.
func TestQueryGetCheckInLog_Paged(t *testing.T) {
	deps, _, _ := fixtureDeps()
	result, err := QueryGetCheckInLog(context.Background(), GetCheckInLogQuery{
		Window: "week",
		Now:    fixtureNow,
		Page:   listutil.PageParams{Page: 2, PerPage: 3},
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].EventID != "e3" {
		t.Errorf("page 2 entries = %+v, want [e3]", result.Entries)
	}
	if result.Page.Total != 4 || result.Page.TotalPages != 2 || result.Page.Page != 2 {
		t.Errorf("page info = %+v", result.Page)
	}
	if result.Stats.TotalCheckIns != 4 {
		t.Errorf("TotalCheckIns = %d, want 4", result.Stats.TotalCheckIns)
	}
}
