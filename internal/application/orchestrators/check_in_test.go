package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	attendanceStore "gymfloor/internal/adapters/storage/attendance"
	identityStore "gymfloor/internal/adapters/storage/identity"
	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// memoryIdentityStore implements CheckInIdentityStore and synIdentityStore.
type memoryIdentityStore struct {
	byID  map[string]identity.Identity
	order []string
	err   error
}

func newMemoryIdentityStore(ids ...identity.Identity) *memoryIdentityStore {
	s := &memoryIdentityStore{byID: map[string]identity.Identity{}}
	for _, id := range ids {
		s.Save(context.Background(), id)
	}
	return s
}

func (s *memoryIdentityStore) GetByID(_ context.Context, id string) (identity.Identity, error) {
	if s.err != nil {
		return identity.Identity{}, s.err
	}
	v, ok := s.byID[id]
	if !ok {
		return identity.Identity{}, fmt.Errorf("%w: %s", identityStore.ErrNotFound, id)
	}
	return v, nil
}

func (s *memoryIdentityStore) Save(_ context.Context, id identity.Identity) error {
	if _, ok := s.byID[id.ID]; !ok {
		s.order = append(s.order, id.ID)
	}
	s.byID[id.ID] = id
	return nil
}

func (s *memoryIdentityStore) List(_ context.Context, filter identityStore.ListFilter) ([]identity.Identity, error) {
	var out []identity.Identity
	for _, id := range s.order {
		out = append(out, s.byID[id])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// memoryAttendanceStore implements CheckInAttendanceStore and synAttendanceStore.
type memoryAttendanceStore struct {
	mu      sync.Mutex
	events  []attendance.Event
	saveErr error
	// staleReads hides active rows from ListActiveByUserID, as a reader
	// racing another check-in would see them.
	staleReads bool
}

func (s *memoryAttendanceStore) InsertActive(_ context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, existing := range s.events {
		if existing.UserID == e.UserID && existing.IsActive {
			return attendanceStore.ErrActiveExists
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memoryAttendanceStore) Save(_ context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for i := range s.events {
		if s.events[i].ID == e.ID {
			s.events[i] = e
			return nil
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memoryAttendanceStore) ListActiveByUserID(_ context.Context, userID string) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []attendance.Event{}
	if s.staleReads {
		return out, nil
	}
	for _, e := range s.events {
		if e.UserID == userID && e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// countingRecorder implements CheckInRecorder.
type countingRecorder map[string]int

func (c countingRecorder) IncCheckIns(action string, n int) { c[action] += n }

var (
	checkInNow = time.Date(2026, 3, 18, 7, 30, 0, 0, time.UTC)
	ana        = identity.Identity{ID: "ana", FullName: "Ana Silva", Role: attendance.RoleMember}
	bruno      = identity.Identity{ID: "bruno", Username: "bruno", Role: attendance.RoleTrainer}
)

func newCheckInDeps() (CheckInDeps, *memoryAttendanceStore, countingRecorder) {
	events := &memoryAttendanceStore{}
	rec := countingRecorder{}
	return CheckInDeps{
		IdentityStore:   newMemoryIdentityStore(ana, bruno),
		AttendanceStore: events,
		Metrics:         rec,
	}, events, rec
}

// TestExecuteCheckIn_StampsIdentityRole verifies a new active event carries
// the identity role.
func TestExecuteCheckIn_StampsIdentityRole(t *testing.T) {
	deps, events, rec := newCheckInDeps()
	result, err := ExecuteCheckIn(context.Background(), CheckInInput{UserID: "bruno", Reason: "open mat", Now: checkInNow}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := result.Event
	if e.ID == "" || e.UserRole != attendance.RoleTrainer || !e.IsActive || !e.CheckInAt.Equal(checkInNow) || e.Reason != "open mat" {
		t.Errorf("event = %+v", e)
	}
	if len(events.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(events.events))
	}
	if rec["checkin"] != 1 {
		t.Errorf("recorded checkins = %d, want 1", rec["checkin"])
	}
}

func TestExecuteCheckIn_Errors(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		setup   func(*memoryAttendanceStore)
		wantErr error
	}{
		{"missing user", "", nil, ErrMissingUserID},
		{"unknown user", "nobody", nil, ErrUnknownUser},
		{"already checked in", "ana", func(s *memoryAttendanceStore) {
			s.events = append(s.events, attendance.Event{ID: "open", UserID: "ana", UserRole: attendance.RoleMember, CheckInAt: checkInNow.Add(-time.Hour), IsActive: true})
		}, ErrAlreadyCheckedIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, events, rec := newCheckInDeps()
			if tt.setup != nil {
				tt.setup(events)
			}
			before := len(events.events)
			_, err := ExecuteCheckIn(context.Background(), CheckInInput{UserID: tt.userID, Now: checkInNow}, deps)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(events.events) != before || rec["checkin"] != 0 {
				t.Errorf("failed check-in must not write: events %d->%d, recorded %d", before, len(events.events), rec["checkin"])
			}
		})
	}
}

func TestExecuteCheckIn_StoreFailure(t *testing.T) {
	deps, events, _ := newCheckInDeps()
	events.saveErr = errors.New("disk full")
	if _, err := ExecuteCheckIn(context.Background(), CheckInInput{UserID: "ana", Now: checkInNow}, deps); err == nil {
		t.Fatal("expected error from store")
	}

	deps.IdentityStore = &memoryIdentityStore{err: errors.New("db locked")}
	_, err := ExecuteCheckIn(context.Background(), CheckInInput{UserID: "ana", Now: checkInNow}, deps)
	if err == nil || errors.Is(err, ErrUnknownUser) {
		t.Fatalf("error = %v, want store error not ErrUnknownUser", err)
	}
}

// TestExecuteCheckIn_ConcurrentSingleActive verifies racing check-ins that
// all pass the lookup still leave exactly one active event.
func TestExecuteCheckIn_ConcurrentSingleActive(t *testing.T) {
	deps, events, rec := newCheckInDeps()
	events.staleReads = true

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ExecuteCheckIn(context.Background(), CheckInInput{UserID: "ana", Now: checkInNow}, deps)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAlreadyCheckedIn):
			t.Errorf("error = %v, want ErrAlreadyCheckedIn", err)
		}
	}
	if succeeded != 1 || len(events.events) != 1 {
		t.Errorf("succeeded = %d, stored = %d, want exactly one", succeeded, len(events.events))
	}
	if rec["checkin"] != 1 {
		t.Errorf("recorded check-ins = %d, want 1", rec["checkin"])
	}
}

// TestExecuteCheckOut_ClosesAllActive verifies every open event is closed.
func TestExecuteCheckOut_ClosesAllActive(t *testing.T) {
	deps, events, rec := newCheckInDeps()
	events.events = []attendance.Event{
		{ID: "a1", UserID: "ana", UserRole: attendance.RoleMember, CheckInAt: checkInNow.Add(-2 * time.Hour), IsActive: true},
		{ID: "a2", UserID: "ana", UserRole: attendance.RoleMember, CheckInAt: checkInNow.Add(-time.Hour), IsActive: true},
		{ID: "b1", UserID: "bruno", UserRole: attendance.RoleTrainer, CheckInAt: checkInNow.Add(-time.Hour), IsActive: true},
	}

	result, err := ExecuteCheckOut(context.Background(), CheckOutInput{UserID: "ana", Now: checkInNow}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Closed) != 2 {
		t.Fatalf("closed = %d, want 2", len(result.Closed))
	}
	for _, e := range events.events {
		switch e.UserID {
		case "ana":
			if e.IsActive || !e.CheckOutAt.Equal(checkInNow) {
				t.Errorf("event %s not closed: %+v", e.ID, e)
			}
		case "bruno":
			if !e.IsActive {
				t.Errorf("other user's event %s was closed", e.ID)
			}
		}
	}
	if rec["checkout"] != 2 {
		t.Errorf("recorded checkouts = %d, want 2", rec["checkout"])
	}

	_, err = ExecuteCheckOut(context.Background(), CheckOutInput{UserID: "ana", Now: checkInNow}, deps)
	if !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("second checkout error = %v, want ErrNotCheckedIn", err)
	}
}

// TestExecuteCheckOut_WithoutIdentity verifies stray rows can be closed.
func TestExecuteCheckOut_WithoutIdentity(t *testing.T) {
	deps, events, _ := newCheckInDeps()
	events.events = []attendance.Event{{ID: "g1", UserID: "ghost", UserRole: attendance.RoleMember, CheckInAt: checkInNow.Add(-time.Hour), IsActive: true}}
	deps.Metrics = nil

	if _, err := ExecuteCheckOut(context.Background(), CheckOutInput{UserID: "ghost", Now: checkInNow}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events.events[0].IsActive {
		t.Error("ghost event still active")
	}
}
