package projections

import (
	"context"
	"errors"
	"fmt"

	"gymfloor/internal/adapters/storage/attendance"
	identityStore "gymfloor/internal/adapters/storage/identity"
	domainAttendance "gymfloor/internal/domain/attendance"
	domainIdentity "gymfloor/internal/domain/identity"
)

var errStoreDown = errors.New("store down")

// mockAttendanceStore implements AttendanceStore for testing.
// List returns every stored event and remembers the filter it was given.
type mockAttendanceStore struct {
	events     []domainAttendance.Event
	err        error
	lastFilter attendance.ListFilter
}

func (m *mockAttendanceStore) List(_ context.Context, filter attendance.ListFilter) ([]domainAttendance.Event, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return append([]domainAttendance.Event(nil), m.events...), nil
}

func (m *mockAttendanceStore) ListByUserID(_ context.Context, userID string) ([]domainAttendance.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domainAttendance.Event{}
	for _, e := range m.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockIdentityStore implements IdentityStore for testing.
type mockIdentityStore struct {
	identities map[string]domainIdentity.Identity
	err        error
}

func (m *mockIdentityStore) GetByID(_ context.Context, id string) (domainIdentity.Identity, error) {
	if m.err != nil {
		return domainIdentity.Identity{}, m.err
	}
	v, ok := m.identities[id]
	if !ok {
		return domainIdentity.Identity{}, fmt.Errorf("%w: %s", identityStore.ErrNotFound, id)
	}
	return v, nil
}

func (m *mockIdentityStore) ListByIDs(_ context.Context, ids []string) ([]domainIdentity.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domainIdentity.Identity
	for _, id := range ids {
		if v, ok := m.identities[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// observation is one ObserveReport call.
type observation struct {
	window, role, status string
	events               int
}

// mockObserver implements ReportObserver for testing.
type mockObserver struct {
	calls []observation
}

func (m *mockObserver) ObserveReport(window, role, status string, _ float64, events int) {
	m.calls = append(m.calls, observation{window, role, status, events})
}
