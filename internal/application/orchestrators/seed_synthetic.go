package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	identityFilter "gymfloor/internal/adapters/storage/identity"
	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// DefaultSeedDays is how much history the synthetic seed generates.
const DefaultSeedDays = 35

type synIdentityStore interface {
	Save(ctx context.Context, id identity.Identity) error
	List(ctx context.Context, filter identityFilter.ListFilter) ([]identity.Identity, error)
}

type synAttendanceStore interface {
	Save(ctx context.Context, e attendance.Event) error
}

// SeedSyntheticDeps holds the stores needed for synthetic data seeding.
type SeedSyntheticDeps struct {
	IdentityStore   synIdentityStore
	AttendanceStore synAttendanceStore
}

// SeedSyntheticInput controls the generated history.
type SeedSyntheticInput struct {
	Now  time.Time // anchors the history; defaults to time.Now()
	Days int       // defaults to DefaultSeedDays
	Seed int64     // random source seed, for reproducible fixtures
}

// SeedSyntheticResult reports what was written.
type SeedSyntheticResult struct {
	Skipped    bool
	Identities int
	Events     int
}

// ExecuteSeedSynthetic fills an empty database with a small gym roster and a
// few weeks of check-ins. It is idempotent: nothing is written when any
// identity already exists.
// The history deliberately includes rows the report must tolerate: a walk-in
// without an identity, a reversed interval and a role stamp that no longer
// matches the identity.
func ExecuteSeedSynthetic(ctx context.Context, input SeedSyntheticInput, deps SeedSyntheticDeps) (SeedSyntheticResult, error) {
	existing, err := deps.IdentityStore.List(ctx, identityFilter.ListFilter{Limit: 1})
	if err != nil {
		return SeedSyntheticResult{}, fmt.Errorf("seed_synthetic: list identities: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed_event", "event", "synthetic_skip", "reason", "already_seeded")
		return SeedSyntheticResult{Skipped: true}, nil
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	days := input.Days
	if days <= 0 {
		days = DefaultSeedDays
	}
	rng := rand.New(rand.NewSource(input.Seed))

	roster := []identity.Identity{
		{FullName: "Marcus Oliveira", Username: "marcus", Role: attendance.RoleTrainer},
		{FullName: "Sarah Chen", Username: "sarah", Role: attendance.RoleTrainer},
		{FullName: "Tane Patel", Username: "tane", Role: attendance.RoleMember},
		{FullName: "Emily Rodriguez", Username: "emily", Role: attendance.RoleMember},
		{FullName: "James Mitchell", Username: "james", Role: attendance.RoleMember},
		{FullName: "Aroha Williams", Username: "aroha", Role: attendance.RoleMember},
		{FullName: "Dave Thompson", Username: "dave", Role: attendance.RoleMember},
		{FullName: "", Username: "mika.t", Role: attendance.RoleMember},
		{FullName: "Liam O'Brien", Username: "liam", Role: attendance.RoleMember},
		{FullName: "Ngaire Henare", Username: "ngaire", Role: attendance.RoleMember},
	}
	for i := range roster {
		roster[i].ID = uuid.New().String()
		if err := deps.IdentityStore.Save(ctx, roster[i]); err != nil {
			return SeedSyntheticResult{}, fmt.Errorf("seed identity %s: %w", roster[i].Username, err)
		}
	}

	reasons := []string{"", "", "open mat", "fundamentals", "competition class", "strength"}
	var count int
	save := func(e attendance.Event) error {
		e.ID = uuid.New().String()
		if err := deps.AttendanceStore.Save(ctx, e); err != nil {
			return fmt.Errorf("seed event for %s: %w", e.UserID, err)
		}
		count++
		return nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for d := days; d >= 1; d-- {
		day := midnight.AddDate(0, 0, -d)
		for _, id := range roster {
			// Trainers are in most days, members two or three times a week.
			chance := 0.35
			if id.Role == attendance.RoleTrainer {
				chance = 0.8
			}
			if rng.Float64() >= chance {
				continue
			}
			in := day.Add(time.Duration(6*60+rng.Intn(14*60)) * time.Minute)
			out := in.Add(time.Duration(45+rng.Intn(75)) * time.Minute)
			if err := save(attendance.Event{
				UserID: id.ID, UserRole: id.Role, CheckInAt: in, CheckOutAt: out,
				Reason: reasons[rng.Intn(len(reasons))],
			}); err != nil {
				return SeedSyntheticResult{}, err
			}
		}
	}

	// Today: a couple of people still on the floor plus the edge-case rows.
	today := []attendance.Event{
		{UserID: roster[0].ID, UserRole: roster[0].Role, CheckInAt: now.Add(-50 * time.Minute), IsActive: true, Reason: "open mat"},
		{UserID: roster[2].ID, UserRole: roster[2].Role, CheckInAt: now.Add(-35 * time.Minute), IsActive: true},
		{UserID: roster[3].ID, UserRole: roster[3].Role, CheckInAt: now.Add(-3 * time.Hour), CheckOutAt: now.Add(-2 * time.Hour)},
		{UserID: "walk-in-" + uuid.New().String()[:8], UserRole: attendance.RoleMember, CheckInAt: now.Add(-2 * time.Hour), CheckOutAt: now.Add(-80 * time.Minute), Reason: "trial class"},
		{UserID: roster[4].ID, UserRole: roster[4].Role, CheckInAt: now.Add(-90 * time.Minute), CheckOutAt: now.Add(-95 * time.Minute), Reason: "kiosk clock drift"},
		{UserID: roster[5].ID, UserRole: attendance.RoleTrainer, CheckInAt: now.Add(-4 * time.Hour), CheckOutAt: now.Add(-3 * time.Hour), Reason: "covering class"},
	}
	for _, e := range today {
		if e.CheckInAt.Before(midnight) {
			// Early in the day; shift the row onto today's date.
			shift := midnight.Sub(e.CheckInAt)
			e.CheckInAt = e.CheckInAt.Add(shift)
			if !e.CheckOutAt.IsZero() {
				e.CheckOutAt = e.CheckOutAt.Add(shift)
			}
		}
		if err := save(e); err != nil {
			return SeedSyntheticResult{}, err
		}
	}

	slog.Info("seed_event", "event", "synthetic_seeded", "identities", len(roster), "events", count, "days", days)
	return SeedSyntheticResult{Identities: len(roster), Events: count}, nil
}
