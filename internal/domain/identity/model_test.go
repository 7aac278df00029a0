package identity_test

import (
	"strings"
	"testing"

	"gymfloor/internal/domain/attendance"
	"gymfloor/internal/domain/identity"
)

// TestIdentityValidation tests validation of Identity.
func TestIdentityValidation(t *testing.T) {
	tests := []struct {
		name     string
		identity identity.Identity
		wantErr  bool
	}{
		{
			name:     "valid member",
			identity: identity.Identity{ID: "u1", FullName: "Ana Silva", Role: attendance.RoleMember},
		},
		{
			name:     "valid trainer without names",
			identity: identity.Identity{ID: "u2", Role: attendance.RoleTrainer},
		},
		{
			name:     "missing id",
			identity: identity.Identity{FullName: "Ana Silva", Role: attendance.RoleMember},
			wantErr:  true,
		},
		{
			name:     "name too long",
			identity: identity.Identity{ID: "u1", FullName: strings.Repeat("a", 101), Role: attendance.RoleMember},
			wantErr:  true,
		},
		{
			name:     "invalid role",
			identity: identity.Identity{ID: "u1", Role: "admin"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.identity.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Identity.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestIdentityDisplayName tests the name fallback chain.
func TestIdentityDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		identity identity.Identity
		want     string
	}{
		{"full name wins", identity.Identity{FullName: "Ana Silva", Username: "ana"}, "Ana Silva"},
		{"username fallback", identity.Identity{FullName: "  ", Username: "ana"}, "ana"},
		{"fixed fallback", identity.Identity{}, identity.UnknownDisplayName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
