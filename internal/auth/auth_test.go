package auth

import (
	"errors"
	"testing"
	"time"
)

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleEventAdmin, RoleSuperAdmin} {
		got, err := ParseRole(r.String())
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", r.String(), err)
		}
		if got != r {
			t.Errorf("ParseRole(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("ParseRole accepted an unknown role")
	}
}

func TestCanManageEvent(t *testing.T) {
	tests := []struct {
		name    string
		p       Principal
		ownerID int64
		want    bool
	}{
		{"super admin manages anyone's event", Principal{ID: 1, Role: RoleSuperAdmin}, 99, true},
		{"event admin manages own event", Principal{ID: 5, Role: RoleEventAdmin}, 5, true},
		{"event admin denied on foreign event", Principal{ID: 5, Role: RoleEventAdmin}, 6, false},
		{"plain user manages nothing", Principal{ID: 5, Role: RoleUser}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.CanManageEvent(tt.ownerID); got != tt.want {
				t.Errorf("CanManageEvent(%d) = %v, want %v", tt.ownerID, got, tt.want)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	if (Principal{Role: RoleUser}).IsAdmin() {
		t.Error("plain user counted as admin")
	}
	if !(Principal{Role: RoleEventAdmin}).IsAdmin() || !(Principal{Role: RoleSuperAdmin}).IsAdmin() {
		t.Error("admin roles not counted as admin")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	in := Principal{ID: 12, Role: RoleEventAdmin}
	token, err := IssueToken("secret", time.Hour, in)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	out, err := VerifyToken("secret", token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", time.Hour, Principal{ID: 1, Role: RoleUser})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := VerifyToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken("secret", -time.Minute, Principal{ID: 1, Role: RoleUser})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := VerifyToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	if _, err := VerifyToken("secret", "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}
}
