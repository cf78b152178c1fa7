package models

import "testing"

func TestParseCableStatus(t *testing.T) {
	for _, valid := range []string{"NotLaid", "Cut", "Laid", "Removed", "Blocked", "Eliminated"} {
		status, err := ParseCableStatus(valid)
		if err != nil {
			t.Fatalf("ParseCableStatus(%q) error: %v", valid, err)
		}
		if string(status) != valid {
			t.Fatalf("ParseCableStatus(%q) got %s", valid, status)
		}
	}
	if _, err := ParseCableStatus("Posato"); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestCapabilityMatrix(t *testing.T) {
	admin := Capability{UserId: 1, Role: UserRoleAdmin}
	office := Capability{UserId: 2, Role: UserRoleOffice}
	crew := Capability{UserId: 3, Role: UserRoleCrew}
	anonymous := Capability{}

	cases := []struct {
		name string
		can  func(Capability) bool
		want map[string]bool
	}{
		{
			name: "canonical",
			can:  Capability.CanMutateCanonical,
			want: map[string]bool{"admin": true, "office": true, "crew": false, "anonymous": false},
		},
		{
			name: "escalate",
			can:  Capability.CanEscalateStatus,
			want: map[string]bool{"admin": true, "office": true, "crew": false, "anonymous": false},
		},
		{
			name: "daily links",
			can:  Capability.CanMutateDailyLinks,
			want: map[string]bool{"admin": true, "office": true, "crew": true, "anonymous": false},
		},
		{
			name: "import",
			can:  Capability.CanImport,
			want: map[string]bool{"admin": true, "office": true, "crew": false, "anonymous": false},
		},
		{
			name: "validate reports",
			can:  Capability.CanValidateReports,
			want: map[string]bool{"admin": true, "office": true, "crew": false, "anonymous": false},
		},
	}

	caps := map[string]Capability{"admin": admin, "office": office, "crew": crew, "anonymous": anonymous}
	for _, tc := range cases {
		for who, capability := range caps {
			if got := tc.can(capability); got != tc.want[who] {
				t.Fatalf("%s: expected %s=%v, got %v", tc.name, who, tc.want[who], got)
			}
		}
	}
}
