package roles

import (
	"errors"
	"testing"
)

func TestRanksAreContiguousFromOne(t *testing.T) {
	all := All()
	for i, r := range all {
		if r.Rank() != i+1 {
			t.Fatalf("role %s has rank %d, want %d", r, r.Rank(), i+1)
		}
	}
}

func TestAllowsIsTotalOrder(t *testing.T) {
	all := All()
	for _, actual := range all {
		for _, required := range all {
			got := actual.Allows(required)
			want := actual.Rank() >= required.Rank()
			if got != want {
				t.Fatalf("Allows(%s, %s) = %v, want %v", actual, required, got, want)
			}
		}
	}
}

func TestUnknownRoleNeverAllows(t *testing.T) {
	bogus := Role("superuser")
	if bogus.Allows(Viewer) {
		t.Fatal("unknown role must not satisfy any requirement")
	}
	if Admin.Allows(bogus) {
		t.Fatal("unknown requirement must never be satisfied")
	}
	if bogus.Valid() {
		t.Fatal("unknown role must not be valid")
	}
}

func TestParse(t *testing.T) {
	r, err := Parse("project_owner")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if r != ProjectOwner {
		t.Fatalf("Parse returned %s", r)
	}

	if _, err := Parse("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0] = Admin
	if All()[0] != Viewer {
		t.Fatal("All must return a defensive copy")
	}
}
