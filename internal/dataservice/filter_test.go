package dataservice

import (
	"errors"
	"testing"
)

func TestFilterMatchDateRange(t *testing.T) {
	f := Eq("user_id", "u1").Gte("date", "2024-01-01").Lte("date", "2024-01-31")

	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"inside", Row{"user_id": "u1", "date": "2024-01-15"}, true},
		{"first day inclusive", Row{"user_id": "u1", "date": "2024-01-01"}, true},
		{"last day inclusive", Row{"user_id": "u1", "date": "2024-01-31"}, true},
		{"before", Row{"user_id": "u1", "date": "2023-12-31"}, false},
		{"after", Row{"user_id": "u1", "date": "2024-02-01"}, false},
		{"other user", Row{"user_id": "u2", "date": "2024-01-15"}, false},
		{"missing column", Row{"user_id": "u1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Match(tt.row); got != tt.want {
				t.Fatalf("Match(%v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func TestFilterBuildersDoNotAlias(t *testing.T) {
	base := Eq("user_id", "u1")
	a := base.Eq("id", "a")
	b := base.Eq("id", "b")
	if a[1].Value != "a" || b[1].Value != "b" {
		t.Fatalf("filters share backing array: %v %v", a, b)
	}
	if len(base) != 1 {
		t.Fatalf("base filter mutated: %v", base)
	}
}

func TestFilterValidate(t *testing.T) {
	if err := Eq("id", "1").Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bad := Filter{{Column: "id", Op: "like", Value: "x"}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected unsupported operator error")
	}
}

func TestWrapKeepsServiceError(t *testing.T) {
	orig := Errorf("insert", "duplicate key")
	if got := Wrap("other", orig); got != orig {
		t.Fatalf("expected same error, got %v", got)
	}

	wrapped := Wrap("select", errors.New("boom"))
	var svcErr *ServiceError
	if !errors.As(wrapped, &svcErr) || svcErr.Op != "select" || svcErr.Message != "boom" {
		t.Fatalf("unexpected wrap result: %#v", wrapped)
	}

	if !errors.Is(NotFound("delete", TableIncome), ErrNotFound) {
		t.Fatal("NotFound should match ErrNotFound")
	}
}
