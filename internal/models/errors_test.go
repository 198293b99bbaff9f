package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      Kind
		retryable bool
	}{
		{"nil", nil, "", false},
		{"bare sentinel", ErrInvalidQuantity, KindValidation, false},
		{"engine error", NewError("ledger.AddItem", "g1", ErrGroupLocked), KindConflict, false},
		{"wrapped engine error", fmt.Errorf("failed to add item: %w", NewError("ledger.AddItem", "g1", ErrNotOwner)), KindPermission, false},
		{"not found", NewError("coordinator.GetGroup", "g1", ErrGroupNotFound), KindNotFound, false},
		{"dependency", DependencyError("store.MutateGroup", errors.New("database is locked")), KindDependency, true},
		{"dependency wins over a wrapped not-found", DependencyError("ledger.Quotes", ErrProductNotFound), KindDependency, true},
		{"outside the taxonomy", errors.New("boom"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestDependencyErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("failed to load group: %w", DependencyError("store.GetGroup", cause))

	if !errors.Is(err, ErrDependencyFailure) {
		t.Error("expected ErrDependencyFailure in the chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause in the chain")
	}
	var engineErr *Error
	if !errors.As(err, &engineErr) {
		t.Fatal("expected *Error in the chain")
	}
	if engineErr.Op != "store.GetGroup" {
		t.Errorf("Op = %q, want store.GetGroup", engineErr.Op)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewError("ledger.Approve", "g1", ErrGroupAtCapacity), "ledger.Approve [g1]: group is full"},
		{NewError("calculator.Resolve", "", ErrInvalidQuantity), "calculator.Resolve: quantity must be positive"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if !IsConflict(tests[0].err) || IsConflict(tests[1].err) {
		t.Error("IsConflict should hold only for the capacity error")
	}
}
