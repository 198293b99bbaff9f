package models

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	// KindValidation errors are caller-correctable input problems.
	KindValidation Kind = "validation"
	// KindConflict errors mean the operation is invalid for the group's current state.
	KindConflict Kind = "conflict"
	// KindPermission errors mean the caller may not perform the operation.
	KindPermission Kind = "permission"
	// KindNotFound errors mean the addressed group or product does not exist.
	KindNotFound Kind = "not_found"
	// KindDependency errors come from a collaborator (catalog, persistence).
	KindDependency Kind = "dependency"
	// KindUnknown is reported for errors outside the taxonomy.
	KindUnknown Kind = "unknown"
)

// Validation errors
var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrDuplicateItem   = errors.New("product already in group, update its quantity instead")
	ErrItemNotFound    = errors.New("product not in group")
	ErrInvalidArgument = errors.New("invalid argument")
)

// State-conflict errors
var (
	ErrGroupLocked            = errors.New("group is locked by a recorded payment")
	ErrGroupAtCapacity        = errors.New("group is full")
	ErrNotPending             = errors.New("user has no pending join request")
	ErrNotApproved            = errors.New("user is not an approved participant")
	ErrAlreadyApproved        = errors.New("user is already a member of this group")
	ErrCannotRemoveOwner      = errors.New("the group owner cannot be removed")
	ErrParticipantNotApproved = errors.New("only the owner or approved participants can pay")
)

// Permission errors
var (
	ErrNotOwner = errors.New("only the group owner can do this")
)

// Not-found errors
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrProductNotFound = errors.New("product not found")
)

// ErrDependencyFailure wraps collaborator failures (catalog misses, persistence conflicts).
var ErrDependencyFailure = errors.New("dependency failure")

var kinds = map[error]Kind{
	ErrInvalidQuantity:        KindValidation,
	ErrDuplicateItem:          KindValidation,
	ErrItemNotFound:           KindValidation,
	ErrInvalidArgument:        KindValidation,
	ErrGroupLocked:            KindConflict,
	ErrGroupAtCapacity:        KindConflict,
	ErrNotPending:             KindConflict,
	ErrNotApproved:            KindConflict,
	ErrAlreadyApproved:        KindConflict,
	ErrCannotRemoveOwner:      KindConflict,
	ErrParticipantNotApproved: KindConflict,
	ErrNotOwner:               KindPermission,
	ErrGroupNotFound:          KindNotFound,
	ErrProductNotFound:        KindNotFound,
	ErrDependencyFailure:      KindDependency,
}

// Error carries the operation and group an engine error happened in.
// It unwraps to one of the sentinel errors above.
type Error struct {
	Op      string // e.g. "ledger.AddItem"
	GroupID string
	Err     error
}

func (e *Error) Error() string {
	if e.GroupID != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.GroupID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the operation and group it occurred in.
func NewError(op, groupID string, err error) *Error {
	return &Error{Op: op, GroupID: groupID, Err: err}
}

// DependencyError wraps a collaborator failure so it matches ErrDependencyFailure
// while keeping the cause available to errors.Is/As.
func DependencyError(op string, cause error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrDependencyFailure, cause)}
}

// KindOf classifies err. Dependency failures win over anything they wrap, so a
// catalog miss reported by a collaborator stays a dependency failure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrDependencyFailure) {
		return KindDependency
	}
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// IsConflict reports whether err is a state-conflict error.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsRetryable reports whether retrying the same call could succeed.
// Only dependency failures qualify; state conflicts never resolve by themselves.
func IsRetryable(err error) bool {
	return KindOf(err) == KindDependency
}
