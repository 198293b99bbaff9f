package ledger

import (
	"fmt"
	"sort"

	"github.com/mmynk/groupcart/internal/models"
)

// validNext lists the statuses each status may move to. StatusNone stands for
// "no record": removal takes approved back to none.
var validNext = map[models.ParticipantStatus][]models.ParticipantStatus{
	models.StatusNone:     {models.StatusPending},
	models.StatusPending:  {models.StatusPending, models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusNone},
	models.StatusRejected: {models.StatusPending},
}

// CanTransition reports whether a participant may move from one status to another.
func CanTransition(from, to models.ParticipantStatus) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition describes one applied participant change.
type Transition struct {
	UserID string
	From   models.ParticipantStatus
	To     models.ParticipantStatus
	// CapacityBefore and CapacityAfter are the derived capacity lock around the change.
	CapacityBefore bool
	CapacityAfter  bool
}

// CapacityChanged reports whether the transition flipped the capacity lock.
func (t Transition) CapacityChanged() bool {
	return t.CapacityBefore != t.CapacityAfter
}

func (l *Ledger) apply(op, userID string, to models.ParticipantStatus) (Transition, error) {
	from := l.group.StatusOf(userID)
	if !CanTransition(from, to) {
		return Transition{}, l.fail(op, fmt.Errorf("%w: %s -> %s", models.ErrInvalidArgument, displayStatus(from), displayStatus(to)))
	}
	before := l.group.CapacityLocked()
	if to == models.StatusNone {
		delete(l.group.Participants, userID)
	} else {
		l.group.Participants[userID] = models.Participant{
			UserID:    userID,
			Status:    to,
			UpdatedAt: l.now().Unix(),
		}
	}
	return Transition{
		UserID:         userID,
		From:           from,
		To:             to,
		CapacityBefore: before,
		CapacityAfter:  l.group.CapacityLocked(),
	}, nil
}

// RequestJoin records a pending join request for userID. Re-requesting after a
// rejection replaces the rejected record.
func (l *Ledger) RequestJoin(userID string) (Transition, error) {
	const op = "ledger.RequestJoin"
	if userID == "" {
		return Transition{}, l.fail(op, models.ErrInvalidArgument)
	}
	if l.group.IsMember(userID) {
		return Transition{}, l.fail(op, models.ErrAlreadyApproved)
	}
	if l.group.CapacityLocked() {
		return Transition{}, l.fail(op, models.ErrGroupAtCapacity)
	}
	return l.apply(op, userID, models.StatusPending)
}

// Approve moves a pending request to approved. Only the owner may approve.
func (l *Ledger) Approve(actorID, userID string) (Transition, error) {
	const op = "ledger.Approve"
	if actorID != l.group.OwnerID {
		return Transition{}, l.fail(op, models.ErrNotOwner)
	}
	if l.group.StatusOf(userID) != models.StatusPending {
		return Transition{}, l.fail(op, models.ErrNotPending)
	}
	if l.group.CapacityLocked() {
		return Transition{}, l.fail(op, models.ErrGroupAtCapacity)
	}
	return l.apply(op, userID, models.StatusApproved)
}

// Reject moves a pending request to rejected. Only the owner may reject.
func (l *Ledger) Reject(actorID, userID string) (Transition, error) {
	const op = "ledger.Reject"
	if actorID != l.group.OwnerID {
		return Transition{}, l.fail(op, models.ErrNotOwner)
	}
	if l.group.StatusOf(userID) != models.StatusPending {
		return Transition{}, l.fail(op, models.ErrNotPending)
	}
	return l.apply(op, userID, models.StatusRejected)
}

// Remove deletes an approved participant. The owner may remove anyone but
// themselves; other users may only remove themselves.
func (l *Ledger) Remove(actorID, userID string) (Transition, error) {
	const op = "ledger.Remove"
	if actorID != l.group.OwnerID && actorID != userID {
		return Transition{}, l.fail(op, models.ErrNotOwner)
	}
	if userID == l.group.OwnerID {
		return Transition{}, l.fail(op, models.ErrCannotRemoveOwner)
	}
	if l.group.StatusOf(userID) != models.StatusApproved {
		return Transition{}, l.fail(op, models.ErrNotApproved)
	}
	return l.apply(op, userID, models.StatusNone)
}

// ParticipantsByStatus returns the user IDs holding status, sorted.
func (l *Ledger) ParticipantsByStatus(status models.ParticipantStatus) []string {
	var ids []string
	for id, p := range l.group.Participants {
		if p.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func displayStatus(s models.ParticipantStatus) string {
	if s == models.StatusNone {
		return "none"
	}
	return string(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
