package coordinator

import (
	"context"
	"log/slog"

	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/models"
)

type transitionFunc func(l *ledger.Ledger) (ledger.Transition, error)

// transition applies one participant change and queues its events.
func (c *Coordinator) transition(ctx context.Context, op, groupID, actorID string, apply transitionFunc) (*models.Group, error) {
	var applied ledger.Transition
	group, err := c.mutate(ctx, op, groupID, func(l *ledger.Ledger, emit func(string, any)) error {
		t, err := apply(l)
		if err != nil {
			return err
		}
		applied = t

		emit(events.EventParticipantChanged, events.ParticipantChangedPayload{
			GroupID: groupID,
			UserID:  t.UserID,
			ActorID: actorID,
			From:    statusName(t.From),
			To:      statusName(t.To),
		})
		if t.CapacityChanged() {
			eventType := events.EventCapacityReopened
			if t.CapacityAfter {
				eventType = events.EventCapacityReached
			}
			emit(eventType, events.CapacityPayload{GroupID: groupID, ApprovedCount: l.Group().ApprovedCount()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.Transitions.WithLabelValues(statusName(applied.To)).Inc()
	slog.Info("Participant updated",
		"group_id", groupID,
		"user_id", applied.UserID,
		"actor_id", actorID,
		"from", statusName(applied.From),
		"to", statusName(applied.To),
		"capacity_locked", applied.CapacityAfter,
	)
	return group, nil
}

func statusName(s models.ParticipantStatus) string {
	if s == models.StatusNone {
		return "none"
	}
	return string(s)
}

// RequestJoin files a join request for userID.
func (c *Coordinator) RequestJoin(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return c.transition(ctx, "RequestJoin", groupID, userID, func(l *ledger.Ledger) (ledger.Transition, error) {
		return l.RequestJoin(userID)
	})
}

// Approve accepts userID's pending request. Owner only.
func (c *Coordinator) Approve(ctx context.Context, groupID, actorID, userID string) (*models.Group, error) {
	return c.transition(ctx, "Approve", groupID, actorID, func(l *ledger.Ledger) (ledger.Transition, error) {
		return l.Approve(actorID, userID)
	})
}

// Reject declines userID's pending request. Owner only.
func (c *Coordinator) Reject(ctx context.Context, groupID, actorID, userID string) (*models.Group, error) {
	return c.transition(ctx, "Reject", groupID, actorID, func(l *ledger.Ledger) (ledger.Transition, error) {
		return l.Reject(actorID, userID)
	})
}

// Remove takes an approved participant out of the group. The owner may remove
// anyone else; participants may remove themselves.
func (c *Coordinator) Remove(ctx context.Context, groupID, actorID, userID string) (*models.Group, error) {
	return c.transition(ctx, "Remove", groupID, actorID, func(l *ledger.Ledger) (ledger.Transition, error) {
		return l.Remove(actorID, userID)
	})
}
