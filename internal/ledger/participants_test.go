package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupcart/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ParticipantStatus
		want     bool
	}{
		{models.StatusNone, models.StatusPending, true},
		{models.StatusNone, models.StatusApproved, false},
		{models.StatusPending, models.StatusApproved, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusPending, models.StatusNone, false},
		{models.StatusApproved, models.StatusNone, true},
		{models.StatusApproved, models.StatusPending, false},
		{models.StatusApproved, models.StatusRejected, false},
		{models.StatusRejected, models.StatusPending, true},
		{models.StatusRejected, models.StatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(displayStatus(tt.from)+"->"+displayStatus(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func join(t *testing.T, l *Ledger, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := l.RequestJoin(u)
		require.NoError(t, err, "request join %s", u)
	}
}

func approve(t *testing.T, l *Ledger, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := l.Approve(l.Group().OwnerID, u)
		require.NoError(t, err, "approve %s", u)
	}
}

func TestRequestJoin(t *testing.T) {
	l := newLedger(t)

	tr, err := l.RequestJoin("alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNone, tr.From)
	assert.Equal(t, models.StatusPending, tr.To)

	_, err = l.RequestJoin("alice")
	require.NoError(t, err, "pending re-request is a no-op upsert")
	assert.Len(t, l.Group().Participants, 1)

	_, err = l.RequestJoin("owner")
	require.ErrorIs(t, err, models.ErrAlreadyApproved)

	approve(t, l, "alice")
	_, err = l.RequestJoin("alice")
	require.ErrorIs(t, err, models.ErrAlreadyApproved)
}

func TestRequestJoin_AfterRejection(t *testing.T) {
	l := newLedger(t)
	join(t, l, "alice")
	_, err := l.Reject("owner", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, l.Group().StatusOf("alice"))

	tr, err := l.RequestJoin("alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, tr.From)
	assert.Equal(t, models.StatusPending, l.Group().StatusOf("alice"))
	assert.Len(t, l.Group().Participants, 1)
}

func TestApproveAndReject_OwnerOnly(t *testing.T) {
	l := newLedger(t)
	join(t, l, "alice", "bob")

	_, err := l.Approve("bob", "alice")
	require.ErrorIs(t, err, models.ErrNotOwner)
	_, err = l.Reject("alice", "bob")
	require.ErrorIs(t, err, models.ErrNotOwner)
	assert.Equal(t, models.KindPermission, models.KindOf(err))

	_, err = l.Approve("owner", "carol")
	require.ErrorIs(t, err, models.ErrNotPending)
	_, err = l.Reject("owner", "carol")
	require.ErrorIs(t, err, models.ErrNotPending)
}

// Four approved members including the owner; the fifth approval fills the group.
func TestCapacityScenario(t *testing.T) {
	l := newLedger(t)
	join(t, l, "u1", "u2", "u3", "u4")
	approve(t, l, "u1", "u2", "u3")
	require.Equal(t, 4, l.Group().ApprovedCount())
	require.False(t, l.Group().CapacityLocked())

	tr, err := l.Approve("owner", "u4")
	require.NoError(t, err)
	assert.True(t, tr.CapacityChanged())
	assert.True(t, tr.CapacityAfter)
	assert.True(t, l.Group().CapacityLocked())
	assert.Equal(t, 0, l.Group().SpotsLeft())

	_, err = l.RequestJoin("u6")
	require.ErrorIs(t, err, models.ErrGroupAtCapacity)
	assert.True(t, models.IsConflict(err))
}

func TestCapacity_SixthApprovalRefused(t *testing.T) {
	l := newLedger(t)
	join(t, l, "u1", "u2", "u3", "u4", "u5")
	approve(t, l, "u1", "u2", "u3", "u4")

	_, err := l.Approve("owner", "u5")
	require.ErrorIs(t, err, models.ErrGroupAtCapacity)
	assert.Equal(t, models.StatusPending, l.Group().StatusOf("u5"))
	assert.Equal(t, models.GroupSize, l.Group().ApprovedCount())
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		user    string
		wantErr error
	}{
		{name: "owner removes member", actor: "owner", user: "u1"},
		{name: "member leaves", actor: "u1", user: "u1"},
		{name: "member removes another", actor: "u2", user: "u1", wantErr: models.ErrNotOwner},
		{name: "owner removes self", actor: "owner", user: "owner", wantErr: models.ErrCannotRemoveOwner},
		{name: "pending user", actor: "owner", user: "p1", wantErr: models.ErrNotApproved},
		{name: "unknown user", actor: "owner", user: "nobody", wantErr: models.ErrNotApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			join(t, l, "u1", "u2", "p1")
			approve(t, l, "u1", "u2")

			_, err := l.Remove(tt.actor, tt.user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusNone, l.Group().StatusOf(tt.user))
			_, present := l.Group().Participants[tt.user]
			assert.False(t, present)
		})
	}
}

func TestRemove_ReopensCapacity(t *testing.T) {
	l := newLedger(t)
	join(t, l, "u1", "u2", "u3", "u4")
	approve(t, l, "u1", "u2", "u3", "u4")
	require.True(t, l.Group().CapacityLocked())

	tr, err := l.Remove("u2", "u2")
	require.NoError(t, err)
	assert.True(t, tr.CapacityBefore)
	assert.False(t, tr.CapacityAfter)

	_, err = l.RequestJoin("u5")
	require.NoError(t, err)
}
