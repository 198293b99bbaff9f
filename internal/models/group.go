package models

import "time"

// GroupSize is the number of approved members (owner included) that fills a group.
const GroupSize = 5

// Visibility controls whether a group is listed for cart matching.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// DeliveryMethod is how a group's order reaches its members.
type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "delivery"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// Valid reports whether d is a known delivery method.
func (d DeliveryMethod) Valid() bool {
	return d == DeliveryShipping || d == DeliveryPickup
}

// ParticipantStatus is the membership state of a non-owner user in a group.
type ParticipantStatus string

const (
	// StatusNone is never stored; it stands for "no record".
	StatusNone     ParticipantStatus = ""
	StatusPending  ParticipantStatus = "pending"
	StatusApproved ParticipantStatus = "approved"
	StatusRejected ParticipantStatus = "rejected"
)

// GroupItem is one product line in a group's shared cart.
type GroupItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Participant is a user's membership record in a group.
type Participant struct {
	UserID    string            `json:"user_id"`
	Status    ParticipantStatus `json:"status"`
	UpdatedAt int64             `json:"updated_at"`
}

// Group represents a shared cart that multiple users join to unlock group pricing.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// OwnerID is the user that created the group. The owner is an implicit
	// approved member and is never stored in Participants.
	OwnerID string `json:"owner_id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// Visibility decides whether the group is offered to other shoppers' carts.
	Visibility Visibility `json:"visibility"`

	// ShareToken is an opaque token generated at creation. It is never regenerated.
	ShareToken string `json:"share_token"`

	// DeliveryMethod is either delivery or pickup.
	DeliveryMethod DeliveryMethod `json:"delivery_method"`

	// PickupAddressID references the pickup location when DeliveryMethod is pickup.
	PickupAddressID string `json:"pickup_address_id,omitempty"`

	// Items maps product ID to the group's line for that product.
	Items map[string]GroupItem `json:"items"`

	// Participants maps user ID to that user's membership record.
	Participants map[string]Participant `json:"participants"`

	// Payments maps user ID to the payment recorded for that user.
	Payments map[string]Payment `json:"payments"`

	// PaymentLocked becomes true on the first recorded payment and never reverts.
	PaymentLocked bool `json:"payment_locked"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// NewGroup returns an empty group with its maps initialized.
func NewGroup(ownerID, name string) *Group {
	return &Group{
		OwnerID:        ownerID,
		Name:           name,
		Visibility:     VisibilityPublic,
		DeliveryMethod: DeliveryShipping,
		Items:          make(map[string]GroupItem),
		Participants:   make(map[string]Participant),
		Payments:       make(map[string]Payment),
		CreatedAt:      time.Now().Unix(),
	}
}

// EnsureMaps initializes nil maps, e.g. after loading a group from storage.
func (g *Group) EnsureMaps() {
	if g.Items == nil {
		g.Items = make(map[string]GroupItem)
	}
	if g.Participants == nil {
		g.Participants = make(map[string]Participant)
	}
	if g.Payments == nil {
		g.Payments = make(map[string]Payment)
	}
}

// StatusOf returns the membership status of userID. The owner reports approved.
func (g *Group) StatusOf(userID string) ParticipantStatus {
	if userID == g.OwnerID {
		return StatusApproved
	}
	if p, ok := g.Participants[userID]; ok {
		return p.Status
	}
	return StatusNone
}

// IsMember reports whether userID is the owner or an approved participant.
func (g *Group) IsMember(userID string) bool {
	return g.StatusOf(userID) == StatusApproved
}

// ApprovedCount counts approved members including the owner.
func (g *Group) ApprovedCount() int {
	n := 1
	for _, p := range g.Participants {
		if p.Status == StatusApproved {
			n++
		}
	}
	return n
}

// CapacityLocked reports whether the group has reached GroupSize approved members.
func (g *Group) CapacityLocked() bool {
	return g.ApprovedCount() >= GroupSize
}

// SpotsLeft is the number of approvals still accepted.
func (g *Group) SpotsLeft() int {
	if left := GroupSize - g.ApprovedCount(); left > 0 {
		return left
	}
	return 0
}

// HasProduct reports whether the group's cart contains productID.
func (g *Group) HasProduct(productID string) bool {
	_, ok := g.Items[productID]
	return ok
}

// Clone returns a deep copy so snapshots can be read without holding locks.
func (g *Group) Clone() *Group {
	c := *g
	c.Items = make(map[string]GroupItem, len(g.Items))
	for k, v := range g.Items {
		c.Items[k] = v
	}
	c.Participants = make(map[string]Participant, len(g.Participants))
	for k, v := range g.Participants {
		c.Participants[k] = v
	}
	c.Payments = make(map[string]Payment, len(g.Payments))
	for k, v := range g.Payments {
		c.Payments[k] = v
	}
	return &c
}
