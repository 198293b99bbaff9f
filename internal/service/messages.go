package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/models"
)

// ---- GroupService ----

type CreateGroupRequest struct {
	Name            string            `json:"name"`
	Visibility      string            `json:"visibility,omitempty"`
	DeliveryMethod  string            `json:"delivery_method,omitempty"`
	PickupAddressID string            `json:"pickup_address_id,omitempty"`
	Items           []models.CartLine `json:"items,omitempty"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupByShareTokenRequest struct {
	ShareToken string `json:"share_token"`
}

type ListMyGroupsRequest struct{}

type ListMyGroupsResponse struct {
	Groups []*GroupView `json:"groups"`
}

// UpdateGroupSettingsRequest only changes the fields that are set.
type UpdateGroupSettingsRequest struct {
	GroupID         string  `json:"group_id"`
	Name            *string `json:"name,omitempty"`
	Visibility      *string `json:"visibility,omitempty"`
	DeliveryMethod  *string `json:"delivery_method,omitempty"`
	PickupAddressID *string `json:"pickup_address_id,omitempty"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

type ItemRequest struct {
	GroupID   string `json:"group_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type JoinRequest struct {
	GroupID string `json:"group_id"`
}

// ParticipantRequest addresses one user's membership; the caller is the actor.
type ParticipantRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// GroupResponse is returned by every call that reads or changes one group.
type GroupResponse struct {
	Group *GroupView `json:"group"`
}

// GroupView is a group as one caller may see it. The owner sees everything.
// Approved members see the share token, every membership record and their own
// payment. Anyone else sees the cart and counts plus their own join request.
type GroupView struct {
	ID              string                        `json:"id"`
	OwnerID         string                        `json:"owner_id"`
	Name            string                        `json:"name"`
	Visibility      models.Visibility             `json:"visibility"`
	ShareToken      string                        `json:"share_token,omitempty"`
	DeliveryMethod  models.DeliveryMethod         `json:"delivery_method"`
	PickupAddressID string                        `json:"pickup_address_id,omitempty"`
	Items           map[string]models.GroupItem   `json:"items"`
	Participants    map[string]models.Participant `json:"participants"`
	Payments        map[string]models.Payment     `json:"payments"`
	ApprovedCount   int                           `json:"approved_count"`
	SpotsLeft       int                           `json:"spots_left"`
	ReadyForPayment bool                          `json:"ready_for_payment"`
	PaymentLocked   bool                          `json:"payment_locked"`
	CreatedAt       int64                         `json:"created_at"`
}

func toGroupView(g *models.Group, viewerID string) *GroupView {
	v := &GroupView{
		ID:              g.ID,
		OwnerID:         g.OwnerID,
		Name:            g.Name,
		Visibility:      g.Visibility,
		DeliveryMethod:  g.DeliveryMethod,
		PickupAddressID: g.PickupAddressID,
		Items:           make(map[string]models.GroupItem, len(g.Items)),
		Participants:    make(map[string]models.Participant),
		Payments:        make(map[string]models.Payment),
		ApprovedCount:   g.ApprovedCount(),
		SpotsLeft:       g.SpotsLeft(),
		ReadyForPayment: g.CapacityLocked(),
		PaymentLocked:   g.PaymentLocked,
		CreatedAt:       g.CreatedAt,
	}
	for id, it := range g.Items {
		v.Items[id] = it
	}

	switch {
	case viewerID == g.OwnerID:
		v.ShareToken = g.ShareToken
		for id, p := range g.Participants {
			v.Participants[id] = p
		}
		for id, p := range g.Payments {
			v.Payments[id] = p
		}
	case g.IsMember(viewerID):
		v.ShareToken = g.ShareToken
		for id, p := range g.Participants {
			v.Participants[id] = p
		}
		if p, ok := g.Payments[viewerID]; ok {
			v.Payments[viewerID] = p
		}
	default:
		if p, ok := g.Participants[viewerID]; ok {
			v.Participants[viewerID] = p
		}
	}
	return v
}

type GetGroupSummaryRequest struct {
	GroupID string `json:"group_id"`
}

type SummaryLine struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Savings       decimal.Decimal `json:"savings"`
}

type GroupSummary struct {
	GroupID          string          `json:"group_id"`
	Name             string          `json:"name"`
	Lines            []SummaryLine   `json:"lines"`
	TotalValue       decimal.Decimal `json:"total_value"`
	DiscountedValue  decimal.Decimal `json:"discounted_value"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	ApprovedCount    int             `json:"approved_count"`
	SpotsLeft        int             `json:"spots_left"`
	PendingUserIDs   []string        `json:"pending_user_ids"`
	ApprovedUserIDs  []string        `json:"approved_user_ids"`
	ReadyForPayment  bool            `json:"ready_for_payment"`
	PaymentLocked    bool            `json:"payment_locked"`
	PaidCount        int             `json:"paid_count"`
}

type GetGroupSummaryResponse struct {
	Summary GroupSummary `json:"summary"`
}

func toSummary(g *models.Group, s ledger.Summary) GroupSummary {
	lines := make([]SummaryLine, len(s.Lines))
	for i, q := range s.Lines {
		lines[i] = SummaryLine{
			ProductID:     q.ProductID,
			Quantity:      q.Quantity,
			OriginalPrice: q.OriginalPrice,
			UnitPrice:     q.UnitPrice,
			TotalPrice:    q.TotalPrice,
			Savings:       q.Savings,
		}
	}
	return GroupSummary{
		GroupID:          s.GroupID,
		Name:             g.Name,
		Lines:            lines,
		TotalValue:       s.TotalValue,
		DiscountedValue:  s.DiscountedValue,
		PotentialSavings: s.PotentialSavings,
		ApprovedCount:    s.ApprovedCount,
		SpotsLeft:        s.SpotsLeft,
		PendingUserIDs:   s.PendingUserIDs,
		ApprovedUserIDs:  s.ApprovedUserIDs,
		ReadyForPayment:  s.ReadyForPayment,
		PaymentLocked:    s.PaymentLocked,
		PaidCount:        s.PaidCount,
	}
}

// ---- CartService ----

type CartRequest struct {
	Items []models.CartLine `json:"items"`
}

type MatchingItem struct {
	ProductID         string          `json:"product_id"`
	CartQuantity      int             `json:"cart_quantity"`
	GroupQuantity     int             `json:"group_quantity"`
	IndividualSavings decimal.Decimal `json:"individual_savings"`
}

type Match struct {
	GroupID          string          `json:"group_id"`
	GroupName        string          `json:"group_name"`
	SimilarityScore  float64         `json:"similarity_score"`
	MatchingItems    []MatchingItem  `json:"matching_items"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	IsAlreadyMember  bool            `json:"is_already_member"`
	IsFull           bool            `json:"is_full"`
	SpotsLeft        int             `json:"spots_left"`
}

type MatchCartResponse struct {
	Matches []Match `json:"matches"`
}

type Strategy struct {
	Kind              string          `json:"kind"`
	Groups            []Match         `json:"groups"`
	TotalSavings      decimal.Decimal `json:"total_savings"`
	CoveragePercent   float64         `json:"coverage_percent"`
	UncoveredProducts []string        `json:"uncovered_products"`
}

type OptimizeCartResponse struct {
	Strategies []Strategy `json:"strategies"`
}

func toMatch(r calculator.MatchResult) Match {
	items := make([]MatchingItem, len(r.MatchingItems))
	for i, it := range r.MatchingItems {
		items[i] = MatchingItem{
			ProductID:         it.ProductID,
			CartQuantity:      it.CartQuantity,
			GroupQuantity:     it.GroupQuantity,
			IndividualSavings: it.IndividualSavings,
		}
	}
	return Match{
		GroupID:          r.GroupID(),
		GroupName:        r.Group.Name,
		SimilarityScore:  r.SimilarityScore,
		MatchingItems:    items,
		PotentialSavings: r.PotentialSavings,
		IsAlreadyMember:  r.IsAlreadyMember,
		IsFull:           r.IsFull,
		SpotsLeft:        r.Group.SpotsLeft(),
	}
}

func toMatches(results []calculator.MatchResult) []Match {
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = toMatch(r)
	}
	return out
}

func toStrategies(strategies []calculator.Strategy) []Strategy {
	out := make([]Strategy, len(strategies))
	for i, s := range strategies {
		out[i] = Strategy{
			Kind:              string(s.Kind),
			Groups:            toMatches(s.Groups),
			TotalSavings:      s.TotalSavings,
			CoveragePercent:   s.CoveragePercent,
			UncoveredProducts: s.UncoveredProducts,
		}
	}
	return out
}
