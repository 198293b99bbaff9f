package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

// MatchingItem is one product a cart shares with a candidate group.
type MatchingItem struct {
	ProductID     string
	CartQuantity  int
	GroupQuantity int
	// IndividualSavings is what the shopper saves on their own quantity at the
	// group's per-unit discount.
	IndividualSavings decimal.Decimal
}

// MatchResult scores one candidate group against a shopper's cart.
type MatchResult struct {
	Group            *models.Group
	SimilarityScore  float64
	MatchingItems    []MatchingItem
	PotentialSavings decimal.Decimal
	IsAlreadyMember  bool
	IsFull           bool
}

// GroupID is a convenience accessor used for ordering.
func (r MatchResult) GroupID() string {
	return r.Group.ID
}

// NormalizeCart merges lines for the same product and drops non-positive quantities.
// The returned lines keep first-seen product order.
func NormalizeCart(cart []models.CartLine) []models.CartLine {
	index := make(map[string]int, len(cart))
	var out []models.CartLine
	for _, line := range cart {
		if line.Quantity <= 0 || line.ProductID == "" {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// Similarity returns the percentage of the cart's distinct products present in group.
// Extra products in the group do not lower the score.
func Similarity(cart []models.CartLine, group *models.Group) float64 {
	lines := NormalizeCart(cart)
	if len(lines) == 0 {
		return 0
	}
	matching := 0
	for _, line := range lines {
		if group.HasProduct(line.ProductID) {
			matching++
		}
	}
	return 100 * float64(matching) / float64(len(lines))
}

// Match scores every candidate group that shares at least one product with cart.
// userID is the shopper asking; it only feeds IsAlreadyMember. Results come back in
// candidate order, see SortBySimilarity.
func Match(userID string, cart []models.CartLine, groups []*models.Group, products ProductLookup) ([]MatchResult, error) {
	lines := NormalizeCart(cart)
	if len(lines) == 0 {
		return nil, nil
	}

	var results []MatchResult
	for _, group := range groups {
		var items []MatchingItem
		savings := decimal.Zero

		for _, line := range lines {
			gi, ok := group.Items[line.ProductID]
			if !ok {
				continue
			}
			product, err := products.Product(line.ProductID)
			if err != nil {
				return nil, models.DependencyError("calculator.Match", err)
			}
			quote, err := Resolve(product, gi.Quantity)
			if err != nil {
				return nil, models.NewError("calculator.Match", group.ID, err)
			}
			individual := quote.UnitSavings.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, MatchingItem{
				ProductID:         line.ProductID,
				CartQuantity:      line.Quantity,
				GroupQuantity:     gi.Quantity,
				IndividualSavings: individual,
			})
			savings = savings.Add(individual)
		}

		if len(items) == 0 {
			continue
		}

		results = append(results, MatchResult{
			Group:            group,
			SimilarityScore:  100 * float64(len(items)) / float64(len(lines)),
			MatchingItems:    items,
			PotentialSavings: savings,
			IsAlreadyMember:  userID != "" && group.IsMember(userID),
			IsFull:           group.CapacityLocked(),
		})
	}

	return results, nil
}

// SortBySimilarity orders results by similarity, then savings, both descending,
// then by group ID for a stable order.
func SortBySimilarity(results []MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if c := a.PotentialSavings.Cmp(b.PotentialSavings); c != 0 {
			return c > 0
		}
		return a.GroupID() < b.GroupID()
	})
}
