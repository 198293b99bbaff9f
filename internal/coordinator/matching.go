package coordinator

import (
	"context"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/models"
)

// MatchCart scores every public group against cart, best first.
// It works on a snapshot and never takes group locks.
func (c *Coordinator) MatchCart(ctx context.Context, userID string, cart []models.CartLine) (results []calculator.MatchResult, err error) {
	ctx, end := c.begin(ctx, "MatchCart", "")
	defer func() { end(err) }()

	results, err = c.match(ctx, userID, cart)
	if err != nil {
		return nil, err
	}
	calculator.SortBySimilarity(results)
	return results, nil
}

// OptimizeCart proposes coverage strategies over the groups userID could use:
// groups they already belong to, plus groups that still have spots left.
func (c *Coordinator) OptimizeCart(ctx context.Context, userID string, cart []models.CartLine) (strategies []calculator.Strategy, err error) {
	ctx, end := c.begin(ctx, "OptimizeCart", "")
	defer func() { end(err) }()

	results, err := c.match(ctx, userID, cart)
	if err != nil {
		return nil, err
	}
	joinable := results[:0]
	for _, r := range results {
		if r.IsAlreadyMember || !r.IsFull {
			joinable = append(joinable, r)
		}
	}
	return calculator.Optimize(cart, joinable), nil
}

func (c *Coordinator) match(ctx context.Context, userID string, cart []models.CartLine) ([]calculator.MatchResult, error) {
	lines := calculator.NormalizeCart(cart)
	if len(lines) == 0 {
		return nil, nil
	}

	groups, err := c.publicGroups(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	catalog, err := c.catalogFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	return calculator.Match(userID, lines, groups, catalog)
}
