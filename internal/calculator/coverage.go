package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

// StrategyKind labels what a coverage strategy represents.
type StrategyKind string

const (
	StrategySingleBest       StrategyKind = "single_best"
	StrategyMultiGroup       StrategyKind = "multi_group"
	StrategyCompleteCoverage StrategyKind = "complete_coverage"
)

// Strategy is a set of groups a shopper could join to get group pricing on
// as much of their cart as possible.
type Strategy struct {
	Kind              StrategyKind
	Groups            []MatchResult
	TotalSavings      decimal.Decimal
	CoveragePercent   float64
	UncoveredProducts []string
}

// pick is one step of the greedy walk.
type pick struct {
	result  MatchResult
	gain    decimal.Decimal
	covered []string
}

// Optimize turns match results into ranked coverage strategies.
//
// Algorithm (greedy set cover):
//   - Start with every distinct cart product uncovered
//   - Pick the unselected group whose uncovered matching products add the most savings;
//     ties go to the higher similarity score, then the lower group ID
//   - Mark those products covered and repeat until everything is covered or no group
//     covers anything still uncovered
//
// A product's savings are counted once, from the group that covered it first.
// The walk yields single_best (the first pick alone), multi_group (every pick, when
// there are two or more) and complete_coverage (every pick, when nothing is left uncovered).
func Optimize(cart []models.CartLine, results []MatchResult) []Strategy {
	lines := NormalizeCart(cart)
	if len(lines) == 0 || len(results) == 0 {
		return nil
	}

	uncovered := make(map[string]bool, len(lines))
	for _, line := range lines {
		uncovered[line.ProductID] = true
	}

	candidates := make([]MatchResult, len(results))
	copy(candidates, results)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].GroupID() < candidates[j].GroupID()
	})
	selected := make([]bool, len(candidates))

	var picks []pick
	for len(uncovered) > 0 {
		best := -1
		var bestPick pick

		for i, c := range candidates {
			if selected[i] {
				continue
			}
			gain := decimal.Zero
			var covered []string
			for _, item := range c.MatchingItems {
				if uncovered[item.ProductID] {
					gain = gain.Add(item.IndividualSavings)
					covered = append(covered, item.ProductID)
				}
			}
			if len(covered) == 0 {
				continue
			}
			if best == -1 || beats(gain, c, bestPick.gain, bestPick.result) {
				best = i
				bestPick = pick{result: c, gain: gain, covered: covered}
			}
		}

		if best == -1 {
			break
		}
		selected[best] = true
		for _, id := range bestPick.covered {
			delete(uncovered, id)
		}
		picks = append(picks, bestPick)
	}

	if len(picks) == 0 {
		return nil
	}

	strategies := []Strategy{buildStrategy(StrategySingleBest, lines, picks[:1])}
	if len(picks) > 1 {
		strategies = append(strategies, buildStrategy(StrategyMultiGroup, lines, picks))
	}
	if len(uncovered) == 0 {
		strategies = append(strategies, buildStrategy(StrategyCompleteCoverage, lines, picks))
	}
	return strategies
}

// beats reports whether candidate (gain, c) should replace the current best.
func beats(gain decimal.Decimal, c MatchResult, bestGain decimal.Decimal, best MatchResult) bool {
	if cmp := gain.Cmp(bestGain); cmp != 0 {
		return cmp > 0
	}
	if c.SimilarityScore != best.SimilarityScore {
		return c.SimilarityScore > best.SimilarityScore
	}
	return c.GroupID() < best.GroupID()
}

func buildStrategy(kind StrategyKind, lines []models.CartLine, picks []pick) Strategy {
	covered := make(map[string]bool)
	total := decimal.Zero
	groups := make([]MatchResult, 0, len(picks))
	for _, p := range picks {
		groups = append(groups, p.result)
		total = total.Add(p.gain)
		for _, id := range p.covered {
			covered[id] = true
		}
	}

	var uncovered []string
	for _, line := range lines {
		if !covered[line.ProductID] {
			uncovered = append(uncovered, line.ProductID)
		}
	}

	return Strategy{
		Kind:              kind,
		Groups:            groups,
		TotalSavings:      total,
		CoveragePercent:   100 * float64(len(covered)) / float64(len(lines)),
		UncoveredProducts: uncovered,
	}
}
