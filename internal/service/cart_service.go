package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcart/internal/coordinator"
	"github.com/mmynk/groupcart/internal/middleware"
)

// CartService implements the Connect CartService. Callers may be anonymous;
// an authenticated caller additionally gets membership flags on each match.
type CartService struct {
	coord *coordinator.Coordinator
}

// NewCartService creates a new CartService backed by coord.
func NewCartService(coord *coordinator.Coordinator) *CartService {
	return &CartService{coord: coord}
}

// MatchCart ranks public groups by how much of the cart they share.
func (s *CartService) MatchCart(ctx context.Context, req *connect.Request[CartRequest]) (*connect.Response[MatchCartResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("MatchCart request received", "items_count", len(req.Msg.Items), "user_id", userID)

	results, err := s.coord.MatchCart(ctx, userID, req.Msg.Items)
	if err != nil {
		slog.Error("MatchCart failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("MatchCart successful", "matches", len(results))
	return connect.NewResponse(&MatchCartResponse{Matches: toMatches(results)}), nil
}

// OptimizeCart proposes sets of groups that cover the cart.
func (s *CartService) OptimizeCart(ctx context.Context, req *connect.Request[CartRequest]) (*connect.Response[OptimizeCartResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("OptimizeCart request received", "items_count", len(req.Msg.Items), "user_id", userID)

	strategies, err := s.coord.OptimizeCart(ctx, userID, req.Msg.Items)
	if err != nil {
		slog.Error("OptimizeCart failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("OptimizeCart successful", "strategies", len(strategies))
	return connect.NewResponse(&OptimizeCartResponse{Strategies: toStrategies(strategies)}), nil
}
