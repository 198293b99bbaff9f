package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/groupcart/internal/coordinator"
	"github.com/mmynk/groupcart/internal/models"
)

// GroupService implements the Connect GroupService. Every call acts as the
// authenticated caller.
type GroupService struct {
	coord *coordinator.Coordinator
}

// NewGroupService creates a new GroupService backed by coord.
func NewGroupService(coord *coordinator.Coordinator) *GroupService {
	return &GroupService{coord: coord}
}

func groupResponse(g *models.Group, viewerID string) *connect.Response[GroupResponse] {
	return connect.NewResponse(&GroupResponse{Group: toGroupView(g, viewerID)})
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"items_count", len(req.Msg.Items),
		"user_id", userID,
	)

	group, err := s.coord.CreateGroup(ctx, userID, coordinator.CreateParams{
		Name:            req.Msg.Name,
		Visibility:      models.Visibility(req.Msg.Visibility),
		DeliveryMethod:  models.DeliveryMethod(req.Msg.DeliveryMethod),
		PickupAddressID: req.Msg.PickupAddressID,
		Items:           req.Msg.Items,
	})
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	return groupResponse(group, userID), nil
}

// GetGroup retrieves a group by ID. Private groups are only visible to people involved in them.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.coord.GetGroup(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return groupResponse(group, userID), nil
}

// GetGroupByShareToken resolves a share link.
func (s *GroupService) GetGroupByShareToken(ctx context.Context, req *connect.Request[GetGroupByShareTokenRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroupByShareToken request received")

	group, err := s.coord.GetGroupByShareToken(ctx, req.Msg.ShareToken)
	if err != nil {
		slog.Error("GetGroupByShareToken failed", "error", err)
		return nil, toConnectError(err)
	}

	return groupResponse(group, userID), nil
}

// ListMyGroups lists the groups the caller owns or has asked to join.
func (s *GroupService) ListMyGroups(ctx context.Context, req *connect.Request[ListMyGroupsRequest]) (*connect.Response[ListMyGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListMyGroups request received", "user_id", userID)

	groups, err := s.coord.ListMyGroups(ctx, userID)
	if err != nil {
		slog.Error("ListMyGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	views := make([]*GroupView, len(groups))
	for i, g := range groups {
		views[i] = toGroupView(g, userID)
	}
	slog.Info("ListMyGroups successful", "count", len(groups))
	return connect.NewResponse(&ListMyGroupsResponse{Groups: views}), nil
}

// UpdateGroupSettings changes name, visibility or delivery.
func (s *GroupService) UpdateGroupSettings(ctx context.Context, req *connect.Request[UpdateGroupSettingsRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateGroupSettings request received", "group_id", req.Msg.GroupID)

	settings := coordinator.Settings{
		Name:            req.Msg.Name,
		PickupAddressID: req.Msg.PickupAddressID,
	}
	if req.Msg.Visibility != nil {
		v := models.Visibility(*req.Msg.Visibility)
		settings.Visibility = &v
	}
	if req.Msg.DeliveryMethod != nil {
		d := models.DeliveryMethod(*req.Msg.DeliveryMethod)
		settings.DeliveryMethod = &d
	}

	group, err := s.coord.UpdateSettings(ctx, req.Msg.GroupID, userID, settings)
	if err != nil {
		slog.Error("UpdateGroupSettings failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group updated", "group_id", group.ID)
	return groupResponse(group, userID), nil
}

// DeleteGroup removes a group.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	if err := s.coord.DeleteGroup(ctx, req.Msg.GroupID, userID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&emptypb.Empty{}), nil
}

// AddItem adds a product line to the group cart.
func (s *GroupService) AddItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddItem request received", "group_id", req.Msg.GroupID, "product_id", req.Msg.ProductID, "quantity", req.Msg.Quantity)

	group, err := s.coord.AddItem(ctx, req.Msg.GroupID, userID, req.Msg.ProductID, req.Msg.Quantity)
	if err != nil {
		slog.Error("AddItem failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return groupResponse(group, userID), nil
}

// SetItemQuantity changes a line's quantity; zero removes it.
func (s *GroupService) SetItemQuantity(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SetItemQuantity request received", "group_id", req.Msg.GroupID, "product_id", req.Msg.ProductID, "quantity", req.Msg.Quantity)

	group, err := s.coord.SetQuantity(ctx, req.Msg.GroupID, userID, req.Msg.ProductID, req.Msg.Quantity)
	if err != nil {
		slog.Error("SetItemQuantity failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return groupResponse(group, userID), nil
}

// RemoveItem drops a product line.
func (s *GroupService) RemoveItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RemoveItem request received", "group_id", req.Msg.GroupID, "product_id", req.Msg.ProductID)

	group, err := s.coord.RemoveItem(ctx, req.Msg.GroupID, userID, req.Msg.ProductID)
	if err != nil {
		slog.Error("RemoveItem failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return groupResponse(group, userID), nil
}

// RequestJoin asks to join a group as the caller.
func (s *GroupService) RequestJoin(ctx context.Context, req *connect.Request[JoinRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RequestJoin request received", "group_id", req.Msg.GroupID, "user_id", userID)

	group, err := s.coord.RequestJoin(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("RequestJoin failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return groupResponse(group, userID), nil
}

type participantOp func(ctx context.Context, groupID, actorID, userID string) (*models.Group, error)

func (s *GroupService) participant(ctx context.Context, name string, req *connect.Request[ParticipantRequest], op participantOp) (*connect.Response[GroupResponse], error) {
	actorID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info(name+" request received", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID, "actor_id", actorID)

	group, err := op(ctx, req.Msg.GroupID, actorID, req.Msg.UserID)
	if err != nil {
		slog.Error(name+" failed", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID, "error", err)
		return nil, toConnectError(err)
	}
	return groupResponse(group, actorID), nil
}

// ApproveParticipant accepts a pending join request. Owner only.
func (s *GroupService) ApproveParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return s.participant(ctx, "ApproveParticipant", req, s.coord.Approve)
}

// RejectParticipant declines a pending join request. Owner only.
func (s *GroupService) RejectParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return s.participant(ctx, "RejectParticipant", req, s.coord.Reject)
}

// RemoveParticipant removes an approved member; members may remove themselves.
func (s *GroupService) RemoveParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return s.participant(ctx, "RemoveParticipant", req, s.coord.Remove)
}

// GetGroupSummary returns the priced summary of a group.
func (s *GroupService) GetGroupSummary(ctx context.Context, req *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroupSummary request received", "group_id", req.Msg.GroupID)

	group, summary, err := s.coord.Summary(ctx, req.Msg.GroupID, userID)
	if err != nil {
		slog.Error("GetGroupSummary failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetGroupSummaryResponse{Summary: toSummary(group, summary)}), nil
}
