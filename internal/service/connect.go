package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	GroupServiceName = "groupcart.v1.GroupService"
	CartServiceName  = "groupcart.v1.CartService"
)

const (
	GroupServiceCreateGroupProcedure          = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure             = "/" + GroupServiceName + "/GetGroup"
	GroupServiceGetGroupByShareTokenProcedure = "/" + GroupServiceName + "/GetGroupByShareToken"
	GroupServiceListMyGroupsProcedure         = "/" + GroupServiceName + "/ListMyGroups"
	GroupServiceUpdateGroupSettingsProcedure  = "/" + GroupServiceName + "/UpdateGroupSettings"
	GroupServiceDeleteGroupProcedure          = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceAddItemProcedure              = "/" + GroupServiceName + "/AddItem"
	GroupServiceSetItemQuantityProcedure      = "/" + GroupServiceName + "/SetItemQuantity"
	GroupServiceRemoveItemProcedure           = "/" + GroupServiceName + "/RemoveItem"
	GroupServiceRequestJoinProcedure          = "/" + GroupServiceName + "/RequestJoin"
	GroupServiceApproveParticipantProcedure   = "/" + GroupServiceName + "/ApproveParticipant"
	GroupServiceRejectParticipantProcedure    = "/" + GroupServiceName + "/RejectParticipant"
	GroupServiceRemoveParticipantProcedure    = "/" + GroupServiceName + "/RemoveParticipant"
	GroupServiceGetGroupSummaryProcedure      = "/" + GroupServiceName + "/GetGroupSummary"

	CartServiceMatchCartProcedure    = "/" + CartServiceName + "/MatchCart"
	CartServiceOptimizeCartProcedure = "/" + CartServiceName + "/OptimizeCart"
)

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func route[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewGroupServiceHandler returns the path prefix and handler for svc.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	route(mux, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	route(mux, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	route(mux, GroupServiceGetGroupByShareTokenProcedure, svc.GetGroupByShareToken, opts)
	route(mux, GroupServiceListMyGroupsProcedure, svc.ListMyGroups, opts)
	route(mux, GroupServiceUpdateGroupSettingsProcedure, svc.UpdateGroupSettings, opts)
	route(mux, GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts)
	route(mux, GroupServiceAddItemProcedure, svc.AddItem, opts)
	route(mux, GroupServiceSetItemQuantityProcedure, svc.SetItemQuantity, opts)
	route(mux, GroupServiceRemoveItemProcedure, svc.RemoveItem, opts)
	route(mux, GroupServiceRequestJoinProcedure, svc.RequestJoin, opts)
	route(mux, GroupServiceApproveParticipantProcedure, svc.ApproveParticipant, opts)
	route(mux, GroupServiceRejectParticipantProcedure, svc.RejectParticipant, opts)
	route(mux, GroupServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts)
	route(mux, GroupServiceGetGroupSummaryProcedure, svc.GetGroupSummary, opts)
	return "/" + GroupServiceName + "/", mux
}

// NewCartServiceHandler returns the path prefix and handler for svc.
func NewCartServiceHandler(svc *CartService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	route(mux, CartServiceMatchCartProcedure, svc.MatchCart, opts)
	route(mux, CartServiceOptimizeCartProcedure, svc.OptimizeCart, opts)
	return "/" + CartServiceName + "/", mux
}

// GroupServiceClient calls GroupService over Connect.
type GroupServiceClient struct {
	createGroup          *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup             *connect.Client[GetGroupRequest, GroupResponse]
	getGroupByShareToken *connect.Client[GetGroupByShareTokenRequest, GroupResponse]
	listMyGroups         *connect.Client[ListMyGroupsRequest, ListMyGroupsResponse]
	updateGroupSettings  *connect.Client[UpdateGroupSettingsRequest, GroupResponse]
	deleteGroup          *connect.Client[DeleteGroupRequest, emptypb.Empty]
	addItem              *connect.Client[ItemRequest, GroupResponse]
	setItemQuantity      *connect.Client[ItemRequest, GroupResponse]
	removeItem           *connect.Client[ItemRequest, GroupResponse]
	requestJoin          *connect.Client[JoinRequest, GroupResponse]
	approveParticipant   *connect.Client[ParticipantRequest, GroupResponse]
	rejectParticipant    *connect.Client[ParticipantRequest, GroupResponse]
	removeParticipant    *connect.Client[ParticipantRequest, GroupResponse]
	getGroupSummary      *connect.Client[GetGroupSummaryRequest, GetGroupSummaryResponse]
}

func clientOpts(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// NewGroupServiceClient returns a client for the GroupService at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = clientOpts(opts)
	return &GroupServiceClient{
		createGroup:          connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:             connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		getGroupByShareToken: connect.NewClient[GetGroupByShareTokenRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupByShareTokenProcedure, opts...),
		listMyGroups:         connect.NewClient[ListMyGroupsRequest, ListMyGroupsResponse](httpClient, baseURL+GroupServiceListMyGroupsProcedure, opts...),
		updateGroupSettings:  connect.NewClient[UpdateGroupSettingsRequest, GroupResponse](httpClient, baseURL+GroupServiceUpdateGroupSettingsProcedure, opts...),
		deleteGroup:          connect.NewClient[DeleteGroupRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		addItem:              connect.NewClient[ItemRequest, GroupResponse](httpClient, baseURL+GroupServiceAddItemProcedure, opts...),
		setItemQuantity:      connect.NewClient[ItemRequest, GroupResponse](httpClient, baseURL+GroupServiceSetItemQuantityProcedure, opts...),
		removeItem:           connect.NewClient[ItemRequest, GroupResponse](httpClient, baseURL+GroupServiceRemoveItemProcedure, opts...),
		requestJoin:          connect.NewClient[JoinRequest, GroupResponse](httpClient, baseURL+GroupServiceRequestJoinProcedure, opts...),
		approveParticipant:   connect.NewClient[ParticipantRequest, GroupResponse](httpClient, baseURL+GroupServiceApproveParticipantProcedure, opts...),
		rejectParticipant:    connect.NewClient[ParticipantRequest, GroupResponse](httpClient, baseURL+GroupServiceRejectParticipantProcedure, opts...),
		removeParticipant:    connect.NewClient[ParticipantRequest, GroupResponse](httpClient, baseURL+GroupServiceRemoveParticipantProcedure, opts...),
		getGroupSummary:      connect.NewClient[GetGroupSummaryRequest, GetGroupSummaryResponse](httpClient, baseURL+GroupServiceGetGroupSummaryProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupByShareToken(ctx context.Context, req *connect.Request[GetGroupByShareTokenRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroupByShareToken.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListMyGroups(ctx context.Context, req *connect.Request[ListMyGroupsRequest]) (*connect.Response[ListMyGroupsResponse], error) {
	return c.listMyGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) UpdateGroupSettings(ctx context.Context, req *connect.Request[UpdateGroupSettingsRequest]) (*connect.Response[GroupResponse], error) {
	return c.updateGroupSettings.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	return c.addItem.CallUnary(ctx, req)
}

func (c *GroupServiceClient) SetItemQuantity(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	return c.setItemQuantity.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[GroupResponse], error) {
	return c.removeItem.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RequestJoin(ctx context.Context, req *connect.Request[JoinRequest]) (*connect.Response[GroupResponse], error) {
	return c.requestJoin.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ApproveParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return c.approveParticipant.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RejectParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return c.rejectParticipant.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[GroupResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupSummary(ctx context.Context, req *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error) {
	return c.getGroupSummary.CallUnary(ctx, req)
}

// CartServiceClient calls CartService over Connect.
type CartServiceClient struct {
	matchCart    *connect.Client[CartRequest, MatchCartResponse]
	optimizeCart *connect.Client[CartRequest, OptimizeCartResponse]
}

// NewCartServiceClient returns a client for the CartService at baseURL.
func NewCartServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CartServiceClient {
	opts = clientOpts(opts)
	return &CartServiceClient{
		matchCart:    connect.NewClient[CartRequest, MatchCartResponse](httpClient, baseURL+CartServiceMatchCartProcedure, opts...),
		optimizeCart: connect.NewClient[CartRequest, OptimizeCartResponse](httpClient, baseURL+CartServiceOptimizeCartProcedure, opts...),
	}
}

func (c *CartServiceClient) MatchCart(ctx context.Context, req *connect.Request[CartRequest]) (*connect.Response[MatchCartResponse], error) {
	return c.matchCart.CallUnary(ctx, req)
}

func (c *CartServiceClient) OptimizeCart(ctx context.Context, req *connect.Request[CartRequest]) (*connect.Response[OptimizeCartResponse], error) {
	return c.optimizeCart.CallUnary(ctx, req)
}
