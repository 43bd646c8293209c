package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
	"github.com/riskibarqy/pokerdex/internal/usecase"
)

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateGroup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req createGroupRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.membershipService.CreateGroup(ctx, usecase.CreateGroupInput{
		ActorID:     principal.UserID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create group failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, groupToDTO(ctx, created))
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGroups")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	list, err := h.membershipService.ListGroups(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list groups failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	mine := make([]groupSummaryDTO, 0, len(list.Mine))
	for _, summary := range list.Mine {
		mine = append(mine, groupSummaryToDTO(ctx, summary))
	}
	others := make([]groupDTO, 0, len(list.Others))
	for _, g := range list.Others {
		others = append(others, groupToDTO(ctx, g))
	}

	writeSuccess(ctx, w, http.StatusOK, groupListDTO{Mine: mine, Others: others})
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGroup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	detail, err := h.membershipService.GetGroup(ctx, principal.UserID, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "get group failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, groupDetailToDTO(ctx, detail))
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateGroup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	var req updateGroupRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.membershipService.UpdateGroup(ctx, usecase.UpdateGroupInput{
		ActorID:     principal.UserID,
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update group failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, groupToDTO(ctx, updated))
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteGroup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	if err := h.membershipService.DeleteGroup(ctx, principal.UserID, slug); err != nil {
		h.logger.WarnContext(ctx, "delete group failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RequestJoin")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	outcome, err := h.membershipService.RequestJoin(ctx, principal.UserID, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "request join failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, outcomeDTO{Outcome: string(outcome)})
}

func (h *Handler) AcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AcceptJoinRequest")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))
	requestID := strings.TrimSpace(r.PathValue("requestID"))

	membership, err := h.membershipService.AcceptRequest(ctx, principal.UserID, slug, requestID)
	if err != nil {
		h.logger.WarnContext(ctx, "accept join request failed", "user_id", principal.UserID, "slug", slug, "request_id", requestID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, membershipToDTO(ctx, membership))
}

func (h *Handler) RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RejectJoinRequest")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))
	requestID := strings.TrimSpace(r.PathValue("requestID"))

	if err := h.membershipService.RejectRequest(ctx, principal.UserID, slug, requestID); err != nil {
		h.logger.WarnContext(ctx, "reject join request failed", "user_id", principal.UserID, "slug", slug, "request_id", requestID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"rejected": true})
}

func (h *Handler) PromoteMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PromoteMember")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))
	targetUserID := strings.TrimSpace(r.PathValue("userID"))

	outcome, err := h.membershipService.Promote(ctx, principal.UserID, slug, targetUserID)
	if err != nil {
		h.logger.WarnContext(ctx, "promote member failed", "user_id", principal.UserID, "slug", slug, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, outcomeDTO{Outcome: string(outcome)})
}

func (h *Handler) DemoteMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DemoteMember")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))
	targetUserID := strings.TrimSpace(r.PathValue("userID"))

	outcome, err := h.membershipService.Demote(ctx, principal.UserID, slug, targetUserID)
	if err != nil {
		h.logger.WarnContext(ctx, "demote member failed", "user_id", principal.UserID, "slug", slug, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, outcomeDTO{Outcome: string(outcome)})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveMember")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))
	targetUserID := strings.TrimSpace(r.PathValue("userID"))

	if err := h.membershipService.RemoveMember(ctx, principal.UserID, slug, targetUserID); err != nil {
		h.logger.WarnContext(ctx, "remove member failed", "user_id", principal.UserID, "slug", slug, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"removed": true})
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveGroup")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	outcome, err := h.membershipService.Leave(ctx, principal.UserID, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "leave group failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, outcomeDTO{Outcome: string(outcome)})
}

func (h *Handler) GetGroupStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGroupStats")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	slug := strings.TrimSpace(r.PathValue("slug"))

	stats, err := h.statsService.GroupStats(ctx, principal.UserID, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "group stats failed", "user_id", principal.UserID, "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, groupStatsToDTO(ctx, stats))
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type outcomeDTO struct {
	Outcome string `json:"outcome"`
}

type groupDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	CreatedBy    string `json:"created_by"`
	CreatedAtUTC string `json:"created_at_utc"`
}

type groupSummaryDTO struct {
	groupDTO
	MemberCount   int     `json:"member_count"`
	PostCount     int     `json:"post_count"`
	LastPostAtUTC *string `json:"last_post_at_utc"`
}

type groupListDTO struct {
	Mine   []groupSummaryDTO `json:"mine"`
	Others []groupDTO        `json:"others"`
}

type membershipDTO struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	JoinedAtUTC string `json:"joined_at_utc"`
}

type joinRequestDTO struct {
	ID             string `json:"id"`
	RequestedBy    string `json:"requested_by"`
	RequestedAtUTC string `json:"requested_at_utc"`
}

type groupPostDTO struct {
	GameID      string `json:"game_id"`
	PostedBy    string `json:"posted_by"`
	PostedAtUTC string `json:"posted_at_utc"`
}

type groupDetailDTO struct {
	Group             groupDTO         `json:"group"`
	Members           []membershipDTO  `json:"members"`
	RecentPosts       []groupPostDTO   `json:"recent_posts"`
	PendingRequests   []joinRequestDTO `json:"pending_requests,omitempty"`
	IsMember          bool             `json:"is_member"`
	IsCreator         bool             `json:"is_creator"`
	CanManage         bool             `json:"can_manage"`
	HasPendingRequest bool             `json:"has_pending_request"`
}

type playerLedgerDTO struct {
	PlayerID        string `json:"player_id"`
	GamesPlayed     int    `json:"games_played"`
	TotalBuyInCents int64  `json:"total_buy_in_cents"`
	TotalRebuyCents int64  `json:"total_rebuy_cents"`
	NetBalanceCents int64  `json:"net_balance_cents"`
}

type groupStatsDTO struct {
	Group         groupDTO          `json:"group"`
	GameCount     int               `json:"game_count"`
	TotalPotCents int64             `json:"total_pot_cents"`
	Players       []playerLedgerDTO `json:"players"`
}

func groupToDTO(ctx context.Context, v group.Group) groupDTO {
	ctx, span := startSpan(ctx, "httpapi.groupToDTO")
	defer span.End()

	return groupDTO{
		ID:           v.ID,
		Name:         v.Name,
		Slug:         v.Slug,
		Description:  v.Description,
		CreatedBy:    v.CreatedBy,
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func groupSummaryToDTO(ctx context.Context, v group.Summary) groupSummaryDTO {
	ctx, span := startSpan(ctx, "httpapi.groupSummaryToDTO")
	defer span.End()

	dto := groupSummaryDTO{
		groupDTO:    groupToDTO(ctx, v.Group),
		MemberCount: v.MemberCount,
		PostCount:   v.PostCount,
	}
	if v.LastPostAt != nil {
		formatted := v.LastPostAt.UTC().Format(time.RFC3339)
		dto.LastPostAtUTC = &formatted
	}
	return dto
}

func membershipToDTO(ctx context.Context, v group.Membership) membershipDTO {
	ctx, span := startSpan(ctx, "httpapi.membershipToDTO")
	defer span.End()

	return membershipDTO{
		UserID:      v.UserID,
		Role:        string(v.Role),
		JoinedAtUTC: v.JoinedAt.UTC().Format(time.RFC3339),
	}
}

func joinRequestToDTO(ctx context.Context, v group.JoinRequest) joinRequestDTO {
	ctx, span := startSpan(ctx, "httpapi.joinRequestToDTO")
	defer span.End()

	return joinRequestDTO{
		ID:             v.ID,
		RequestedBy:    v.RequestedBy,
		RequestedAtUTC: v.RequestedAt.UTC().Format(time.RFC3339),
	}
}

func groupPostToDTO(ctx context.Context, v game.Post) groupPostDTO {
	ctx, span := startSpan(ctx, "httpapi.groupPostToDTO")
	defer span.End()

	return groupPostDTO{
		GameID:      v.GameID,
		PostedBy:    v.PostedBy,
		PostedAtUTC: v.PostedAt.UTC().Format(time.RFC3339),
	}
}

func groupDetailToDTO(ctx context.Context, v usecase.GroupDetail) groupDetailDTO {
	ctx, span := startSpan(ctx, "httpapi.groupDetailToDTO")
	defer span.End()

	members := make([]membershipDTO, 0, len(v.Members))
	for _, m := range v.Members {
		members = append(members, membershipToDTO(ctx, m))
	}
	posts := make([]groupPostDTO, 0, len(v.RecentPosts))
	for _, p := range v.RecentPosts {
		posts = append(posts, groupPostToDTO(ctx, p))
	}
	var requests []joinRequestDTO
	for _, jr := range v.PendingRequests {
		requests = append(requests, joinRequestToDTO(ctx, jr))
	}

	return groupDetailDTO{
		Group:             groupToDTO(ctx, v.Group),
		Members:           members,
		RecentPosts:       posts,
		PendingRequests:   requests,
		IsMember:          v.IsMember,
		IsCreator:         v.IsCreator,
		CanManage:         v.CanManage,
		HasPendingRequest: v.HasPendingRequest,
	}
}

func groupStatsToDTO(ctx context.Context, v usecase.GroupStats) groupStatsDTO {
	ctx, span := startSpan(ctx, "httpapi.groupStatsToDTO")
	defer span.End()

	players := make([]playerLedgerDTO, 0, len(v.Players))
	for _, ledger := range v.Players {
		players = append(players, playerLedgerDTO{
			PlayerID:        ledger.PlayerID,
			GamesPlayed:     ledger.GamesPlayed,
			TotalBuyInCents: ledger.TotalBuyInCents,
			TotalRebuyCents: ledger.TotalRebuyCents,
			NetBalanceCents: ledger.NetBalanceCents,
		})
	}

	return groupStatsDTO{
		Group:         groupToDTO(ctx, v.Group),
		GameCount:     v.GameCount,
		TotalPotCents: v.TotalPotCents,
		Players:       players,
	}
}
