package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/usecase"
)

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req createGameRequest
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

	created, err := h.gameService.CreateGame(ctx, usecase.CreateGameInput{
		ActorID:    principal.UserID,
		Title:      req.Title,
		Date:       req.Date,
		Location:   req.Location,
		BuyInCents: req.BuyInCents,
		GroupIDs:   req.GroupIDs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create game failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, gameToDTO(ctx, created))
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))

	detail, err := h.gameService.GetGame(ctx, principal.UserID, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "get game failed", "user_id", principal.UserID, "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameDetailToDTO(ctx, detail))
}

func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))

	var req updateGameRequest
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

	updated, err := h.gameService.UpdateGame(ctx, usecase.UpdateGameInput{
		ActorID:    principal.UserID,
		GameID:     gameID,
		Title:      req.Title,
		Date:       req.Date,
		Location:   req.Location,
		BuyInCents: req.BuyInCents,
		GroupIDs:   req.GroupIDs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update game failed", "user_id", principal.UserID, "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(ctx, updated))
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteGame")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))

	if err := h.gameService.DeleteGame(ctx, principal.UserID, gameID); err != nil {
		h.logger.WarnContext(ctx, "delete game failed", "user_id", principal.UserID, "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) AddParticipation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddParticipation")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))

	var req addParticipationRequest
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

	created, err := h.gameService.AddParticipation(ctx, usecase.AddParticipationInput{
		ActorID:           principal.UserID,
		GameID:            gameID,
		PlayerID:          req.PlayerID,
		FinalBalanceCents: req.FinalBalanceCents,
		RebuyCents:        req.RebuyCents,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "add participation failed", "user_id", principal.UserID, "game_id", gameID, "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, participationToDTO(ctx, created))
}

func (h *Handler) UpdateParticipation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateParticipation")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))
	participationID := strings.TrimSpace(r.PathValue("participationID"))

	var req updateParticipationRequest
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

	updated, err := h.gameService.UpdateParticipation(ctx, usecase.UpdateParticipationInput{
		ActorID:           principal.UserID,
		GameID:            gameID,
		ParticipationID:   participationID,
		FinalBalanceCents: req.FinalBalanceCents,
		RebuyCents:        req.RebuyCents,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update participation failed", "user_id", principal.UserID, "game_id", gameID, "participation_id", participationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, participationToDTO(ctx, updated))
}

func (h *Handler) DeleteParticipation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteParticipation")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}
	gameID := strings.TrimSpace(r.PathValue("gameID"))
	participationID := strings.TrimSpace(r.PathValue("participationID"))

	if err := h.gameService.DeleteParticipation(ctx, principal.UserID, gameID, participationID); err != nil {
		h.logger.WarnContext(ctx, "delete participation failed", "user_id", principal.UserID, "game_id", gameID, "participation_id", participationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

type createGameRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	Date       time.Time `json:"date" validate:"required"`
	Location   string    `json:"location" validate:"max=200"`
	BuyInCents int64     `json:"buy_in_cents" validate:"min=0"`
	GroupIDs   []string  `json:"group_ids" validate:"required,min=1,dive,required"`
}

type updateGameRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	Date       time.Time `json:"date" validate:"required"`
	Location   string    `json:"location" validate:"max=200"`
	BuyInCents int64     `json:"buy_in_cents" validate:"min=0"`
	GroupIDs   []string  `json:"group_ids" validate:"required,min=1,dive,required"`
}

type addParticipationRequest struct {
	PlayerID          string `json:"player_id" validate:"required"`
	FinalBalanceCents int64  `json:"final_balance_cents"`
	RebuyCents        int64  `json:"rebuy_cents" validate:"min=0"`
}

type updateParticipationRequest struct {
	FinalBalanceCents int64 `json:"final_balance_cents"`
	RebuyCents        int64 `json:"rebuy_cents" validate:"min=0"`
}

type gameDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Location     string `json:"location"`
	BuyInCents   int64  `json:"buy_in_cents"`
	CreatedBy    string `json:"created_by"`
	CreatedAtUTC string `json:"created_at_utc"`
}

type gamePostDTO struct {
	GroupID     string `json:"group_id"`
	PostedBy    string `json:"posted_by"`
	PostedAtUTC string `json:"posted_at_utc"`
}

type participationDTO struct {
	ID                string `json:"id"`
	GameID            string `json:"game_id"`
	PlayerID          string `json:"player_id"`
	FinalBalanceCents int64  `json:"final_balance_cents"`
	RebuyCents        int64  `json:"rebuy_cents"`
	CreatedAtUTC      string `json:"created_at_utc"`
}

type gameDetailDTO struct {
	Game           gameDTO            `json:"game"`
	Posts          []gamePostDTO      `json:"posts"`
	Participations []participationDTO `json:"participations"`
	TotalPotCents  int64              `json:"total_pot_cents"`
	CanManage      bool               `json:"can_manage"`
}

func gameToDTO(ctx context.Context, v game.Game) gameDTO {
	ctx, span := startSpan(ctx, "httpapi.gameToDTO")
	defer span.End()

	return gameDTO{
		ID:           v.ID,
		Title:        v.Title,
		Date:         v.Date.UTC().Format(time.RFC3339),
		Location:     v.Location,
		BuyInCents:   v.BuyInCents,
		CreatedBy:    v.CreatedBy,
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func gamePostToDTO(ctx context.Context, v game.Post) gamePostDTO {
	ctx, span := startSpan(ctx, "httpapi.gamePostToDTO")
	defer span.End()

	return gamePostDTO{
		GroupID:     v.GroupID,
		PostedBy:    v.PostedBy,
		PostedAtUTC: v.PostedAt.UTC().Format(time.RFC3339),
	}
}

func participationToDTO(ctx context.Context, v game.Participation) participationDTO {
	ctx, span := startSpan(ctx, "httpapi.participationToDTO")
	defer span.End()

	return participationDTO{
		ID:                v.ID,
		GameID:            v.GameID,
		PlayerID:          v.PlayerID,
		FinalBalanceCents: v.FinalBalanceCents,
		RebuyCents:        v.RebuyCents,
		CreatedAtUTC:      v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func gameDetailToDTO(ctx context.Context, v usecase.GameDetail) gameDetailDTO {
	ctx, span := startSpan(ctx, "httpapi.gameDetailToDTO")
	defer span.End()

	posts := make([]gamePostDTO, 0, len(v.Posts))
	for _, p := range v.Posts {
		posts = append(posts, gamePostToDTO(ctx, p))
	}
	participations := make([]participationDTO, 0, len(v.Participations))
	for _, p := range v.Participations {
		participations = append(participations, participationToDTO(ctx, p))
	}

	return gameDetailDTO{
		Game:           gameToDTO(ctx, v.Game),
		Posts:          posts,
		Participations: participations,
		TotalPotCents:  v.TotalPotCents,
		CanManage:      v.CanManage,
	}
}
