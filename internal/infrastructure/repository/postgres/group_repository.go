package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/pokerdex/internal/domain/group"
	qb "github.com/riskibarqy/pokerdex/internal/platform/querybuilder"
)

const membershipConflictClause = "ON CONFLICT (group_public_id, user_id) DO NOTHING"

type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) CreateWithAdmin(ctx context.Context, g group.Group, admin group.Membership) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx create group: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	groupQuery, groupArgs, err := qb.InsertModel("groups", groupInsertModel{
		PublicID:    g.ID,
		Name:        g.Name,
		Slug:        g.Slug,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create group query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, groupQuery, groupArgs...); err != nil {
		if isUniqueViolation(err) {
			return group.ErrDuplicate
		}
		return fmt.Errorf("create group: %w", err)
	}

	memberQuery, memberArgs, err := qb.InsertModel("group_memberships", membershipInsertModel{
		GroupID:  admin.GroupID,
		UserID:   admin.UserID,
		Role:     string(admin.Role),
		JoinedAt: admin.JoinedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create admin membership query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, memberQuery, memberArgs...); err != nil {
		return fmt.Errorf("create admin membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create group tx: %w", err)
	}
	return nil
}

func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (group.Group, bool, error) {
	return r.getGroupBy(ctx, qb.Eq("public_id", groupID))
}

func (r *GroupRepository) GetBySlug(ctx context.Context, slug string) (group.Group, bool, error) {
	return r.getGroupBy(ctx, qb.Eq("slug", slug))
}

func (r *GroupRepository) getGroupBy(ctx context.Context, condition qb.Condition) (group.Group, bool, error) {
	query, args, err := qb.Select("*").From("groups").Where(condition).ToSQL()
	if err != nil {
		return group.Group{}, false, fmt.Errorf("build get group query: %w", err)
	}

	var row groupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return group.Group{}, false, nil
		}
		return group.Group{}, false, fmt.Errorf("get group: %w", err)
	}
	return groupFromRow(row), true, nil
}

func (r *GroupRepository) NameExistsFold(ctx context.Context, name, excludeGroupID string) (bool, error) {
	builder := qb.Select("1").From("groups").Where(qb.EqFold("name", name))
	if excludeGroupID != "" {
		builder = builder.Where(qb.NotEq("public_id", excludeGroupID))
	}
	query, args, err := builder.Limit(1).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build group name exists query: %w", err)
	}
	return r.exists(ctx, query, args)
}

func (r *GroupRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query, args, err := qb.Select("1").From("groups").Where(qb.Eq("slug", slug)).Limit(1).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build group slug exists query: %w", err)
	}
	return r.exists(ctx, query, args)
}

func (r *GroupRepository) exists(ctx context.Context, query string, args []any) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check existence: %w", err)
	}
	return true, nil
}

func (r *GroupRepository) Update(ctx context.Context, groupID, name, description string) error {
	query, args, err := qb.Update("groups").
		Set("name", name).
		Set("description", description).
		Where(qb.Eq("public_id", groupID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update group query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return group.ErrDuplicate
		}
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, groupID string) error {
	query, args, err := qb.Delete("groups").Where(qb.Eq("public_id", groupID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete group query: %w", err)
	}

	// memberships, join requests and game posts go with it via FK cascade
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListSummariesByUser(ctx context.Context, userID string) ([]group.Summary, error) {
	query, args, err := qb.Select(
		"g.*",
		"(SELECT COUNT(*) FROM group_memberships gm2 WHERE gm2.group_public_id = g.public_id) AS member_count",
		"(SELECT COUNT(*) FROM game_posts gp WHERE gp.group_public_id = g.public_id) AS post_count",
		"(SELECT MAX(gp.posted_at) FROM game_posts gp WHERE gp.group_public_id = g.public_id) AS last_post_at",
	).
		From("groups g JOIN group_memberships gm ON gm.group_public_id = g.public_id").
		Where(qb.Eq("gm.user_id", userID)).
		OrderBy("g.created_at DESC", "g.id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list group summaries query: %w", err)
	}

	var rows []groupSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list group summaries: %w", err)
	}

	out := make([]group.Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, group.Summary{
			Group:       groupFromRow(row.groupTableModel),
			MemberCount: row.MemberCount,
			PostCount:   row.PostCount,
			LastPostAt:  row.LastPostAt,
		})
	}
	return out, nil
}

func (r *GroupRepository) ListOthersByUser(ctx context.Context, userID string) ([]group.Group, error) {
	query, args, err := qb.Select("g.*").
		From("groups g").
		Where(qb.Expr("NOT EXISTS (SELECT 1 FROM group_memberships gm WHERE gm.group_public_id = g.public_id AND gm.user_id = ?)", userID)).
		OrderBy("g.created_at DESC", "g.id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list joinable groups query: %w", err)
	}

	var rows []groupTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list joinable groups: %w", err)
	}

	out := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		out = append(out, groupFromRow(row))
	}
	return out, nil
}

func (r *GroupRepository) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	query, args, err := qb.Select("group_public_id").
		From("group_memberships").
		Where(qb.Eq("user_id", userID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list membership group ids query: %w", err)
	}

	var out []string
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list membership group ids: %w", err)
	}
	return out, nil
}

func (r *GroupRepository) ListMemberships(ctx context.Context, groupID string) ([]group.Membership, error) {
	query, args, err := qb.Select("*").
		From("group_memberships").
		Where(qb.Eq("group_public_id", groupID)).
		OrderBy("joined_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list memberships query: %w", err)
	}

	var rows []membershipTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	out := make([]group.Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipFromRow(row))
	}
	return out, nil
}

func (r *GroupRepository) GetMembership(ctx context.Context, groupID, userID string) (group.Membership, bool, error) {
	query, args, err := qb.Select("*").
		From("group_memberships").
		Where(
			qb.Eq("group_public_id", groupID),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return group.Membership{}, false, fmt.Errorf("build get membership query: %w", err)
	}

	var row membershipTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return group.Membership{}, false, nil
		}
		return group.Membership{}, false, fmt.Errorf("get membership: %w", err)
	}
	return membershipFromRow(row), true, nil
}

func (r *GroupRepository) CreateMembership(ctx context.Context, m group.Membership) error {
	query, args, err := qb.InsertModel("group_memberships", membershipInsertModel{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create membership query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return group.ErrDuplicate
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (r *GroupRepository) UpdateMembershipRole(ctx context.Context, groupID, userID string, role group.Role) error {
	query, args, err := qb.Update("group_memberships").
		Set("role", string(role)).
		Where(
			qb.Eq("group_public_id", groupID),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update membership role query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	return nil
}

func (r *GroupRepository) DeleteMembership(ctx context.Context, groupID, userID string) (bool, error) {
	query, args, err := qb.Delete("group_memberships").
		Where(
			qb.Eq("group_public_id", groupID),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete membership query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected delete membership: %w", err)
	}
	return affected > 0, nil
}

func (r *GroupRepository) CountDistinctMemberships(ctx context.Context, userID string, groupIDs []string) (int, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}

	values := make([]any, 0, len(groupIDs))
	for _, id := range groupIDs {
		values = append(values, id)
	}
	query, args, err := qb.Select("COUNT(DISTINCT group_public_id)").
		From("group_memberships").
		Where(
			qb.Eq("user_id", userID),
			qb.In("group_public_id", values),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count distinct memberships query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct memberships: %w", err)
	}
	return count, nil
}

func (r *GroupRepository) TransferCreator(ctx context.Context, groupID, newCreatorID string, promote bool, departingUserID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx transfer creator: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	transferQuery, transferArgs, err := qb.Update("groups").
		Set("created_by", newCreatorID).
		Where(qb.Eq("public_id", groupID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build transfer creator query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, transferQuery, transferArgs...); err != nil {
		return fmt.Errorf("transfer creator: %w", err)
	}

	if promote {
		promoteQuery, promoteArgs, err := qb.Update("group_memberships").
			Set("role", string(group.RoleAdmin)).
			Where(
				qb.Eq("group_public_id", groupID),
				qb.Eq("user_id", newCreatorID),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build promote heir query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, promoteQuery, promoteArgs...); err != nil {
			return fmt.Errorf("promote heir: %w", err)
		}
	}

	departQuery, departArgs, err := qb.Delete("group_memberships").
		Where(
			qb.Eq("group_public_id", groupID),
			qb.Eq("user_id", departingUserID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete departing membership query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, departQuery, departArgs...); err != nil {
		return fmt.Errorf("delete departing membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer creator tx: %w", err)
	}
	return nil
}

func (r *GroupRepository) CreateJoinRequest(ctx context.Context, request group.JoinRequest) error {
	query, args, err := qb.InsertModel("group_join_requests", joinRequestInsertModel{
		PublicID:    request.ID,
		GroupID:     request.GroupID,
		RequestedBy: request.RequestedBy,
		RequestedAt: request.RequestedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create join request query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return group.ErrDuplicate
		}
		return fmt.Errorf("create join request: %w", err)
	}
	return nil
}

func (r *GroupRepository) GetJoinRequest(ctx context.Context, requestID string) (group.JoinRequest, bool, error) {
	query, args, err := qb.Select("*").
		From("group_join_requests").
		Where(qb.Eq("public_id", requestID)).
		ToSQL()
	if err != nil {
		return group.JoinRequest{}, false, fmt.Errorf("build get join request query: %w", err)
	}

	var row joinRequestTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return group.JoinRequest{}, false, nil
		}
		return group.JoinRequest{}, false, fmt.Errorf("get join request: %w", err)
	}
	return joinRequestFromRow(row), true, nil
}

func (r *GroupRepository) HasJoinRequest(ctx context.Context, groupID, userID string) (bool, error) {
	query, args, err := qb.Select("1").
		From("group_join_requests").
		Where(
			qb.Eq("group_public_id", groupID),
			qb.Eq("requested_by", userID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build has join request query: %w", err)
	}
	return r.exists(ctx, query, args)
}

func (r *GroupRepository) ListJoinRequests(ctx context.Context, groupID string) ([]group.JoinRequest, error) {
	query, args, err := qb.Select("*").
		From("group_join_requests").
		Where(qb.Eq("group_public_id", groupID)).
		OrderBy("requested_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list join requests query: %w", err)
	}

	var rows []joinRequestTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}

	out := make([]group.JoinRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, joinRequestFromRow(row))
	}
	return out, nil
}

func (r *GroupRepository) AcceptJoinRequest(ctx context.Context, requestID string, m group.Membership) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx accept join request: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery, deleteArgs, err := qb.Delete("group_join_requests").
		Where(qb.Eq("public_id", requestID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build consume join request query: %w", err)
	}
	result, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...)
	if err != nil {
		return false, fmt.Errorf("consume join request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected consume join request: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	// get-or-create: requester may already hold a membership row
	insertQuery, insertArgs, err := qb.InsertModel("group_memberships", membershipInsertModel{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}, membershipConflictClause)
	if err != nil {
		return false, fmt.Errorf("build accepted membership query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return false, fmt.Errorf("create accepted membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit accept join request tx: %w", err)
	}
	return true, nil
}

func (r *GroupRepository) DeleteJoinRequest(ctx context.Context, requestID string) (bool, error) {
	query, args, err := qb.Delete("group_join_requests").
		Where(qb.Eq("public_id", requestID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete join request query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete join request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected delete join request: %w", err)
	}
	return affected > 0, nil
}

var _ group.Repository = (*GroupRepository)(nil)
