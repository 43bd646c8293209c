package postgres

import (
	"time"

	"github.com/riskibarqy/pokerdex/internal/domain/group"
)

type groupTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

type groupInsertModel struct {
	PublicID    string    `db:"public_id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

type groupSummaryRow struct {
	groupTableModel
	MemberCount int        `db:"member_count"`
	PostCount   int        `db:"post_count"`
	LastPostAt  *time.Time `db:"last_post_at"`
}

type membershipTableModel struct {
	ID       int64     `db:"id"`
	GroupID  string    `db:"group_public_id"`
	UserID   string    `db:"user_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}

type membershipInsertModel struct {
	GroupID  string    `db:"group_public_id"`
	UserID   string    `db:"user_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}

type joinRequestTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	GroupID     string    `db:"group_public_id"`
	RequestedBy string    `db:"requested_by"`
	RequestedAt time.Time `db:"requested_at"`
}

type joinRequestInsertModel struct {
	PublicID    string    `db:"public_id"`
	GroupID     string    `db:"group_public_id"`
	RequestedBy string    `db:"requested_by"`
	RequestedAt time.Time `db:"requested_at"`
}

func groupFromRow(row groupTableModel) group.Group {
	return group.Group{
		ID:          row.PublicID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
	}
}

func membershipFromRow(row membershipTableModel) group.Membership {
	return group.Membership{
		GroupID:  row.GroupID,
		UserID:   row.UserID,
		Role:     group.Role(row.Role),
		JoinedAt: row.JoinedAt,
	}
}

func joinRequestFromRow(row joinRequestTableModel) group.JoinRequest {
	return group.JoinRequest{
		ID:          row.PublicID,
		GroupID:     row.GroupID,
		RequestedBy: row.RequestedBy,
		RequestedAt: row.RequestedAt,
	}
}
