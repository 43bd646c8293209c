package group

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Group is a circle of users games can be posted into. CreatedBy is tracked
// separately from membership roles: it survives promote/demote and only moves
// during succession when the creator leaves.
type Group struct {
	ID          string
	Name        string
	Slug        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

type Membership struct {
	GroupID  string
	UserID   string
	Role     Role
	JoinedAt time.Time
}

// JoinRequest is a pending, unresolved ask to join a group. Requests are
// deleted on accept or reject; no history is retained.
type JoinRequest struct {
	ID          string
	GroupID     string
	RequestedBy string
	RequestedAt time.Time
}

// Summary carries the per-group aggregates shown on list views.
type Summary struct {
	Group       Group
	MemberCount int
	PostCount   int
	LastPostAt  *time.Time
}
