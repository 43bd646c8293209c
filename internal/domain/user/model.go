package user

// Principal is the resolved actor identity attached to authenticated requests.
type Principal struct {
	UserID   string
	Username string
	Email    string
}
