package models

// Session is the authenticated operator behind a request. It is built by the JWT
// middleware and handed explicitly to every service call.
type Session struct {
	OperatorID string
	Email      string
	Role       string
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
