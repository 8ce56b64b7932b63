package models

// Role gates administrative views.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// State is the session machine's lifecycle position.
type State string

const (
	StateAnonymous      State = "ANONYMOUS"
	StateAuthenticating State = "AUTHENTICATING"
	StateAuthenticated  State = "AUTHENTICATED"
)

func (s State) String() string {
	return string(s)
}

// Session is the client's view of who is logged in. A non-empty Token is the
// only authoritative signal of authentication; every other field is a profile
// projection returned by the backend.
type Session struct {
	Token     string `json:"token"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	CoverURL  string `json:"coverUrl,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// IsAuthenticated reports whether the session carries a token. A session
// without a token is anonymous no matter what else it holds.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the session is authenticated with the admin role.
func (s Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Role == RoleAdmin
}

// DisplayName picks the best available human name.
func (s Session) DisplayName() string {
	switch {
	case s.FullName != "":
		return s.FullName
	case s.FirstName != "" || s.LastName != "":
		if s.FirstName != "" && s.LastName != "" {
			return s.FirstName + " " + s.LastName
		}
		return s.FirstName + s.LastName
	default:
		return s.UserName
	}
}

// Registration carries the profile fields submitted on account creation.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
