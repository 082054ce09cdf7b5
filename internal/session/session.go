// Package session holds the signed-in user's credentials: the access token,
// the refresh token and the role tag. The Store is created once at the
// application root and handed to every component that needs credentials.
package session

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUnknown Role = ""
	RoleSSE     Role = "SSE"
	RoleWorkman Role = "WorkMen"
)

// ParseRole maps every role tag the API has been seen to emit onto one
// canonical value.
func ParseRole(tag string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "sse":
		return RoleSSE, nil
	case "workmen", "workman":
		return RoleWorkman, nil
	}
	return RoleUnknown, fmt.Errorf("unknown user type %q", tag)
}

func (r Role) Valid() bool {
	return r == RoleSSE || r == RoleWorkman
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

type Session struct {
	AccessToken  string
	RefreshToken string
	Role         Role
}

// Authenticated reports whether an access token is held. A lone refresh
// token does not count; it is only used reactively after a 401.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

func (s Session) CanRefresh() bool {
	return s.RefreshToken != ""
}

func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.Role == RoleUnknown
}
