package models

import (
	"net/url"
	"strings"
)

// ResetTokenParam is the query parameter carrying a password reset token.
const ResetTokenParam = "token"

// ResetToken is a URL-carried, backend-issued value authorizing one password
// change. Only its presence is checked client-side.
type ResetToken string

// ResetTokenFromURL extracts the token query parameter. A missing URL or an
// absent/empty parameter yields the zero token.
func ResetTokenFromURL(u *url.URL) ResetToken {
	if u == nil {
		return ""
	}
	return ResetTokenFromQuery(u.Query())
}

// ResetTokenFromQuery extracts the token from already-parsed query values.
func ResetTokenFromQuery(q url.Values) ResetToken {
	return ResetToken(strings.TrimSpace(q.Get(ResetTokenParam)))
}

// Present reports whether the token carries anything besides whitespace.
func (t ResetToken) Present() bool {
	return strings.TrimSpace(string(t)) != ""
}

func (t ResetToken) String() string {
	return string(t)
}
