package model

import "time"

// Session binds a browser-held opaque token to a user id.
//
// The token is the only thing the client ever stores; the server-side row is
// the source of truth, so logout can destroy a session immediately with no
// grace period (unlike a signed stateless token, which stays valid until
// expiry wherever it was copied).
//
// PostCredits counts completed-but-unspent payment charges. /acceptPayment
// increments it on a successful charge; /savePost decrements it atomically.
// One payment authorizes exactly one post, and the credit dies with the
// session.
type Session struct {
	Token       string    `json:"-"           db:"token"` // never serialized to clients except via Set-Cookie
	UserID      string    `json:"userId"      db:"user_id"`
	PostCredits int       `json:"postCredits" db:"post_credits"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt"   db:"expires_at"`
}

// Expired reports whether the session has passed its store-level eviction
// deadline.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
