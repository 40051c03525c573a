// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a unified local identity.
//
// A user may sign in through any supported identity provider (Google,
// Facebook, Instagram, ...). The pair (Provider, ProviderID) is the user's
// external identity and is globally unique — exactly one User row exists per
// pair, enforced by a UNIQUE constraint and the resolver's find-or-create.
//
// We still generate our own internal string ID (xid) so primary keys are not
// tied to any third party's numbering scheme and so a future second provider
// for the same person could be linked without rekeying.
//
// Email, Phone and Location are optional attributes the user fills in after
// first login. Empty string means "not set" — the profile endpoints only ever
// overwrite them at the owner's explicit request, never from provider data.
type User struct {
	ID          string    `json:"id"          db:"id"`
	Provider    string    `json:"provider"    db:"provider"`     // e.g. "google"
	ProviderID  string    `json:"providerId"  db:"provider_id"`  // provider's stable user id
	DisplayName string    `json:"displayName" db:"display_name"` // name from the provider profile
	AvatarURL   string    `json:"avatarUrl"   db:"avatar_url"`   // profile picture URL (may be empty)
	Email       string    `json:"email"       db:"email"`        // optional, owner-set or provider-granted
	Phone       string    `json:"phone"       db:"phone"`        // optional, owner-set
	Location    string    `json:"location"    db:"location"`     // optional, owner-set
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
