// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a local account created from an externally authenticated
// identity (the front end's OAuth login).
//
// TWO IDENTIFIERS:
// ID is our internal key (an xid, same scheme as every other table).
// UUID is the globally unique identifier handed to other systems; callers
// should store UUID, not ID, when they need a stable external reference.
//
// NAME IS IMMUTABLE:
// Name is the generated handle ("jane.smith", "jane.smith_1"). It is unique
// at the moment it is assigned and is never rewritten afterwards, even if
// the person's display name changes upstream.
type User struct {
	ID        string    `json:"id"        db:"id"`
	UUID      string    `json:"uuid"      db:"uuid"`
	Name      string    `json:"name"      db:"name"`  // unique handle
	Email     string    `json:"email"     db:"email"` // unique, stored as received
	Active    bool      `json:"active"    db:"active"`
	Role      string    `json:"role"      db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
