// Package id generates identifiers for orchestrator entities.
package id

import "github.com/google/uuid"

// New returns a fresh random identifier, prefixed so that IDs are
// self-describing when they show up in logs or events (room-..., user-...).
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func Room() string         { return New("room") }
func User() string         { return New("user") }
func MediaSession() string { return New("msess") }
func MediaUnit() string    { return New("munit") }
func Host() string         { return New("host") }
func Event() string        { return New("evt") }
func Recording() string    { return New("rec") }
func Transaction() string  { return New("txn") }
