// Package types holds the value contracts shared across nyx-light: the
// BookingProposal pipeline envelope, correction records, the four memory
// tiers, law chunks, adapter records and the integrity manifest — spec.md §3.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-prefixed opaque identifier, so ids sort naturally
// by creation order (spec.md §3: "identifiers are opaque unique strings
// (time-prefixed for natural ordering)").
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().UTC().Format("20060102T150405.000000"), uuid.NewString()[:8])
}
