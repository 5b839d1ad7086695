package store

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// newRandomID returns prefix-<suffix> where suffix is 8 base32 chars taken from a v4 uuid.
func newRandomID(prefix string) string {
	u := uuid.New()
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return prefix + "-" + strings.ToLower(enc.EncodeToString(u[:5]))
}

// NewProjectID lets clients pick a project id before the create round trip.
func NewProjectID() string { return newRandomID("prj") }
