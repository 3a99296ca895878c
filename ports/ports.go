// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Source Ports
// -----------------------------------------------------------------------------

// Parser turns dotenv-style text into a flat key/value map.
// Quoting, comments and multi-line values are the parser's concern.
type Parser interface {
	Parse(src []byte) (map[string]string, error)
}
