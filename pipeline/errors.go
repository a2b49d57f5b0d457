package pipeline

import (
	"github.com/hazyhaar/sportwire/internal/fetch"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/search"
)

// Sentinels re-exported so callers can errors.Is against the facade
// without importing internal packages.
var (
	ErrRobotsBlocked   = fetch.ErrRobotsBlocked
	ErrBodyTooLarge    = fetch.ErrBodyTooLarge
	ErrInvalidCursor   = search.ErrInvalidCursor
	ErrDuplicateSource = store.ErrDuplicateSource
)
