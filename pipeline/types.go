package pipeline

import (
	"github.com/hazyhaar/sportwire/internal/quality"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/internal/worker"
	"github.com/hazyhaar/sportwire/registry"
	"github.com/hazyhaar/sportwire/search"
)

// Aliases for the types that cross the facade boundary. Consumers of the
// pipeline package never import internal packages directly.
type (
	Source        = store.Source
	ContentItem   = store.ContentItem
	TrendingTerm  = store.TrendingTerm
	IngestionJob  = store.IngestionJob
	QualitySignal = store.QualitySignal

	SearchQuery   = search.Query
	SearchResults = search.Results

	Heartbeat   = registry.Heartbeat
	WorkerStats = worker.Stats
	GateStats   = quality.GateStats
	Assessment  = quality.Assessment
)
