package store

// Source is an origin domain the pipeline crawls.
type Source struct {
	ID                   string   `json:"id"`
	Domain               string   `json:"domain"`
	Name                 string   `json:"name"`
	BaseURL              string   `json:"base_url"`
	Kind                 string   `json:"kind"` // feed | sitemap | html | api
	IsActive             bool     `json:"is_active"`
	Tier                 int      `json:"tier"` // 1 premium, 2 quality, 3 discovery
	Reputation           float64  `json:"reputation"`
	SuccessRate          float64  `json:"success_rate"`
	ErrorRate            float64  `json:"error_rate"`
	ConsecutiveFailures  int      `json:"consecutive_failures"`
	RSSURL               string   `json:"rss_url,omitempty"`
	SitemapURL           string   `json:"sitemap_url,omitempty"`
	SearchQueries        []string `json:"search_queries,omitempty"`
	LastCrawledRootAt    int64    `json:"last_crawled_root_at,omitempty"`
	LastCrawledSitemapAt int64    `json:"last_crawled_sitemap_at,omitempty"`
	LastCrawledFeedAt    int64    `json:"last_crawled_feed_at,omitempty"`
	CreatedAt            int64    `json:"created_at"`
	UpdatedAt            int64    `json:"updated_at"`
}

// ContentItem is one accepted article.
type ContentItem struct {
	ID               string              `json:"id"`
	SourceID         string              `json:"source_id"`
	URL              string              `json:"url"`
	CanonicalURL     string              `json:"canonical_url"`
	ContentHash      string              `json:"content_hash"`
	Title            string              `json:"title"`
	Text             string              `json:"text"`
	Markdown         string              `json:"markdown,omitempty"`
	Byline           string              `json:"byline,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	PublishedAt      int64               `json:"published_at,omitempty"` // UnixMilli, 0 = unknown
	Language         string              `json:"language,omitempty"`
	WordCount        int                 `json:"word_count"`
	ImageURL         string              `json:"image_url,omitempty"`
	SportsKeywords   []string            `json:"sports_keywords"`
	Entities         map[string][]string `json:"entities,omitempty"`
	ContentType      string              `json:"content_type"`
	ExtractionStatus string              `json:"extraction_status"`
	ExtractionMethod string              `json:"extraction_method,omitempty"`
	QualityScore     float64             `json:"quality_score"`
	GateReason       string              `json:"gate_reason,omitempty"`
	IsActive         bool                `json:"is_active"`
	IsDuplicate      bool                `json:"is_duplicate"`
	IsSpam           bool                `json:"is_spam"`
	CreatedAt        int64               `json:"created_at"`
	UpdatedAt        int64               `json:"updated_at"`
}

// QualitySignal is one scalar signal recorded for one item.
type QualitySignal struct {
	ItemID      string  `json:"item_id"`
	Kind        string  `json:"kind"`
	Value       float64 `json:"value"`
	Weight      float64 `json:"weight"`
	AlgoVersion string  `json:"algo_version"`
	ComputedAt  int64   `json:"computed_at"`
}

// Job statuses. A job never regresses to an earlier status.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// IngestionJob is one discovery/crawl batch.
type IngestionJob struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id,omitempty"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Discovered  int    `json:"discovered"`
	Processed   int    `json:"processed"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
	StartedAt   int64  `json:"started_at,omitempty"`
	CompletedAt int64  `json:"completed_at,omitempty"`
	Summary     string `json:"summary,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// TrendingTerm is the windowed counter state for one normalised term.
type TrendingTerm struct {
	Term          string   `json:"term"`
	TermNorm      string   `json:"term_norm"`
	TermType      string   `json:"term_type"`
	Count1h       int      `json:"count_1h"`
	Count6h       int      `json:"count_6h"`
	Count24h      int      `json:"count_24h"`
	BurstRatio    float64  `json:"burst_ratio"`
	TrendScore    float64  `json:"trend_score"`
	IsTrending    bool     `json:"is_trending"`
	TrendStartAt  int64    `json:"trend_start_at,omitempty"`
	TrendPeakAt   int64    `json:"trend_peak_at,omitempty"`
	CooldownUntil int64    `json:"cooldown_until,omitempty"`
	RelatedTerms  []string `json:"related_terms,omitempty"`
	SportsContext string   `json:"sports_context,omitempty"`
	LastSeenAt    int64    `json:"last_seen_at"`
	UpdatedAt     int64    `json:"updated_at"`
}

// Mention is one raw term sighting in an accepted item.
type Mention struct {
	TermNorm      string `json:"term_norm"`
	TermType      string `json:"term_type"`
	SportsContext string `json:"sports_context,omitempty"`
	ItemID        string `json:"item_id,omitempty"`
	SeenAt        int64  `json:"seen_at"`
}

// FetchLogEntry records one fetch outcome for telemetry and error rates.
type FetchLogEntry struct {
	SourceID   string `json:"source_id,omitempty"`
	URL        string `json:"url"`
	Status     int    `json:"status"`
	Bytes      int64  `json:"bytes"`
	DurationMs int64  `json:"duration_ms"`
	Proxy      string `json:"proxy,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}
