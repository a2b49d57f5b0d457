// Package search is the read side of the pipeline: FTS5-backed full-text
// queries with filters, four sort modes, keyset pagination and a
// registry-backed result cache for slow queries.
package search

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/registry"
)

// Sort modes.
const (
	SortRelevance  = "relevance"
	SortDate       = "date"
	SortQuality    = "quality"
	SortPopularity = "popularity"
)

const (
	// engineName tags responses so clients can tell backends apart.
	engineName = "fts5"

	maxLimit     = 100
	defaultLimit = 20
)

// Options tune the engine. Zero values take the defaults.
type Options struct {
	// SlowThreshold is the execution time past which a result is cached.
	SlowThreshold time.Duration
	// CacheTTL bounds how long a cached page may be served.
	CacheTTL time.Duration
}

func (o *Options) defaults() {
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = 100 * time.Millisecond
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
}

// Query is one search request.
type Query struct {
	Text         string   `json:"q,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Domains      []string `json:"domains,omitempty"`
	ContentTypes []string `json:"content_types,omitempty"`
	MinQuality   float64  `json:"min_quality,omitempty"`
	Since        int64    `json:"since,omitempty"` // UnixMilli, 0 = unbounded
	Until        int64    `json:"until,omitempty"`
	Sort         string   `json:"sort,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
}

func (q *Query) normalise() {
	switch q.Sort {
	case SortRelevance, SortDate, SortQuality, SortPopularity:
	default:
		q.Sort = SortRelevance
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}

// CacheKey canonicalises the query into its registry key: list fields
// sorted, stable JSON, md5 under the search prefix.
func (q Query) CacheKey() string {
	q.normalise()
	sort.Strings(q.Keywords)
	sort.Strings(q.Domains)
	sort.Strings(q.ContentTypes)
	data, _ := json.Marshal(q)
	return registry.PrefixSearch + fmt.Sprintf("%x", md5.Sum(data))
}

// Results is one page of matches.
type Results struct {
	Items        []*store.ContentItem `json:"items"`
	TotalCount   int                  `json:"total_count"`
	HasMore      bool                 `json:"has_more"`
	NextCursor   string               `json:"next_cursor,omitempty"`
	SearchTimeMs int64                `json:"search_time_ms"`
	Engine       string               `json:"engine"`
	FromCache    bool                 `json:"from_cache"`
}

// Engine executes queries against the content store.
type Engine struct {
	db   *sql.DB
	reg  *registry.Registry
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

// New builds an Engine. reg may be nil to run without caching.
func New(db *sql.DB, reg *registry.Registry, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	opts.defaults()
	return &Engine{db: db, reg: reg, opts: opts, log: log.With("component", "search"), now: time.Now}
}

// Search runs the query: cache probe, filtered+ranked page fetch with a
// parallel count, keyset cursor for the next page. Cache failures degrade
// to a miss, never to an error.
func (e *Engine) Search(ctx context.Context, q Query) (*Results, error) {
	q.normalise()
	started := e.now()

	key := q.CacheKey()
	if cached := e.cacheGet(ctx, key); cached != nil {
		cached.FromCache = true
		cached.SearchTimeMs = time.Since(started).Milliseconds()
		return cached, nil
	}

	cur, useCursor := e.decodeQueryCursor(q)

	where, args := buildFilters(q)
	spec := sortSpecFor(q)
	if useCursor {
		pred, predArgs := keysetPredicate(spec, cur)
		where = append(where, pred)
		args = append(args, predArgs...)
	}

	var (
		items []*store.ContentItem
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.fetchPage(gctx, q, spec, where, args)
		return err
	})
	g.Go(func() error {
		countWhere, countArgs := buildFilters(q)
		return e.db.QueryRowContext(gctx,
			`SELECT COUNT(*) FROM content_items WHERE `+strings.Join(countWhere, " AND "),
			countArgs...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	res := &Results{
		Items:      items,
		TotalCount: total,
		Engine:     engineName,
	}
	if len(items) > q.Limit {
		res.Items = items[:q.Limit]
		res.HasMore = true
		last := res.Items[len(res.Items)-1]
		res.NextCursor = encodeCursor(cursor{
			Sort:  q.Sort,
			Tuple: e.tupleFor(ctx, q, last),
			ID:    last.ID,
		})
	}

	elapsed := time.Since(started)
	res.SearchTimeMs = elapsed.Milliseconds()
	if elapsed > e.opts.SlowThreshold {
		e.cachePut(ctx, key, res)
	}
	return res, nil
}

// decodeQueryCursor returns the cursor when it is usable for this query.
// A cursor from a different sort mode restarts from the first page.
func (e *Engine) decodeQueryCursor(q Query) (cursor, bool) {
	if q.Cursor == "" {
		return cursor{}, false
	}
	cur, err := decodeCursor(q.Cursor)
	if err != nil {
		e.log.Debug("cursor rejected", "error", err)
		return cursor{}, false
	}
	if cur.Sort != q.Sort || len(cur.Tuple) != len(sortSpecFor(q).exprs) {
		e.log.Debug("cursor sort mismatch", "cursor_sort", cur.Sort, "query_sort", q.Sort)
		return cursor{}, false
	}
	return cur, true
}

func (e *Engine) fetchPage(ctx context.Context, q Query, spec sortSpec, where []string, args []any) ([]*store.ContentItem, error) {
	var order []string
	for _, expr := range spec.exprs {
		order = append(order, expr.sql+" DESC")
	}
	order = append(order, "id ASC")

	var orderArgs []any
	for _, expr := range spec.exprs {
		orderArgs = append(orderArgs, expr.args...)
	}

	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE %s ORDER BY %s LIMIT ?`,
		store.ContentCols(), strings.Join(where, " AND "), strings.Join(order, ", "))
	allArgs := append(append([]any{}, args...), orderArgs...)
	allArgs = append(allArgs, q.Limit+1)

	rows, err := e.db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*store.ContentItem
	for rows.Next() {
		it, err := store.ScanContentItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// keyExpr is one element of a sort tuple: the SQL expression and its bound
// parameters.
type keyExpr struct {
	sql  string
	args []any
}

type sortSpec struct {
	exprs []keyExpr
}

const publishedExpr = "COALESCE(published_at, 0)"

func sortSpecFor(q Query) sortSpec {
	switch q.Sort {
	case SortDate:
		return sortSpec{exprs: []keyExpr{{sql: publishedExpr}}}
	case SortQuality:
		return sortSpec{exprs: []keyExpr{
			{sql: "quality_score"},
			{sql: publishedExpr},
		}}
	case SortPopularity:
		return sortSpec{exprs: []keyExpr{
			{sql: "COALESCE((SELECT reputation FROM sources WHERE id = source_id), 0)"},
			{sql: publishedExpr},
		}}
	default: // relevance
		rank := keyExpr{sql: "1"}
		if q.Text != "" {
			needle := strings.ToLower(q.Text)
			rank = keyExpr{
				sql:  "CASE WHEN instr(lower(title), ?) > 0 THEN 3 WHEN instr(lower(summary), ?) > 0 THEN 2 ELSE 1 END",
				args: []any{needle, needle},
			}
		}
		return sortSpec{exprs: []keyExpr{rank, {sql: publishedExpr}}}
	}
}

// keysetPredicate builds the strict "after this tuple" condition for the
// DESC-ordered sort keys with id ASC as the final tiebreak.
func keysetPredicate(spec sortSpec, cur cursor) (string, []any) {
	var clauses []string
	var args []any
	for i := range spec.exprs {
		var parts []string
		for j := 0; j < i; j++ {
			parts = append(parts, spec.exprs[j].sql+" = ?")
			args = append(args, spec.exprs[j].args...)
			args = append(args, cur.Tuple[j])
		}
		parts = append(parts, spec.exprs[i].sql+" < ?")
		args = append(args, spec.exprs[i].args...)
		args = append(args, cur.Tuple[i])
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	var tieParts []string
	for j := range spec.exprs {
		tieParts = append(tieParts, spec.exprs[j].sql+" = ?")
		args = append(args, spec.exprs[j].args...)
		args = append(args, cur.Tuple[j])
	}
	tieParts = append(tieParts, "id > ?")
	args = append(args, cur.ID)
	clauses = append(clauses, "("+strings.Join(tieParts, " AND ")+")")
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// tupleFor computes the last row's sort tuple in Go, mirroring the SQL
// expressions. Popularity needs the source's reputation, fetched here.
func (e *Engine) tupleFor(ctx context.Context, q Query, it *store.ContentItem) []float64 {
	published := float64(it.PublishedAt)
	switch q.Sort {
	case SortDate:
		return []float64{published}
	case SortQuality:
		return []float64{it.QualityScore, published}
	case SortPopularity:
		var rep float64
		_ = e.db.QueryRowContext(ctx,
			`SELECT COALESCE(reputation, 0) FROM sources WHERE id = ?`, it.SourceID).Scan(&rep)
		return []float64{rep, published}
	default:
		rank := 1.0
		if q.Text != "" {
			needle := strings.ToLower(q.Text)
			switch {
			case strings.Contains(strings.ToLower(it.Title), needle):
				rank = 3
			case strings.Contains(strings.ToLower(it.Summary), needle):
				rank = 2
			}
		}
		return []float64{rank, published}
	}
}

func buildFilters(q Query) (where []string, args []any) {
	where = append(where, "is_active = 1")
	if q.Text != "" {
		where = append(where, "rowid IN (SELECT rowid FROM content_fts WHERE content_fts MATCH ?)")
		args = append(args, ftsQuery(q.Text))
	}
	if len(q.Keywords) > 0 {
		ph := placeholders(len(q.Keywords))
		where = append(where,
			"EXISTS (SELECT 1 FROM json_each(sports_keywords) WHERE json_each.value IN ("+ph+"))")
		for _, k := range q.Keywords {
			args = append(args, strings.ToLower(k))
		}
	}
	if len(q.Domains) > 0 {
		ph := placeholders(len(q.Domains))
		where = append(where, "source_id IN (SELECT id FROM sources WHERE domain IN ("+ph+"))")
		for _, d := range q.Domains {
			args = append(args, d)
		}
	}
	if len(q.ContentTypes) > 0 {
		ph := placeholders(len(q.ContentTypes))
		where = append(where, "content_type IN ("+ph+")")
		for _, ct := range q.ContentTypes {
			args = append(args, ct)
		}
	}
	if q.MinQuality > 0 {
		where = append(where, "quality_score >= ?")
		args = append(args, q.MinQuality)
	}
	if q.Since > 0 {
		where = append(where, "published_at >= ?")
		args = append(args, q.Since)
	}
	if q.Until > 0 {
		where = append(where, "published_at <= ?")
		args = append(args, q.Until)
	}
	return where, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ftsQuery quotes each token so user input can never be parsed as FTS5
// syntax. Tokens combine with implicit AND.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(quoted, " ")
}

func (e *Engine) cacheGet(ctx context.Context, key string) *Results {
	if e.reg == nil {
		return nil
	}
	raw, ok, err := e.reg.Get(ctx, key)
	if err != nil {
		e.log.Warn("cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var res Results
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		e.log.Warn("cache entry corrupt", "error", err)
		return nil
	}
	return &res
}

func (e *Engine) cachePut(ctx context.Context, key string, res *Results) {
	if e.reg == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := e.reg.Set(ctx, key, string(data), e.opts.CacheTTL); err != nil {
		e.log.Warn("cache write failed", "error", err)
	}
}

// Suggest returns up to limit distinct terms starting with prefix, ordered
// by recent mention frequency. Prefixes shorter than two characters yield
// nothing.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 2 {
		return nil, nil
	}
	if limit <= 0 || limit > maxLimit {
		limit = 10
	}
	rows, err := e.db.QueryContext(ctx, `
		SELECT term_norm FROM term_mentions
		WHERE term_norm LIKE ? ESCAPE '\'
		GROUP BY term_norm
		ORDER BY COUNT(*) DESC, term_norm ASC
		LIMIT ?`,
		escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search: suggest: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		out = append(out, term)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
