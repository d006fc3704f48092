// Package search implements the concurrent multi-source search engine: the
// fan-out over adapters, the merge/dedup/rank pipeline, the result cache,
// and the hook into price history persistence.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aluiziolira/go-bookfinder/adapter"
	"github.com/aluiziolira/go-bookfinder/config"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/aluiziolira/go-bookfinder/registry"
)

// ErrEmptyAdapterSet is returned when a request resolves to no adapters at
// all. It is the only per-request condition that fails a search outright.
var ErrEmptyAdapterSet = errors.New("no adapters resolved for request")

// Store is the narrow persistence contract the engine writes observations
// to and reads offline results from.
type Store interface {
	Append(ctx context.Context, records []models.PriceHistoryRecord) error
	Query(ctx context.Context, f models.HistoryFilter) ([]models.PriceHistoryRecord, error)
}

// Engine coordinates a registry of adapters, the result cache, and the
// price history store.
type Engine struct {
	registry *registry.Registry
	store    Store
	cache    *Cache
	cfg      *config.Config
	Metrics  *Metrics
}

// NewEngine builds the engine. store may be nil (no persistence, offline
// searches fail); the cache is always constructed for server-style callers.
func NewEngine(reg *registry.Registry, store Store, cfg *config.Config) *Engine {
	return &Engine{
		registry: reg,
		store:    store,
		cache:    NewCache(cfg.CacheTTL),
		cfg:      cfg,
		Metrics:  NewMetrics(),
	}
}

// Sources probes every registered source. Part of the caller-facing API.
func (e *Engine) Sources(ctx context.Context) []models.SourceInfo {
	return e.registry.List(ctx)
}

// outcome is one adapter's contribution to a search.
type outcome struct {
	source   string
	listings []*models.Listing
	status   models.SourceStatus
}

// Search runs a live (or offline) search and returns the merged, ranked
// result. Partial adapter failures never fail the search; they are recorded
// in the status map.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	start := time.Now()
	if req.MaxPerSource <= 0 {
		req.MaxPerSource = e.cfg.MaxPerSource
	}

	if req.Offline {
		result, err := e.offlineSearch(ctx, req)
		if err == nil {
			e.Metrics.ObserveSearch("offline", time.Since(start))
		}
		return result, err
	}

	adapters, unknown := e.registry.Resolve(req.Sources)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrEmptyAdapterSet, req.Sources)
	}

	result := &models.SearchResult{
		Statuses: make(map[string]models.SourceStatus, len(adapters)),
	}
	for _, name := range unknown {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown source %q ignored", name))
	}

	merged := e.fanOut(ctx, adapters, req, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filtered := filterByPrice(dedupe(merged), req.MinPrice, req.MaxPrice)

	// Persist the post-filter, pre-truncation set so history keeps every
	// observation, not just the cheapest page.
	if !req.NoSave && e.store != nil && len(filtered) > 0 {
		if err := e.persist(ctx, req, filtered); err != nil {
			slog.Warn("price history write failed", slog.Any("error", err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("results not saved: %v", err))
			e.Metrics.IncStoreError()
		}
	}

	result.Listings = rank(truncatePerSource(filtered, req.MaxPerSource))
	result.Elapsed = time.Since(start)
	e.Metrics.ObserveSearch("live", result.Elapsed)
	e.Metrics.AddListings(len(result.Listings))
	return result, nil
}

// fanOut invokes every adapter concurrently under its own timeout. A
// non-cooperative adapter cannot defeat the bound: the per-adapter goroutine
// is abandoned at its deadline and the search moves on.
func (e *Engine) fanOut(ctx context.Context, adapters []adapter.Adapter, req models.SearchRequest, result *models.SearchResult) []*models.Listing {
	q := adapter.Query{Term: req.Term(), ISBN: req.ISBN, Limit: req.MaxPerSource}

	outcomes := make(chan outcome, len(adapters))
	for _, a := range adapters {
		go func(a adapter.Adapter) {
			outcomes <- e.invoke(ctx, a, q)
		}(a)
	}

	var merged []*models.Listing
	for range adapters {
		o := <-outcomes
		result.Statuses[o.source] = o.status
		merged = append(merged, o.listings...)
		e.Metrics.IncSource(o.source, string(o.status.State))
	}
	return merged
}

func (e *Engine) invoke(ctx context.Context, a adapter.Adapter, q adapter.Query) outcome {
	timeout := e.cfg.TimeoutFor(a.Name())
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		listings []*models.Listing
		err      error
	}
	done := make(chan reply, 1)
	go func() {
		listings, err := a.Search(actx, q)
		done <- reply{listings: listings, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if isTimeout(r.err) {
				return outcome{source: a.Name(), status: models.SourceStatus{State: models.SourceTimedOut, Reason: "timeout"}}
			}
			slog.Debug("source failed",
				slog.String("source", a.Name()),
				slog.String("reason", adapter.Label(r.err)),
				slog.Any("error", r.err),
			)
			return outcome{source: a.Name(), status: models.SourceStatus{State: models.SourceFailed, Reason: adapter.Label(r.err)}}
		}
		valid := validListings(a.Name(), r.listings)
		return outcome{
			source:   a.Name(),
			listings: valid,
			status:   models.SourceStatus{State: models.SourceOK, Count: len(valid)},
		}
	case <-actx.Done():
		// The worker goroutine is abandoned; it drains into the buffered
		// channel whenever it finally returns.
		if ctx.Err() != nil {
			return outcome{source: a.Name(), status: models.SourceStatus{State: models.SourceSkipped, Reason: "cancelled"}}
		}
		return outcome{source: a.Name(), status: models.SourceStatus{State: models.SourceTimedOut, Reason: "timeout"}}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout adapter.ErrTimeout
	return errors.As(err, &timeout)
}

// validListings drops malformed fragments and stamps the source name onto
// listings an adapter forgot to attribute.
func validListings(source string, listings []*models.Listing) []*models.Listing {
	valid := listings[:0]
	for _, l := range listings {
		if l == nil {
			continue
		}
		if l.Source == "" {
			l.Source = source
		}
		if err := l.Validate(); err != nil {
			slog.Debug("dropping invalid listing", slog.String("source", source), slog.Any("error", err))
			continue
		}
		valid = append(valid, l)
	}
	return valid
}

// offlineSearch answers from price history: most recent observation per
// (source, url), same filters as the live path.
func (e *Engine) offlineSearch(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("offline search requires a price history store")
	}

	records, err := e.store.Query(ctx, models.HistoryFilter{
		Title:    req.Query,
		ISBN:     req.ISBN,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    req.MaxPerSource * 20,
	})
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}

	listings := make([]*models.Listing, 0, len(records))
	for i := range records {
		listing := records[i].Listing
		listings = append(listings, &listing)
	}

	filtered := filterByPrice(dedupe(listings), req.MinPrice, req.MaxPrice)
	return &models.SearchResult{
		Listings: rank(truncatePerSource(filtered, req.MaxPerSource)),
		Statuses: map[string]models.SourceStatus{
			"history": {State: models.SourceOK, Count: len(filtered)},
		},
	}, nil
}

// persist appends the observed listings as one atomic batch. A cancelled
// context skips the batch entirely so readers never see a half-written one.
func (e *Engine) persist(ctx context.Context, req models.SearchRequest, listings []*models.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]models.PriceHistoryRecord, 0, len(listings))
	for _, l := range listings {
		records = append(records, models.PriceHistoryRecord{
			Listing:      *l,
			QueryContext: req.Term(),
		})
	}
	return e.store.Append(ctx, records)
}

// dedupe collapses listings sharing (source, url), keeping the most
// recently fetched.
func dedupe(listings []*models.Listing) []*models.Listing {
	seen := make(map[models.ListingKey]*models.Listing, len(listings))
	order := make([]models.ListingKey, 0, len(listings))
	for _, l := range listings {
		key := l.Key()
		if existing, ok := seen[key]; ok {
			if l.FetchedAt.After(existing.FetchedAt) {
				seen[key] = l
			}
			continue
		}
		seen[key] = l
		order = append(order, key)
	}

	out := make([]*models.Listing, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key])
	}
	return out
}

func filterByPrice(listings []*models.Listing, min, max *float64) []*models.Listing {
	if min == nil && max == nil {
		return listings
	}
	out := listings[:0]
	for _, l := range listings {
		total := l.TotalPrice()
		if min != nil && total < *min {
			continue
		}
		if max != nil && total > *max {
			continue
		}
		out = append(out, l)
	}
	return out
}

// truncatePerSource keeps each source's cheapest n listings before the
// global merge, so one prolific source cannot crowd out the others.
func truncatePerSource(listings []*models.Listing, n int) []*models.Listing {
	if n <= 0 {
		return listings
	}
	bySource := make(map[string][]*models.Listing)
	var sources []string
	for _, l := range listings {
		if _, ok := bySource[l.Source]; !ok {
			sources = append(sources, l.Source)
		}
		bySource[l.Source] = append(bySource[l.Source], l)
	}

	var out []*models.Listing
	for _, source := range sources {
		group := bySource[source]
		sortListings(group)
		if len(group) > n {
			group = group[:n]
		}
		out = append(out, group...)
	}
	return out
}

// rank sorts ascending by total price with a deterministic (source, url)
// tie-break.
func rank(listings []*models.Listing) []*models.Listing {
	sortListings(listings)
	return listings
}

func sortListings(listings []*models.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.TotalPrice() != b.TotalPrice() {
			return a.TotalPrice() < b.TotalPrice()
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.URL < b.URL
	})
}
