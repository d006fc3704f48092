// Package registry assembles the configured set of source adapters:
// built-ins plus user-defined structured-data sites. It is read-only after
// construction.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/aluiziolira/go-bookfinder/adapter"
	"github.com/aluiziolira/go-bookfinder/config"
	"github.com/aluiziolira/go-bookfinder/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Registry holds the adapters a search can fan out to.
type Registry struct {
	adapters []adapter.Adapter
	byName   map[string]adapter.Adapter
}

// builtinSites are the structured-data sources shipped by default. Sites
// behind heavy client-side rendering carry the browser flag.
var builtinSites = []models.SourceDescriptor{
	{
		Name:      "AbeBooks",
		BaseURL:   "https://www.abebooks.com",
		SearchURL: "https://www.abebooks.com/servlet/SearchResults?sortby=17&kn={query}",
		Enabled:   true,
	},
	{
		Name:      "ThriftBooks",
		BaseURL:   "https://www.thriftbooks.com",
		SearchURL: "https://www.thriftbooks.com/browse/?b.search={query}",
		Enabled:   true,
	},
	{
		Name:            "PangoBooks",
		BaseURL:         "https://pangobooks.com",
		SearchURL:       "https://pangobooks.com/search?q={query}",
		RequiresBrowser: true,
		Enabled:         true,
	},
}

// New builds the registry from configuration. transport may be nil; sites
// that require a browser then report unreachable rather than aborting
// startup. Descriptor problems are logged per entry and skipped, never
// fatal for the whole load.
func New(cfg *config.Config, transport adapter.BrowserTransport) *Registry {
	opts := adapter.Options{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.AdapterTimeout,
		DefaultCurrency: cfg.DefaultCurrency,
	}

	r := &Registry{byName: make(map[string]adapter.Adapter)}

	for _, desc := range builtinSites {
		r.add(buildSite(desc, transport, opts))
	}
	r.add(adapter.WorldOfBooks(opts), nil)
	r.add(adapter.NewOpenLibrary(opts, rate.NewLimiter(rate.Limit(2), 2)), nil)

	for _, desc := range cfg.Sites {
		if desc.Locale == "" {
			desc.Locale = "en"
		}
		r.add(buildSite(desc, transport, opts))
	}

	return r
}

// NewStatic builds a registry from an explicit adapter list, bypassing the
// built-ins. Used when embedding the engine with custom sources.
func NewStatic(adapters ...adapter.Adapter) *Registry {
	r := &Registry{byName: make(map[string]adapter.Adapter, len(adapters))}
	for _, a := range adapters {
		r.add(a, nil)
	}
	return r
}

func buildSite(desc models.SourceDescriptor, transport adapter.BrowserTransport, opts adapter.Options) (adapter.Adapter, error) {
	if desc.RequiresBrowser {
		return adapter.NewRendered(desc, transport, opts)
	}
	return adapter.NewStructured(desc, opts)
}

func (r *Registry) add(a adapter.Adapter, err error) {
	if err != nil {
		slog.Warn("skipping source", slog.Any("error", err))
		return
	}
	key := strings.ToLower(a.Name())
	if _, exists := r.byName[key]; exists {
		slog.Warn("duplicate source name, keeping first", slog.String("source", a.Name()))
		return
	}
	r.adapters = append(r.adapters, a)
	r.byName[key] = a
}

// Resolve maps requested source names onto adapters. An empty request
// selects every enabled adapter. Unknown names are returned as warnings,
// not errors; the search proceeds with the known subset.
func (r *Registry) Resolve(names []string) (resolved []adapter.Adapter, unknown []string) {
	if len(names) == 0 {
		for _, a := range r.adapters {
			if a.Descriptor().Enabled {
				resolved = append(resolved, a)
			}
		}
		return resolved, nil
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if a, ok := r.byName[key]; ok {
			resolved = append(resolved, a)
		} else {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return resolved, unknown
}

// List probes every adapter concurrently and reports reachability per
// source. Individual probe failures are tolerated.
func (r *Registry) List(ctx context.Context) []models.SourceInfo {
	infos := make([]models.SourceInfo, len(r.adapters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, a := range r.adapters {
		i, a := i, a
		g.Go(func() error {
			info := models.SourceInfo{Descriptor: a.Descriptor()}
			if err := a.Probe(ctx); err != nil {
				info.ProbeError = err.Error()
			} else {
				info.Reachable = true
			}
			infos[i] = info
			return nil
		})
	}
	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Descriptor.Name < infos[j].Descriptor.Name
	})
	return infos
}

// Names returns every registered source name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	sort.Strings(names)
	return names
}

// Len reports how many adapters are registered.
func (r *Registry) Len() int {
	return len(r.adapters)
}
