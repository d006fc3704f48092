package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/gocolly/colly/v2"
)

// Options carries the knobs shared by the reference adapters. The zero
// value is not usable; construct via config.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	DefaultCurrency string

	// Transport overrides the HTTP transport, used by tests to avoid the
	// network.
	Transport http.RoundTripper
}

// Structured scrapes any site that embeds Schema.org Product/Offer JSON-LD
// in its search results page. It is entirely configuration-driven: new
// sources of this kind need a descriptor, not code.
type Structured struct {
	desc models.SourceDescriptor
	opts Options
}

// NewStructured builds a structured-data adapter for one descriptor.
func NewStructured(desc models.SourceDescriptor, opts Options) (*Structured, error) {
	parsed, err := url.Parse(desc.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", desc.Name, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url for %s must include a host", desc.Name)
	}
	if !strings.Contains(desc.SearchURL, "{query}") {
		return nil, fmt.Errorf("search url template for %s is missing the {query} placeholder", desc.Name)
	}
	return &Structured{desc: desc, opts: opts}, nil
}

func (s *Structured) Name() string { return s.desc.Name }

func (s *Structured) Descriptor() models.SourceDescriptor { return s.desc }

// Probe checks that the site answers at all.
func (s *Structured) Probe(ctx context.Context) error {
	return probeURL(ctx, s.desc.BaseURL, s.opts)
}

// Search fetches the search results page and maps every structured-data
// offer onto a listing. Individual malformed fragments are skipped; the
// call fails only when the page is unreachable or carries no structured
// data at all.
func (s *Structured) Search(ctx context.Context, q Query) ([]*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	searchURL := strings.ReplaceAll(s.desc.SearchURL, "{query}", url.QueryEscape(q.Term))

	collector, err := s.newCollector()
	if err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		listings   []*models.Listing
		sawPayload bool
		pageErr    error
	)

	collector.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		now := time.Now()
		mu.Lock()
		defer mu.Unlock()
		sawPayload = true
		for _, product := range decodeJSONLD([]byte(e.Text)) {
			listings = append(listings, product.listings(
				s.desc.Name, e.Request.URL.String(), s.opts.DefaultCurrency, s.desc.Locale, now)...)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		mu.Lock()
		pageErr = Classify(err, status)
		mu.Unlock()
	})

	visitErr := collector.Visit(searchURL)
	collector.Wait()

	mu.Lock()
	defer mu.Unlock()
	// OnError sees the response status; prefer its classification over the
	// bare error Visit echoes back.
	if pageErr != nil {
		return nil, pageErr
	}
	if visitErr != nil {
		return nil, Classify(visitErr, 0)
	}
	if !sawPayload {
		return nil, ErrParse{Err: fmt.Errorf("no structured data payload at %s", searchURL)}
	}
	if q.Limit > 0 && len(listings) > q.Limit {
		listings = listings[:q.Limit]
	}
	return listings, nil
}

func (s *Structured) newCollector() (*colly.Collector, error) {
	parsed, err := url.Parse(s.desc.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(s.opts.UserAgent),
	)
	collector.SetRequestTimeout(s.opts.Timeout)
	if s.opts.Transport != nil {
		collector.WithTransport(s.opts.Transport)
	}
	return collector, nil
}

// probeURL issues a HEAD request (falling back to GET on 405) against a
// base URL and classifies the outcome.
func probeURL(ctx context.Context, base string, opts Options) error {
	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, base, nil)
	if err != nil {
		return ErrUnreachable{Err: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Classify(err, 0)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
		if err != nil {
			return ErrUnreachable{Err: err}
		}
		req.Header.Set("User-Agent", opts.UserAgent)
		resp, err = client.Do(req)
		if err != nil {
			return Classify(err, 0)
		}
		resp.Body.Close()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Classify(nil, resp.StatusCode)
	}
	return nil
}
