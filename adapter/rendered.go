package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
	"golang.org/x/net/html"
)

// BrowserTransport renders a page with client-side JavaScript executed and
// returns the resulting HTML. Implementations live behind this seam so the
// engine never touches browser machinery directly.
type BrowserTransport interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Rendered handles sources whose search results only exist after
// client-side rendering. The extraction is the same JSON-LD mapping the
// structured adapter uses; only the fetch differs.
type Rendered struct {
	desc      models.SourceDescriptor
	transport BrowserTransport
	opts      Options
}

// NewRendered builds a rendered-page adapter. A nil transport is allowed:
// the adapter then reports the source as unreachable instead of failing
// the whole process.
func NewRendered(desc models.SourceDescriptor, transport BrowserTransport, opts Options) (*Rendered, error) {
	if !strings.Contains(desc.SearchURL, "{query}") {
		return nil, fmt.Errorf("search url template for %s is missing the {query} placeholder", desc.Name)
	}
	return &Rendered{desc: desc, transport: transport, opts: opts}, nil
}

func (r *Rendered) Name() string { return r.desc.Name }

func (r *Rendered) Descriptor() models.SourceDescriptor { return r.desc }

func (r *Rendered) Probe(ctx context.Context) error {
	if r.transport == nil {
		return ErrUnreachable{Err: ErrBrowserUnavailable}
	}
	// Plain HTTP reachability; rendering is not needed to know the host
	// answers.
	return probeURL(ctx, r.desc.BaseURL, r.opts)
}

func (r *Rendered) Search(ctx context.Context, q Query) ([]*models.Listing, error) {
	if r.transport == nil {
		return nil, ErrUnreachable{Err: ErrBrowserUnavailable}
	}

	searchURL := strings.ReplaceAll(r.desc.SearchURL, "{query}", url.QueryEscape(q.Term))

	rendered, err := r.transport.Render(ctx, searchURL)
	if err != nil {
		return nil, Classify(err, 0)
	}

	payloads, err := scriptPayloads(rendered)
	if err != nil {
		return nil, ErrParse{Err: err}
	}

	now := time.Now()
	var listings []*models.Listing
	for _, payload := range payloads {
		for _, product := range decodeJSONLD([]byte(payload)) {
			listings = append(listings, product.listings(
				r.desc.Name, searchURL, r.opts.DefaultCurrency, r.desc.Locale, now)...)
		}
	}

	if len(payloads) == 0 {
		return nil, ErrParse{Err: fmt.Errorf("no structured data payload at %s", searchURL)}
	}
	if q.Limit > 0 && len(listings) > q.Limit {
		listings = listings[:q.Limit]
	}
	return listings, nil
}

// scriptPayloads walks the document and collects the text of every
// ld+json script tag.
func scriptPayloads(rendered string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	var payloads []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "type" && attr.Val == "application/ld+json" && n.FirstChild != nil {
					payloads = append(payloads, n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return payloads, nil
}
