package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
	"golang.org/x/time/rate"
)

const openLibraryName = "Open Library"

// OpenLibrary queries the free Open Library search API. It has no prices
// (listings come back at zero) but it is the most reliable way to resolve a
// title to an ISBN, and its links point at lending options.
type OpenLibrary struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewOpenLibrary builds the adapter. The limiter keeps us polite toward a
// free API; pass nil to disable rate limiting.
func NewOpenLibrary(opts Options, limiter *rate.Limiter) *OpenLibrary {
	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}
	return &OpenLibrary{
		client:  client,
		limiter: limiter,
		baseURL: "https://openlibrary.org",
	}
}

func (o *OpenLibrary) Name() string { return openLibraryName }

func (o *OpenLibrary) Descriptor() models.SourceDescriptor {
	return models.SourceDescriptor{
		Name:      openLibraryName,
		BaseURL:   o.baseURL,
		SearchURL: o.baseURL + "/search.json?q={query}",
		Enabled:   true,
	}
}

func (o *OpenLibrary) Probe(ctx context.Context) error {
	return o.get(ctx, o.baseURL+"/search.json?q=probe&limit=1", &struct{}{})
}

type olSearchResponse struct {
	Docs []olSearchDoc `json:"docs"`
}

type olSearchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
}

func (o *OpenLibrary) Search(ctx context.Context, q Query) ([]*models.Listing, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	if q.ISBN != "" {
		params.Set("isbn", q.ISBN)
	} else {
		params.Set("q", q.Term)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var payload olSearchResponse
	if err := o.get(ctx, o.baseURL+"/search.json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	now := time.Now()
	listings := make([]*models.Listing, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		if doc.Title == "" || doc.Key == "" {
			continue
		}
		isbn := ""
		if len(doc.ISBN) > 0 {
			isbn = models.NormalizeISBN(doc.ISBN[0])
		}
		listings = append(listings, &models.Listing{
			Source:    openLibraryName,
			Title:     models.NormalizeText(doc.Title),
			Author:    models.NormalizeText(strings.Join(doc.AuthorName, ", ")),
			ISBN:      isbn,
			Price:     0, // lending library, not a shop
			Currency:  "USD",
			Condition: models.ConditionUnknown,
			URL:       o.baseURL + doc.Key,
			FetchedAt: now,
		})
	}
	return listings, nil
}

func (o *OpenLibrary) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ErrUnreachable{Err: err}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Classify(err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Classify(nil, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrParse{Err: fmt.Errorf("decode open library response: %w", err)}
	}
	return nil
}
