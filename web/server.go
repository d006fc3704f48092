// Package web exposes the search core over a small JSON API for web-facing
// callers. Rendering is left to whatever consumes the JSON; this layer only
// wires HTTP onto the engine, the store, and the wishlist matcher.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/aluiziolira/go-bookfinder/search"
	"github.com/aluiziolira/go-bookfinder/wishlist"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server hosts the JSON API.
type Server struct {
	engine *search.Engine
	store  *history.Store
	echo   *echo.Echo
}

// NewServer wires routes onto a fresh echo instance. store may be nil;
// wishlist and history endpoints then answer 503.
func NewServer(engine *search.Engine, store *history.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{engine: engine, store: store, echo: e}

	e.GET("/healthz", s.health)
	e.GET("/api/search", s.search)
	e.GET("/api/sources", s.sources)
	e.GET("/api/history", s.history)
	e.GET("/api/wishlist", s.wishlistList)
	e.POST("/api/wishlist", s.wishlistAdd)
	e.DELETE("/api/wishlist/:id", s.wishlistRemove)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(engine.Metrics.Registry, promhttp.HandlerOpts{})))

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	slog.Info("web api listening", slog.String("addr", addr))
	return s.echo.Start(addr)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	*models.SearchResult
	Cached bool                `json:"cached"`
	Alerts []models.AlertEvent `json:"alerts,omitempty"`
}

// search answers repeated identical queries from the result cache; a cache
// hit re-invokes no adapters and re-writes no history.
func (s *Server) search(c echo.Context) error {
	req, err := parseSearchRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, cached, err := s.engine.CachedSearch(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, search.ErrEmptyAdapterSet) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := searchResponse{SearchResult: result, Cached: cached}
	if s.store != nil {
		if entries, err := s.store.WishlistList(c.Request().Context()); err == nil {
			resp.Alerts = wishlist.Match(result, entries)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func parseSearchRequest(c echo.Context) (models.SearchRequest, error) {
	req := models.SearchRequest{
		Query: strings.TrimSpace(c.QueryParam("query")),
		ISBN:  models.NormalizeISBN(c.QueryParam("isbn")),
	}
	if req.Query == "" && req.ISBN == "" {
		return req, errors.New("one of query or isbn is required")
	}

	if raw := c.QueryParam("sources"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Sources = append(req.Sources, name)
			}
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return req, errors.New("limit must be a positive integer")
		}
		req.MaxPerSource = n
	}
	var err error
	if req.MinPrice, err = parsePriceParam(c.QueryParam("min_price")); err != nil {
		return req, err
	}
	if req.MaxPrice, err = parsePriceParam(c.QueryParam("max_price")); err != nil {
		return req, err
	}
	req.Offline = c.QueryParam("offline") == "true"
	return req, nil
}

func parsePriceParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return nil, errors.New("price bounds must be non-negative numbers")
	}
	return &value, nil
}

func (s *Server) sources(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Sources(c.Request().Context()))
}

func (s *Server) history(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "price history store not configured")
	}

	filter := models.HistoryFilter{
		Title: strings.TrimSpace(c.QueryParam("query")),
		ISBN:  models.NormalizeISBN(c.QueryParam("isbn")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	records, err := s.store.Query(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) wishlistList(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "price history store not configured")
	}
	entries, err := s.store.WishlistList(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) wishlistAdd(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "price history store not configured")
	}

	var entry models.WishlistEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid wishlist entry")
	}
	if strings.TrimSpace(entry.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if entry.MaxPrice <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "max_price must be positive")
	}
	entry.ISBN = models.NormalizeISBN(entry.ISBN)

	id, err := s.store.WishlistAdd(c.Request().Context(), entry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	entry.ID = id
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) wishlistRemove(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "price history store not configured")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid wishlist id")
	}
	if err := s.store.WishlistRemove(c.Request().Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "wishlist entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
