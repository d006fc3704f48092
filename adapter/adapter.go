// Package adapter defines the contract every marketplace source implements
// and the reference implementations shipped with the finder.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-bookfinder/models"
)

// Query is the per-adapter slice of a search request.
type Query struct {
	Term  string
	ISBN  string
	Limit int
}

// Adapter is a source of book listings. Implementations must never fail the
// whole call on a single malformed listing fragment; they skip it and keep
// going, returning an error only on total failure.
type Adapter interface {
	Name() string
	Descriptor() models.SourceDescriptor

	// Probe is a cheap reachability check used by the sources listing.
	Probe(ctx context.Context) error

	// Search returns zero or more listings for the query.
	Search(ctx context.Context, q Query) ([]*models.Listing, error)
}

// ErrTimeout indicates the source did not answer within the deadline.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrBlocked indicates the source detected automation and refused to serve
// the request. Distinguished from generic failure so callers can report it.
type ErrBlocked struct {
	Err error
}

func (e ErrBlocked) Error() string {
	return fmt.Errorf("blocked: %w", e.Err).Error()
}

func (e ErrBlocked) Unwrap() error {
	return e.Err
}

// ErrParse indicates a response arrived but carried no usable structured
// data.
type ErrParse struct {
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse: %w", e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

// ErrUnreachable indicates the source endpoint could not be reached at all.
type ErrUnreachable struct {
	Err error
}

func (e ErrUnreachable) Error() string {
	return fmt.Errorf("unreachable: %w", e.Err).Error()
}

func (e ErrUnreachable) Unwrap() error {
	return e.Err
}

// ErrBrowserUnavailable is reported by rendered-page adapters when no
// browser transport has been configured.
var ErrBrowserUnavailable = errors.New("browser transport unavailable")

// Classify wraps a raw transport error (and, when known, an HTTP status)
// into the adapter error taxonomy.
func Classify(err error, statusCode int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrUnreachable{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden, http.StatusTooManyRequests:
			return ErrBlocked{Err: wrapped}
		default:
			if statusCode >= http.StatusBadRequest {
				return ErrUnreachable{Err: wrapped}
			}
		}
	}

	return err
}

// Label returns the short reason string recorded in a search's status map.
func Label(err error) string {
	if err == nil {
		return ""
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var parse ErrParse
	if errors.As(err, &parse) {
		return "parse_error"
	}
	var unreachable ErrUnreachable
	if errors.As(err, &unreachable) {
		return "unreachable"
	}
	return "error"
}
