package gmail

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// Classify wraps a Gmail client failure in a tally.FetchError of the right kind:
//   - 401, a failed token refresh, or 403 other than rate limiting: ErrAuthExpired
//   - 400, 404, 410: ErrNotFound
//   - 429, 5xx, timeouts, network errors, open breaker: ErrTransient
func Classify(op string, ref model.MessageRef, err error) error {
	if err == nil {
		return nil
	}
	var fe *tally.FetchError
	if errors.As(err, &fe) {
		return err
	}

	kind := tally.ErrTransient
	var apiErr *googleapi.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &retrieveErr):
		kind = tally.ErrAuthExpired
	case errors.As(err, &apiErr):
		kind = kindForStatus(apiErr)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = tally.ErrTransient
	}
	return &tally.FetchError{Op: op, Ref: string(ref), Kind: kind, Err: err}
}

func kindForStatus(e *googleapi.Error) error {
	switch e.Code {
	case http.StatusUnauthorized:
		return tally.ErrAuthExpired
	case http.StatusForbidden:
		if isRateLimited(e) {
			return tally.ErrTransient
		}
		return tally.ErrAuthExpired
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
		return tally.ErrNotFound
	}
	return tally.ErrTransient
}

func isRateLimited(e *googleapi.Error) bool {
	for _, item := range e.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Message), "rate limit")
}

// tripsBreaker reports whether err says something about the health of the
// service rather than about one request.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var retrieveErr *oauth2.RetrieveError
	return !errors.As(err, &retrieveErr)
}
