package gmail

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"sendertally/internal/tally"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, tally.ErrAuthExpired},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden, Message: "Insufficient Permission"}, tally.ErrAuthExpired},
		{"forbidden rate limit", &googleapi.Error{
			Code:   http.StatusForbidden,
			Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
		}, tally.ErrTransient},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, tally.ErrNotFound},
		{"gone", &googleapi.Error{Code: http.StatusGone}, tally.ErrNotFound},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, tally.ErrNotFound},
		{"too many requests", &googleapi.Error{Code: http.StatusTooManyRequests}, tally.ErrTransient},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable}, tally.ErrTransient},
		{"refresh failed", errors.Wrap(&oauth2.RetrieveError{ErrorCode: "invalid_grant"}, "get"), tally.ErrAuthExpired},
		{"timeout", context.DeadlineExceeded, tally.ErrTransient},
		{"breaker open", gobreaker.ErrOpenState, tally.ErrTransient},
		{"network", errors.New("connection reset by peer"), tally.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("get message", "m1", tt.err)

			var fe *tally.FetchError
			if assert.True(t, errors.As(err, &fe)) {
				assert.Equal(t, "m1", fe.Ref)
			}
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.err, "cause must stay reachable")
		})
	}
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	orig := &tally.FetchError{Op: "get message", Kind: tally.ErrMalformedHeader, Err: errors.New("no From header")}
	assert.Same(t, orig, Classify("other", "x", orig))
	assert.NoError(t, Classify("op", "", nil))
}

func TestTripsBreaker(t *testing.T) {
	assert.True(t, tripsBreaker(&googleapi.Error{Code: http.StatusBadGateway}))
	assert.True(t, tripsBreaker(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, tripsBreaker(context.DeadlineExceeded))
	assert.False(t, tripsBreaker(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, tripsBreaker(&googleapi.Error{Code: http.StatusUnauthorized}))
	assert.False(t, tripsBreaker(&oauth2.RetrieveError{}))
	assert.False(t, tripsBreaker(nil))
}
