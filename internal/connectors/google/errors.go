package google

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// Reasons Google reports on a 403 that is really a quota error.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// WrapError maps Google API and OAuth failures onto the domain taxonomy.
// The original error stays in the chain for errors.As.
//
//	401, invalid_grant     -> domain.ErrAuthExpired
//	403 (scope)            -> domain.ErrAuthRequired
//	403 (quota), 429       -> domain.ErrRateLimited
//	404                    -> domain.ErrNotFound
//	5xx, network timeouts  -> domain.ErrTransient
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode == "invalid_grant" || rerr.Response == nil || rerr.Response.StatusCode < 500 {
			return fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
		case gerr.Code == http.StatusForbidden && hasRateLimitReason(gerr):
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		case gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		case gerr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		case gerr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		return err
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

func hasRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}

// RetryAfter returns the server's Retry-After hint, or zero.
func RetryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
