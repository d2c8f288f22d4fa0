package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/tendril/pkg/domain"
)

// TransportError is a non-2xx response from the provider.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", domain.ErrTransport, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", domain.ErrTransport, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return domain.ErrTransport }

// IsAuthStatus reports whether status calls for a credential refresh.
func IsAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// isTransient reports whether a failed request may succeed if repeated as is.
func isTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status >= 500
	}
	return !errors.Is(err, errRefreshFailed)
}

var errRefreshFailed = errors.New("credential refresh failed")
