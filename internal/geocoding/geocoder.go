package geocoding

import (
	"context"
	"fmt"

	"busfare-compare/internal/models"
)

// Geocoder converts a place name into coordinates
type Geocoder interface {
	Resolve(ctx context.Context, place string) (models.Coordinates, error)
}

// ErrorKind classifies resolution failures so callers can pick a remediation
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindAccessDenied  ErrorKind = "access_denied"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindUnavailable   ErrorKind = "unavailable"
)

// ResolutionError is returned when a place name cannot be resolved
type ResolutionError struct {
	Place  string
	Kind   ErrorKind
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed for %q (%s): %s", e.Place, e.Kind, e.Reason)
}

// UserMessage maps the error kind to a remediation message suitable for
// display. Distinct kinds call for distinct actions: fix the data, fix
// credentials, wait or upgrade, or retry.
func (e *ResolutionError) UserMessage() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("location %q not found", e.Place)
	case KindAccessDenied:
		return "geocoding credentials/permission problem"
	case KindQuotaExceeded:
		return "geocoding quota exceeded"
	default:
		return "geocoding service unavailable, try again"
	}
}
