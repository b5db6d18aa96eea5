package chat

import "errors"

// Failure taxonomy surfaced verbatim to callers on both transports.
// Anything outside this list is treated as transient.
var (
	ErrForbidden       = errors.New("not a thread participant")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrInvalidTenant   = errors.New("tenant_id does not resolve to a tenant")
	ErrInvalidLandlord = errors.New("landlord_id does not resolve to a landlord")
	ErrNoRelationship  = errors.New("no property relationship between tenant and landlord")
	ErrEmptyMessage    = errors.New("message body or at least one attachment required")
)

// ErrorCode maps a service failure to a stable machine-readable code used
// by the live channel's error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrThreadNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTenant), errors.Is(err, ErrInvalidLandlord):
		return "invalid_participant"
	case errors.Is(err, ErrNoRelationship):
		return "no_relationship"
	case errors.Is(err, ErrEmptyMessage):
		return "validation_failed"
	default:
		return "transient"
	}
}
