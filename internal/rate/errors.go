package rate

import (
	"errors"
	"fmt"
)

// Kind names a class of estimation failure. The values double as the error
// codes rendered by the HTTP layer.
type Kind string

const (
	KindMissingParameter      Kind = "missing_parameter"
	KindOutOfRange            Kind = "out_of_range"
	KindDestinationNotFound   Kind = "destination_not_found"
	KindServiceUnavailable    Kind = "service_unavailable"
	KindWeightOutOfRange      Kind = "weight_out_of_range"
	KindPackageWeightExceeded Kind = "package_weight_exceeded"
	KindUnknownPackageType    Kind = "unknown_package_type"
	KindUnknownDeliveryOption Kind = "unknown_delivery_option"
	KindConfigurationGap      Kind = "configuration_gap"
)

// Error is returned for every rejected estimate. Context echoes the allowed
// range or set back to the caller.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// IsServerFault is true when the rule tables, not the request, are at fault.
func (e *Error) IsServerFault() bool {
	return e.Kind == KindConfigurationGap || e.Kind == KindWeightOutOfRange
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newError(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
