package pollboard

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	shape   Shape
	fields  Fields
	headers map[string]string
	timeout time.Duration
}

// SourceOption is a function that configures a [Source] during construction.
//
// Options return an error if validation fails.
type SourceOption func(*sourceConfig) error

// WithShape sets the expected record shape.
//
// Use [ShapePrimitive] for endpoints returning a list of plain values such as
// "/position"; the default, [ShapeObject], suits "/drones/status".
//
// Returns an error for an unknown shape.
func WithShape(shape Shape) SourceOption {
	return func(cfg *sourceConfig) error {
		switch shape {
		case ShapeObject, ShapePrimitive:
			cfg.shape = shape
			return nil
		default:
			return errors.New("shape must be object or primitive")
		}
	}
}

// WithFields sets the identifier and status field names for object records.
//
// Dot notation reaches into nested objects:
//
//	src, err := pollboard.NewSource("Fleet", url,
//	    pollboard.WithFields("drone.id", "drone.state"),
//	)
//
// Returns an error if either name is empty.
func WithFields(idField, statusField string) SourceOption {
	return func(cfg *sourceConfig) error {
		if idField == "" || statusField == "" {
			return errors.New("id and status field names cannot be empty")
		}
		cfg.fields.ID = idField
		cfg.fields.Status = statusField
		return nil
	}
}

// WithLastSeenField sets the optional last-observed timestamp field.
// An empty name disables last-seen extraction.
func WithLastSeenField(field string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.fields.LastSeen = field
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every request for this source.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the HTTP request timeout for this source.
//
// A request that does not complete in time fails the cycle with a
// [FetchError]. Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}
