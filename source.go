package pollboard

import (
	"errors"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source describes one polled resource and how to read its records.
//
// Source is immutable after creation via [NewSource]. All fields are private
// with getter methods that return copies of mutable data (maps), ensuring the
// source cannot be modified after construction.
//
// Sources are configured using the functional options pattern with
// [SourceOption] functions such as [WithShape], [WithFields],
// [WithLastSeenField], [WithHeaders] and [WithTimeout].
type Source struct {
	name    string
	url     string
	shape   Shape
	fields  Fields
	headers map[string]string
	timeout time.Duration
}

// Name returns the source's display name.
// The name identifies the source in logs and metrics.
func (s Source) Name() string {
	return s.name
}

// URL returns the resource locator that is fetched on every refresh.
func (s Source) URL() string {
	return s.url
}

// Shape returns the expected record shape.
func (s Source) Shape() Shape {
	return s.shape
}

// Fields returns the field names used for identifier, status and last-seen
// extraction. Only meaningful for [ShapeObject].
func (s Source) Fields() Fields {
	return s.fields
}

// Headers returns a copy of the source's custom HTTP headers.
// Returns nil if no custom headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the per-request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// IsZero reports whether s is the zero Source (not built by [NewSource]).
func (s Source) IsZero() bool {
	return s.name == "" && s.url == ""
}

// NewSource creates a [Source] with the given name, URL, and options.
//
// The rawURL parameter must be a valid URL with an http or https scheme.
// Unless overridden, the source expects [ShapeObject] records read through
// [DefaultFields].
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	src, err := pollboard.NewSource("Drones", "http://localhost:5000/drones/status",
//	    pollboard.WithTimeout(2 * time.Second),
//	)
//
//	pos, err := pollboard.NewSource("Position", "http://localhost:5000/position",
//	    pollboard.WithShape(pollboard.ShapePrimitive),
//	)
func NewSource(name, rawURL string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Source{}, errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, errors.New("URL scheme must be http or https")
	}

	cfg := &sourceConfig{
		shape:   ShapeObject,
		fields:  DefaultFields,
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		name:    name,
		url:     rawURL,
		shape:   cfg.shape,
		fields:  cfg.fields,
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
