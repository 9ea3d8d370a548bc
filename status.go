package pollboard

import (
	"math"
	"net/http"
	"strings"
	"time"
)

// Class is the visual classification of a record's status.
//
// Class is a string type so it serializes cleanly to JSON and reads well in
// logs. Object-shaped records are always [ClassOnline] or [ClassOffline];
// primitive lines carry [ClassNone] because they have no status indicator.
type Class string

const (
	// ClassOnline marks a record whose status normalizes to "online".
	ClassOnline Class = "online"

	// ClassOffline marks every other record, including a missing status.
	ClassOffline Class = "offline"

	// ClassNone is used for primitive lines, which carry no indicator.
	ClassNone Class = ""
)

// String returns the string representation of the class.
func (c Class) String() string {
	return string(c)
}

// CSSClass returns the stylesheet class name for the status indicator,
// "status-online" or "status-offline". It returns an empty string for
// [ClassNone].
func (c Class) CSSClass() string {
	if c == ClassNone {
		return ""
	}
	return "status-" + string(c)
}

// Classify maps a raw status value to a [Class].
//
// The value is trimmed of surrounding whitespace and lowercased; only the
// literal "online" classifies as [ClassOnline]. Anything else, including the
// empty string, is [ClassOffline].
//
//	pollboard.Classify(" Online ") // ClassOnline
//	pollboard.Classify("ONLINE")   // ClassOnline
//	pollboard.Classify("")         // ClassOffline
func Classify(status string) Class {
	if strings.ToLower(strings.TrimSpace(status)) == "online" {
		return ClassOnline
	}
	return ClassOffline
}

// Record is one unit of status data returned by a [Source].
//
// Records are ephemeral: they are decoded, rendered and discarded on every
// refresh cycle. For primitive-shaped sources only ID is populated and holds
// the text of the value.
type Record struct {
	// ID is the identifier rendered as the element text.
	ID string

	// Status is the free-form status value. Empty when the field is absent.
	Status string

	// LastSeen is the raw last-observed value as decoded from JSON
	// (string, float64, or nil when absent).
	LastSeen any
}

// Element is the display child derived from exactly one [Record].
//
// Elements are a pure function of their record: rendering the same record
// twice yields structurally equal elements. Relative time formatting is left
// to renderers so that this property holds.
type Element struct {
	// Text is the identifier (object shape) or the value (primitive shape).
	Text string `json:"text"`

	// Class is the status indicator class. Empty for primitive lines.
	Class Class `json:"class,omitempty"`

	// LastSeen is set when the record's last-seen value could be read as a
	// timestamp (RFC 3339 or HTTP date string, or Unix seconds).
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Region is the display container a [Poller] renders into.
//
// Replace clears all existing children and appends children in order. The
// poller never calls Replace concurrently for the same region, and never
// inspects anything outside the region. Implementations must not retain the
// slice beyond the call unless they copy it.
type Region interface {
	Replace(children []Element)
}

// RegionFunc adapts an ordinary function to the [Region] interface.
type RegionFunc func(children []Element)

// Replace calls f(children).
func (f RegionFunc) Replace(children []Element) {
	f(children)
}

// elementFor builds the display element for a record.
func elementFor(r Record, shape Shape) Element {
	if shape == ShapePrimitive {
		return Element{Text: r.ID}
	}
	return Element{
		Text:     r.ID,
		Class:    Classify(r.Status),
		LastSeen: parseLastSeen(r.LastSeen),
	}
}

// maxUnixSeconds bounds numeric last-seen values so the int64 conversion
// cannot overflow.
const maxUnixSeconds = float64(math.MaxInt64 / int64(time.Second))

// parseLastSeen reads a decoded JSON value as a timestamp.
// Strings may be RFC 3339 or an HTTP date ("Mon, 01 Jan 2024 12:00:00 GMT",
// as Flask's jsonify writes datetimes); numbers are Unix seconds.
func parseLastSeen(v any) *time.Time {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			if t, err = http.ParseTime(s); err != nil {
				return nil
			}
		}
		t = t.UTC()
		return &t
	case float64:
		if val <= 0 || val >= maxUnixSeconds {
			return nil
		}
		sec := int64(val)
		nsec := int64((val - float64(sec)) * float64(time.Second))
		t := time.Unix(sec, nsec).UTC()
		return &t
	default:
		return nil
	}
}
