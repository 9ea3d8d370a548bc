package store

import "time"

// Child is the storage representation of one rendered element.
//
// Child is decoupled from the pollboard element type so the store and server
// can evolve independently of the public API.
type Child struct {
	// Text is the identifier or primitive value shown for the element.
	Text string `json:"text"`

	// Class is "online", "offline", or empty for plain lines.
	Class string `json:"class"`

	// LastSeen is the last-observed timestamp, if the record carried one.
	LastSeen *time.Time `json:"last_seen"`
}

// Snapshot is the full contents of one named region.
type Snapshot struct {
	// ID is the stable region identifier, e.g. "drone-status-list".
	ID string `json:"id"`

	// Name is the display name of the source rendering into the region.
	Name string `json:"name"`

	// Children are the region's elements in display order.
	Children []Child `json:"children"`

	// UpdatedAt is when the region was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for storing regions and subscribing to their
// replacements.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Replace swaps the full contents of the region identified by snap.ID
	// and notifies all subscribers.
	Replace(snap Snapshot)

	// Get returns the current contents of one region.
	Get(id string) (Snapshot, bool)

	// GetAll returns all regions sorted by ID.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []Snapshot

	// Subscribe returns a channel that receives every replaced region.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
