// Package store keeps the rendered contents of named display regions.
//
// Each region is identified by a stable ID (for example "drone-status-list")
// and is replaced wholesale on every successful refresh. A publish-subscribe
// mechanism pushes replaced regions to connected dashboard clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: The contents of one region
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the refresh loop).
package store
