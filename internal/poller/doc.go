// Package poller provides the HTTP fetcher and the fixed-period schedule
// behind pollboard's refresh loop.
//
// The main components are:
//
//   - [Client]: HTTP GET wrapper with per-request timeout and size limit
//   - [Schedule]: runs a task immediately and then on every tick of a fixed
//     period until stopped
//
// Users of the pollboard library should not need to interact with this
// package directly.
package poller
