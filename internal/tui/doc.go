// Package tui provides terminal regions for the watch command.
//
// [ListRegion] renders into a tview list for interactive terminals.
// [WriterRegion] prints plain text blocks for pipes and log files.
package tui
