// Package dashboard provides the embedded web UI for PollBoard.
//
// The page is compiled into the binary with an embed directive so a board
// ships as a single executable. It lists every region and keeps it current
// from the server's event stream.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
