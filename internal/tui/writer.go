package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jpalmerr/pollboard"
)

// WriterRegion prints one text block per Replace to an io.Writer.
//
// Each block is a header line followed by one indented line per child:
//
//	drones: 2 records at 12:00:03
//	  ONLINE   D1  (2 minutes ago)
//	  OFFLINE  D2
type WriterRegion struct {
	mu    sync.Mutex
	w     io.Writer
	title string
	now   func() time.Time
}

// NewWriterRegion creates a region that writes to w under title.
func NewWriterRegion(w io.Writer, title string) *WriterRegion {
	return &WriterRegion{w: w, title: title, now: time.Now}
}

// Replace writes the block for children. Write errors are ignored; the
// next cycle writes a complete block again.
func (r *WriterRegion) Replace(children []pollboard.Element) {
	now := r.now()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s at %s\n", r.title, recordCount(len(children)), now.Format("15:04:05"))
	for _, c := range children {
		b.WriteString("  ")
		switch c.Class {
		case pollboard.ClassOnline:
			b.WriteString("ONLINE   ")
		case pollboard.ClassOffline:
			b.WriteString("OFFLINE  ")
		}
		b.WriteString(c.Text)
		if c.LastSeen != nil {
			fmt.Fprintf(&b, "  (%s)", humanize.RelTime(*c.LastSeen, now, "ago", "from now"))
		}
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, b.String())
}

func recordCount(n int) string {
	if n == 1 {
		return "1 record"
	}
	return humanize.Comma(int64(n)) + " records"
}
