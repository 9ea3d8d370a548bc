package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/jpalmerr/pollboard"
	"github.com/rivo/tview"
)

// ListRegion renders elements as the items of a tview list.
//
// Object records get a coloured status dot (green online, red offline) and a
// humanized last-seen suffix. Primitive records are shown as plain lines.
type ListRegion struct {
	list *tview.List
	app  *tview.Application
	now  func() time.Time
}

// NewListRegion creates a bordered list titled title.
func NewListRegion(title string) *ListRegion {
	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(tcell.ColorDarkSlateGray)
	list.SetBorder(true).SetTitle(" " + tview.Escape(title) + " ")

	return &ListRegion{list: list, now: time.Now}
}

// Attach routes later updates through app's event loop. Call it before
// app.Run; without an application, Replace mutates the list directly.
func (r *ListRegion) Attach(app *tview.Application) {
	r.app = app
}

// Primitive returns the list for layout.
func (r *ListRegion) Primitive() tview.Primitive {
	return r.list
}

// Replace clears the list and adds one item per child, in order.
func (r *ListRegion) Replace(children []pollboard.Element) {
	now := r.now()
	items := make([]string, len(children))
	for i, c := range children {
		items[i] = listItem(c, now)
	}

	apply := func() {
		r.list.Clear()
		for _, item := range items {
			r.list.AddItem(item, "", 0, nil)
		}
	}

	if r.app != nil {
		r.app.QueueUpdateDraw(apply)
		return
	}
	apply()
}

// listItem formats one child with tview colour tags.
func listItem(c pollboard.Element, now time.Time) string {
	var b strings.Builder
	switch c.Class {
	case pollboard.ClassOnline:
		b.WriteString("[green]●[-] ")
	case pollboard.ClassOffline:
		b.WriteString("[red]●[-] ")
	}
	b.WriteString(tview.Escape(c.Text))
	if c.LastSeen != nil {
		fmt.Fprintf(&b, "  [gray]%s[-]", humanize.RelTime(*c.LastSeen, now, "ago", "from now"))
	}
	return b.String()
}
