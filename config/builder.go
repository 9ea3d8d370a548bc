package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/pollboard"
)

// BuildWidgets converts parsed configuration into SDK widgets, in file order.
func BuildWidgets(cfg *Config) ([]pollboard.Widget, error) {
	widgets := make([]pollboard.Widget, 0, len(cfg.Widgets))
	for _, wc := range cfg.Widgets {
		src, err := BuildSource(wc)
		if err != nil {
			return nil, fmt.Errorf("widget %q: %w", wc.Region, err)
		}
		widgets = append(widgets, pollboard.Widget{RegionID: wc.Region, Source: src})
	}
	return widgets, nil
}

// BuildOptions converts the whole configuration into [pollboard.New] options.
// Logger and other process concerns are left to the caller.
func BuildOptions(cfg *Config) ([]pollboard.Option, error) {
	widgets, err := BuildWidgets(cfg)
	if err != nil {
		return nil, err
	}

	opts := []pollboard.Option{
		pollboard.WithWidgets(widgets...),
		pollboard.WithPort(cfg.Port),
		pollboard.WithPollingInterval(cfg.PollInterval.Duration()),
	}
	if cfg.Title != "" {
		opts = append(opts, pollboard.WithTitle(cfg.Title))
	}
	if cfg.StaleDiscard {
		opts = append(opts, pollboard.WithPollerOptions(pollboard.WithStaleDiscard()))
	}
	return opts, nil
}

// BuildSource converts a single WidgetConfig to an SDK Source.
func BuildSource(wc WidgetConfig) (pollboard.Source, error) {
	shape, err := pollboard.ParseShape(wc.Shape)
	if err != nil {
		return pollboard.Source{}, err
	}

	opts := []pollboard.SourceOption{pollboard.WithShape(shape)}

	if wc.IDField != "" || wc.StatusField != "" {
		id, status := wc.IDField, wc.StatusField
		if id == "" {
			id = pollboard.DefaultFields.ID
		}
		if status == "" {
			status = pollboard.DefaultFields.Status
		}
		opts = append(opts, pollboard.WithFields(id, status))
	}

	if wc.LastSeenField != "" {
		opts = append(opts, pollboard.WithLastSeenField(wc.LastSeenField))
	}

	if wc.Timeout != 0 {
		opts = append(opts, pollboard.WithTimeout(wc.Timeout.Duration()))
	}

	if len(wc.Headers) > 0 {
		opts = append(opts, pollboard.WithHeaders(mapToKeyValuePairs(wc.Headers)...))
	}

	name := wc.Name
	if name == "" {
		name = wc.Region
	}
	return pollboard.NewSource(name, wc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
