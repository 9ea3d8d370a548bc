// Standalone mock fleet server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/pollboard serve -c example/config.yaml
//	go run ./cmd/pollboard watch --url http://localhost:9999/drones/status
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock fleet server starting on :9999")
	fmt.Println("  GET /drones/status  drones flip online/offline every 10-30s")
	fmt.Println("  GET /position       plain string list")
	fmt.Println("  GET /broken         always 503")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu       sync.Mutex
		online   = map[string]bool{"D1": true, "D2": false, "D3": true}
		lastSeen = make(map[string]time.Time)
		flipAt   = time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)
		order    = []string{"D1", "D2", "D3"}
	)

	http.HandleFunc("/drones/status", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		now := time.Now()
		if now.After(flipAt) {
			id := order[rand.Intn(len(order))]
			online[id] = !online[id]
			flipAt = now.Add(time.Duration(10+rand.Intn(21)) * time.Second)
			slog.Info("status change", "drone", id, "online", online[id])
		}
		records := make([]map[string]any, 0, len(order))
		for _, id := range order {
			status := " Offline"
			if online[id] {
				lastSeen[id] = now
				status = "ONLINE "
			}
			rec := map[string]any{"drone_id": id, "status": status}
			if t, ok := lastSeen[id]; ok {
				rec["last_seen"] = t.UTC().Format(http.TimeFormat)
			}
			records = append(records, rec)
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	})

	http.HandleFunc("/position", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]any{"alpha", "bravo", 42, true, nil})
	})

	http.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
