package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockDrone tracks the reported status of one drone and when it next flips.
type mockDrone struct {
	id           string
	online       bool
	lastSeen     time.Time
	nextChangeAt time.Time
}

// onlineSpellings exercises the case and whitespace tolerant classification.
var onlineSpellings = []string{"online", "Online", " ONLINE ", "online\n"}

// StartMockFleetServer serves a drone status list and a position list on addr.
// Each drone flips between online and offline every 10-30 seconds.
// Call this in a goroutine before starting the board.
func StartMockFleetServer(addr string) {
	var mu sync.Mutex
	now := time.Now()
	drones := []*mockDrone{
		{id: "D1", online: true},
		{id: "D2", online: false},
		{id: "D3", online: true},
		{id: "D4", online: true},
	}
	for _, d := range drones {
		d.lastSeen = now
		d.nextChangeAt = now.Add(time.Duration(10+rand.Intn(21)) * time.Second)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/drones/status", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		now := time.Now()
		records := make([]map[string]any, len(drones))
		for i, d := range drones {
			if now.After(d.nextChangeAt) {
				d.online = !d.online
				d.nextChangeAt = now.Add(time.Duration(10+rand.Intn(21)) * time.Second)
				slog.Info("status change", "drone", d.id, "online", d.online)
			}
			status := "offline"
			if d.online {
				d.lastSeen = now
				status = onlineSpellings[rand.Intn(len(onlineSpellings))]
			}
			records[i] = map[string]any{
				"drone_id":  d.id,
				"status":    status,
				"last_seen": d.lastSeen.Unix(),
			}
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	})

	mux.HandleFunc("/position", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{
			"alpha " + time.Now().Format("15:04:05"),
			"bravo",
			"charlie",
		})
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
