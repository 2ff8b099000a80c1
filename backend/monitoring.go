// Copyright (c) 2026 the FutebolStats authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const LatencyBuckets = 51
const LatencyBucketSize = 20 * time.Millisecond

// Histogram is a fixed-bucket latency histogram.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	ms := float64(d.Milliseconds())
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += ms
}

// MeanMS returns the mean request duration in milliseconds.
func (h *Histogram) MeanMS() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// Metrics tracks request counts and latencies for the statusz endpoint.
type Metrics struct {
	mu       sync.Mutex
	started  time.Time
	requests uint64
	byPath   map[string]uint64
	latency  Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		started: time.Now(),
		byPath:  make(map[string]uint64),
	}
}

func (m *Metrics) observe(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.byPath[path]++
	m.latency.Add(d)
}

// metricsMiddleware records one observation per API request.
func metricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.observe(r.URL.Path, time.Since(start))
	})
}

// handleStatusz reports uptime, request counts and latency.
func (m *Metrics) handleStatusz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	byPath := make(map[string]uint64, len(m.byPath))
	for k, v := range m.byPath {
		byPath[k] = v
	}
	resp := map[string]any{
		"uptimeSeconds": int(time.Since(m.started).Seconds()),
		"requests":      m.requests,
		"byPath":        byPath,
		"latency": map[string]any{
			"count":  m.latency.Count,
			"meanMs": m.latency.MeanMS(),
		},
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
