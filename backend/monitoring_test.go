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
	"net/http/httptest"
	"testing"
	"time"
)

func TestHistogram(t *testing.T) {
	var h Histogram
	h.Add(5 * time.Millisecond)
	h.Add(25 * time.Millisecond)
	h.Add(10 * time.Second) // beyond the last bucket

	if h.Count != 3 {
		t.Errorf("Count = %d, want 3", h.Count)
	}
	if h.Buckets[0] != 1 || h.Buckets[1] != 1 || h.Buckets[LatencyBuckets-1] != 1 {
		t.Errorf("Bucket distribution wrong: %v", h.Buckets)
	}
	if got := h.MeanMS(); got < 3343 || got > 3344 {
		t.Errorf("MeanMS = %v", got)
	}

	var empty Histogram
	if empty.MeanMS() != 0 {
		t.Errorf("Empty MeanMS = %v, want 0", empty.MeanMS())
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	handler := metricsMiddleware(m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/state", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	req := httptest.NewRequest("GET", "/api/match", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	m.handleStatusz(w, httptest.NewRequest("GET", "/api/statusz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("statusz: %d", w.Code)
	}

	var resp struct {
		Requests uint64            `json:"requests"`
		ByPath   map[string]uint64 `json:"byPath"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad statusz body: %v", err)
	}
	if resp.Requests != 4 {
		t.Errorf("requests = %d, want 4", resp.Requests)
	}
	if resp.ByPath["/api/state"] != 3 || resp.ByPath["/api/match"] != 1 {
		t.Errorf("byPath = %v", resp.ByPath)
	}

	w = httptest.NewRecorder()
	m.handleStatusz(w, httptest.NewRequest("POST", "/api/statusz", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}
