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
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/gorilla/websocket"
)

func TestLiveFeed(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ws_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	opts := &Options{
		Storage:     storage.New(tempDir, nil),
		DataDir:     tempDir,
		UseMockAuth: true,
	}
	handler, _ := NewServerHandler(opts)
	store := opts.Store

	server := httptest.NewServer(handler)
	defer server.Close()

	userId := "wsuser@example.com"
	post := func(t *testing.T, path, body string) {
		t.Helper()
		req, _ := http.NewRequest("POST", server.URL+path, strings.NewReader(body))
		req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: userId})
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Fatalf("POST %s returned %d", path, resp.StatusCode)
		}
	}

	wsURL := func() string {
		u, _ := url.Parse(server.URL)
		u.Scheme = "ws"
		u.Path = "/api/ws"
		return u.String()
	}()

	teamA := store.AddTeam(Team{Name: "Ceará"})
	teamB := store.AddTeam(Team{Name: "Sport"})

	readEvent := func(t *testing.T, conn *websocket.Conn) StoreEvent {
		t.Helper()
		var ev StoreEvent
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Failed to read event: %v", err)
		}
		return ev
	}

	t.Run("LateJoinerGetsMatchSnapshot", func(t *testing.T) {
		post(t, "/api/start-match", fmt.Sprintf(`{"teamAId":"%s","teamBId":"%s"}`, teamA.ID, teamB.ID))

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		ev := readEvent(t, conn)
		if ev.Type != EventMatchStarted {
			t.Fatalf("Expected MATCH_STARTED, got %s", ev.Type)
		}
		if ev.Match == nil || ev.Match.TeamA.Name != "Ceará" {
			t.Errorf("Snapshot payload wrong: %+v", ev.Match)
		}
	})

	t.Run("ActionBroadcast", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		// Skip the snapshot sent on connect.
		if ev := readEvent(t, conn); ev.Type != EventMatchStarted {
			t.Fatalf("Expected MATCH_STARTED, got %s", ev.Type)
		}

		post(t, "/api/add-action", fmt.Sprintf(`{"teamId":"%s","actionName":"Escanteio","zone":"direita"}`, teamA.ID))

		ev := readEvent(t, conn)
		if ev.Type != EventActionAdded {
			t.Fatalf("Expected ACTION_ADDED, got %s", ev.Type)
		}
		if ev.Action == nil || ev.Action.ActionName != "Escanteio" {
			t.Errorf("Action payload wrong: %+v", ev.Action)
		}

		post(t, "/api/end-match", "")
		if ev := readEvent(t, conn); ev.Type != EventMatchEnded {
			t.Errorf("Expected MATCH_ENDED, got %s", ev.Type)
		}
	})
}

func TestFeedHubDropsSlowPublishWhenSaturated(t *testing.T) {
	h := &FeedHub{
		clients:    make(map[*feedClient]bool),
		events:     make(chan StoreEvent, 1),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
	// No run loop: the channel fills and Publish must not block.
	h.Publish(StoreEvent{Type: EventClockUpdated})

	done := make(chan struct{})
	go func() {
		h.Publish(StoreEvent{Type: EventClockUpdated})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a saturated hub")
	}
}
