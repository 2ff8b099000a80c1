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
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Store event types broadcast over the live feed.
const (
	EventMatchStarted      = "MATCH_STARTED"
	EventMatchEnded        = "MATCH_ENDED"
	EventMatchPaused       = "MATCH_PAUSED"
	EventMatchResumed      = "MATCH_RESUMED"
	EventClockUpdated      = "CLOCK_UPDATED"
	EventPossessionChanged = "POSSESSION_CHANGED"
	EventActionAdded       = "ACTION_ADDED"
	EventActionUpdated     = "ACTION_UPDATED"
	EventActionDeleted     = "ACTION_DELETED"
)

// StoreEvent is one live-feed message. Fields are set depending on Type.
type StoreEvent struct {
	Type       string      `json:"type"`
	Match      *Match      `json:"match,omitempty"`
	Action     *GameAction `json:"action,omitempty"`
	ActionID   string      `json:"actionId,omitempty"`
	Possession string      `json:"possession,omitempty"`
	Seconds    int         `json:"seconds,omitempty"`
}

// FeedHub fans store events out to all connected WebSocket spectators. There
// is a single hub because there is a single store; it owns the client set and
// serializes all sends through its run loop.
type FeedHub struct {
	clients    map[*feedClient]bool
	events     chan StoreEvent
	register   chan *feedClient
	unregister chan *feedClient
	done       chan struct{}
}

// NewFeedHub creates the hub and starts its run loop.
func NewFeedHub() *FeedHub {
	h := &FeedHub{
		clients:    make(map[*feedClient]bool),
		events:     make(chan StoreEvent, 64),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *FeedHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case ev := <-h.events:
			for client := range h.clients {
				select {
				case client.send <- ev:
				default:
					// Slow consumer; drop it rather than stall the feed.
					delete(h.clients, client)
					close(client.send)
				}
			}
		case <-h.done:
			for client := range h.clients {
				close(client.send)
			}
			return
		}
	}
}

// Publish queues an event for broadcast. It never blocks: when the hub is
// saturated the event is dropped and logged, because the store mutation has
// already been persisted and must not stall.
func (h *FeedHub) Publish(ev StoreEvent) {
	select {
	case h.events <- ev:
	default:
		log.Printf("Warning: feed hub channel full, dropping %s event", ev.Type)
	}
}

// Close shuts down the run loop and disconnects all clients.
func (h *FeedHub) Close() {
	close(h.done)
}

// feedClient is a middleman between one websocket connection and the hub.
type feedClient struct {
	hub  *FeedHub
	conn *websocket.Conn
	send chan StoreEvent
}

// readPump drains the connection so pongs and close frames are processed.
// Spectators do not send application messages.
func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("feed client read error: %v", err)
			}
			return
		}
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeFeedWS upgrades an HTTP request to a live-feed connection. New clients
// immediately receive a MATCH_STARTED event when a match is in progress, so
// late joiners see the current state without polling.
func ServeFeedWS(hub *FeedHub, store *MatchStore, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &feedClient{hub: hub, conn: conn, send: make(chan StoreEvent, 32)}
	if m := store.CurrentMatch(); m != nil {
		client.send <- StoreEvent{Type: EventMatchStarted, Match: m}
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
