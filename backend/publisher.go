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
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// EventsSubject is the NATS subject store events are published on.
const EventsSubject = "futebolstats.events"

// EventPublisher mirrors the live feed onto a NATS broker so external
// consumers (scoreboards, overlays) can follow a match without holding a
// WebSocket to this process. A nil publisher is valid and publishes nothing.
type EventPublisher struct {
	nc *nats.Conn
}

// ConnectPublisher connects to the broker at url.
func ConnectPublisher(url string) (*EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("futebolstats"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}
	return &EventPublisher{nc: nc}, nil
}

// Publish sends one event. Failures are logged and dropped; the broker is an
// observer, never part of the mutation path.
func (p *EventPublisher) Publish(ev StoreEvent) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("EventPublisher: marshal failed: %v", err)
		return
	}
	if err := p.nc.Publish(EventsSubject, data); err != nil {
		log.Printf("EventPublisher: publish failed: %v", err)
	}
}

// Close drains and closes the broker connection.
func (p *EventPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
