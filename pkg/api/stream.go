/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/devmon/pkg/models"
)

// Stream message types.
const (
	MessageReachability = "reachability"
	MessageMode         = "mode"
)

// StreamMessage is one frame on the events WebSocket.
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

var errStreamClosed = errors.New("event stream closed")

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	reach := s.source.SubscribeReachability()
	defer reach.Unsubscribe()

	mode := s.source.SubscribeMode()
	defer mode.Unsubscribe()

	go s.readClient(conn, cancel)

	s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Event stream opened")

	err = s.streamEvents(ctx, conn, reach.C, mode.C)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
	default:
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Event stream ended")
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, reach <-chan models.ReachabilityChange, mode <-chan models.ModeChange) error {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		var msg StreamMessage

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}

			continue
		case change, ok := <-reach:
			if !ok {
				return errStreamClosed
			}

			msg = StreamMessage{Type: MessageReachability, Data: change, Timestamp: change.Timestamp}
		case change, ok := <-mode:
			if !ok {
				return errStreamClosed
			}

			msg = StreamMessage{Type: MessageMode, Data: change, Timestamp: change.Timestamp}
		}

		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}

		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to send %s message: %w", msg.Type, err)
		}
	}
}

// readClient drains client frames so pongs are processed and a disconnect
// cancels the stream.
func (s *Server) readClient(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	extend := func() error { return conn.SetReadDeadline(time.Now().Add(s.pingInterval + wsReadWait)) }

	conn.SetPongHandler(func(string) error { return extend() })

	for {
		if err := extend(); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}

			return
		}
	}
}
