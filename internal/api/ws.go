package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/events"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEligibilityWS upgrades to a WebSocket and pushes a fresh
// eligibility payload for the requested claimant: once immediately on
// connect, then again every time the event bus reports a new_claim or
// claim_locked event for this claimant. The bus itself scopes delivery to
// this claimant's subject, so every wakeup here is one this connection
// actually needs to act on; clawback events carry no subject, so this
// subscription does not receive them.
func (s *Server) handleEligibilityWS(w http.ResponseWriter, r *http.Request) {
	claimant, err := chain.ParseAddress(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var sub chan *events.CloudEvent
	if s.bus != nil {
		sub = s.bus.SubscribeSubject(claimant.String(), events.TypeNewClaim, events.TypeClaimed, events.TypeClawback)
		defer s.bus.Unsubscribe(sub)
	}

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// The client never sends anything meaningful on this connection; the
	// read loop exists only to surface close frames and keep pong
	// deadlines moving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !s.pushEligibility(conn, claimant) {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case _, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			if !s.pushEligibility(conn, claimant) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) pushEligibility(conn *websocket.Conn, claimant chain.Address) bool {
	payload, found := s.computeEligibility(claimant)
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if !found {
		return conn.WriteJSON(map[string]string{"error": "claimant not found in any shard"}) == nil
	}
	return conn.WriteJSON(payload) == nil
}
