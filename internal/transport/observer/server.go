// Package observer streams tick summaries to websocket subscribers.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Soulycoris/ts-screep/internal/protocol"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
)

type subscription struct {
	rooms []string
	every uint64
}

type subscriber struct {
	out chan []byte

	mu  sync.Mutex
	sub subscription
}

func (s *subscriber) set(sub subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}

func (s *subscriber) get() subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// Server fans tick summaries out to observers. ObserveTick is called from the
// colony loop and never blocks; a slow subscriber only sees the latest ticks.
type Server struct {
	colonyID    string
	log         *log.Logger
	allowRemote bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.RWMutex
	subs map[string]*subscriber
}

var _ colony.Observer = (*Server)(nil)

func NewServer(colonyID string, allowRemote bool, logger *log.Logger) *Server {
	return &Server{
		colonyID:    colonyID,
		log:         logger,
		allowRemote: allowRemote,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[string]*subscriber{},
	}
}

// Subscribers reports the number of connected observers.
func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Server) ObserveTick(sum colony.Summary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.subs) == 0 {
		return
	}
	msg := protocol.NewTickMsg(s.colonyID, sum)
	for _, c := range s.subs {
		sub := c.get()
		if sub.every > 1 && sum.Tick%sub.every != 0 {
			continue
		}
		b, err := json.Marshal(msg.ForRooms(sub.rooms))
		if err != nil {
			if s.log != nil {
				s.log.Printf("observer marshal: %v", err)
			}
			return
		}
		sendLatest(c.out, b)
	}
}

func (s *Server) join(c *subscriber) string {
	id := fmt.Sprintf("O%d", s.nextID.Add(1))
	s.mu.Lock()
	s.subs[id] = c
	s.mu.Unlock()
	return id
}

func (s *Server) leave(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, err := decodeSubscribe(raw)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		c := &subscriber{out: make(chan []byte, 8), sub: sub}
		id := s.join(c)
		defer s.leave(id)
		if s.log != nil {
			s.log.Printf("observer %s joined from %s", id, r.RemoteAddr)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, err := decodeSubscribe(raw); err == nil {
				c.set(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(raw []byte) (subscription, error) {
	m, err := protocol.DecodeSubscribe(raw)
	if err != nil {
		return subscription{}, err
	}
	if m.ProtocolVersion != protocol.Version {
		return subscription{}, fmt.Errorf("protocol version %q", m.ProtocolVersion)
	}
	every := uint64(1)
	if m.EveryTicks > 1 {
		every = uint64(m.EveryTicks)
	}
	return subscription{rooms: m.Rooms, every: every}, nil
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
