// Package server bridges a phone (or any websocket client) to a
// Controller: clients stream gravity samples in and receive ball positions
// back.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

const (
	readLimit    = 1 << 16
	pongWait     = 60 * time.Second
	pingPeriod   = 25 * time.Second
	writeWait    = 10 * time.Second
	sendBuffered = 16
)

var upgrader = websocket.Upgrader{
	// Phones load the page from wherever it is hosted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the websocket endpoint and a health check.
type Server struct {
	hub  *Hub
	log  *log.Logger
	addr string
	wg   sync.WaitGroup
}

func New(addr string, ctrl *sim.Controller, adapter sensor.GravityAdapter, broadcastHz int, logger *log.Logger) *Server {
	return &Server{
		hub:  NewHub(ctrl, adapter, broadcastHz, logger),
		log:  logger,
		addr: addr,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { s.serveWS(ctx, w, r) })
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// ListenAndServe runs the hub and the HTTP server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(ctx)}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(hubCtx)
	}()

	errc := make(chan error, 1)
	go func() {
		s.log.Printf("listening on %s (ws endpoint: /ws)", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		stopHub()
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	stopHub()
	s.wg.Wait()
	return err
}

func (s *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("upgrade:", err)
		return
	}

	c := newWSConn(ws)
	go c.writeLoop()

	id, err := s.hub.Join(ctx, c)
	if err != nil {
		_ = c.Close()
		return
	}
	defer s.hub.Leave(id)

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("client %d read: %v", id, err)
			}
			return
		}
		m, err := Decode(b)
		if err != nil {
			if eb, encErr := encodeError(err); encErr == nil {
				_ = c.Send(eb)
			}
			continue
		}
		s.hub.Receive(id, m)
	}
}

// wsConn queues outbound frames for a single writer goroutine. A client that
// falls behind loses frames rather than stalling the hub.
type wsConn struct {
	ws   *websocket.Conn
	out  chan []byte
	once sync.Once
	quit chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, out: make(chan []byte, sendBuffered), quit: make(chan struct{})}
}

func (c *wsConn) Send(b []byte) error {
	select {
	case <-c.quit:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.out <- b:
	default:
		// Full: drop the oldest frame so the newest position gets through.
		select {
		case <-c.out:
		default:
		}
		select {
		case c.out <- b:
		default:
		}
	}
	return nil
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.quit) })
	return nil
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.quit:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
