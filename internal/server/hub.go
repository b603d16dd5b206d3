package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

var errHubClosed = errors.New("hub closed")

// Conn is the hub's view of a client connection.
type Conn interface {
	Send(b []byte) error
	Close() error
}

type join struct {
	conn  Conn
	reply chan int
}

type leave struct{ id int }

type inbound struct {
	id  int
	msg Inbound
}

// Hub owns one Controller. Every controller call happens on the hub's Run
// goroutine, so its observer needs no locking.
type Hub struct {
	inbox    chan any
	done     chan struct{}
	ctrl     *sim.Controller
	adapter  sensor.GravityAdapter
	interval time.Duration
	log      *log.Logger
	now      func() time.Time

	clients map[int]Conn
	nextID  int

	latest dynamo.Update
	dirty  bool
	hasPos bool
}

func NewHub(ctrl *sim.Controller, adapter sensor.GravityAdapter, broadcastHz int, logger *log.Logger) *Hub {
	if broadcastHz <= 0 {
		broadcastHz = 30
	}
	h := &Hub{
		inbox:    make(chan any, 256),
		done:     make(chan struct{}),
		ctrl:     ctrl,
		adapter:  adapter,
		interval: time.Second / time.Duration(broadcastHz),
		log:      logger,
		now:      time.Now,
		clients:  make(map[int]Conn),
		nextID:   1,
	}
	if snap, ok := ctrl.Snapshot(); ok {
		h.latest = dynamo.Update{Cause: dynamo.CauseInit, Position: snap.Position, Velocity: snap.Velocity}
		h.hasPos = true
	}
	return h
}

// Join registers c and returns its id. It blocks until Run accepts it.
func (h *Hub) Join(ctx context.Context, c Conn) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.inbox <- join{conn: c, reply: reply}:
	case <-h.done:
		return 0, errHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case id := <-reply:
		return id, nil
	case <-h.done:
		return 0, errHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Leave(id int) { h.send(leave{id: id}) }

func (h *Hub) Receive(id int, m Inbound) { h.send(inbound{id: id, msg: m}) }

func (h *Hub) send(cmd any) {
	select {
	case h.inbox <- cmd:
	case <-h.done:
	}
}

// Run processes client messages and broadcasts the latest position at most
// once per interval, and only when it changed.
func (h *Hub) Run(ctx context.Context) {
	cancel := h.ctrl.Subscribe(dynamo.ObserverFunc(h.observe))
	defer cancel()
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				_ = c.Close()
				delete(h.clients, id)
			}
			return
		case cmd := <-h.inbox:
			h.handle(cmd)
		case <-ticker.C:
			h.flush()
		}
	}
}

func (h *Hub) observe(u dynamo.Update) {
	h.latest, h.dirty, h.hasPos = u, true, true
}

// flush broadcasts the latest position if it changed since the last one.
func (h *Hub) flush() {
	if h.dirty {
		h.broadcast()
	}
}

func (h *Hub) handle(cmd any) {
	switch c := cmd.(type) {
	case join:
		id := h.nextID
		h.nextID++
		h.clients[id] = c.conn
		h.log.Printf("client %d joined (%d connected)", id, len(h.clients))
		if h.hasPos {
			h.sendTo(id, c.conn, h.latest)
		}
		c.reply <- id
	case leave:
		if conn, ok := h.clients[c.id]; ok {
			_ = conn.Close()
			delete(h.clients, c.id)
			h.log.Printf("client %d left (%d connected)", c.id, len(h.clients))
		}
	case inbound:
		if err := h.apply(c.msg); err != nil {
			h.reject(c.id, err)
		}
	}
}

func (h *Hub) apply(m Inbound) error {
	switch m.Type {
	case MsgInit:
		return h.ctrl.Initialize(m.Field())
	case MsgReset:
		h.ctrl.Reset()
		return nil
	case MsgSample:
		t := m.T
		if t == 0 {
			t = h.now().UnixNano()
		}
		return h.ctrl.OnSample(h.adapter.Sample(sensor.Reading{Time: t, GX: m.GX, GY: m.GY}))
	}
	return nil
}

func (h *Hub) reject(id int, err error) {
	conn, ok := h.clients[id]
	if !ok {
		return
	}
	b, encErr := encodeError(err)
	if encErr != nil {
		return
	}
	if err := conn.Send(b); err != nil {
		h.drop(id)
	}
}

func (h *Hub) broadcast() {
	b, err := encodePosition(h.latest)
	if err != nil {
		h.log.Printf("encode position: %v", err)
		return
	}
	h.dirty = false

	var failed []int
	for id, c := range h.clients {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.drop(id)
	}
}

func (h *Hub) sendTo(id int, c Conn, u dynamo.Update) {
	b, err := encodePosition(u)
	if err != nil {
		return
	}
	if err := c.Send(b); err != nil {
		h.drop(id)
	}
}

func (h *Hub) drop(id int) {
	if c, ok := h.clients[id]; ok {
		_ = c.Close()
		delete(h.clients, id)
		h.log.Printf("client %d dropped", id)
	}
}
