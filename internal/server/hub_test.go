package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sensor"
	"github.com/san-kum/tiltball/internal/sim"
)

type fakeConn struct {
	mu     sync.Mutex
	sendCh chan []byte
	closed bool
	fail   bool
}

func newFakeConn() *fakeConn { return &fakeConn{sendCh: make(chan []byte, 64)} }

func (f *fakeConn) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sendCh <- cp
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// pending returns every message sent so far without blocking.
func (f *fakeConn) pending() [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-f.sendCh:
			out = append(out, b)
		default:
			return out
		}
	}
}

var (
	square  = dynamo.Field{Width: 100, Height: 100, BallSize: 10}
	adapter = sensor.GravityAdapter{Scale: 100, InvertX: true}
	quiet   = log.New(io.Discard, "", 0)
)

func newTestHub(opts sim.Options) (*Hub, *sim.Controller) {
	ctrl := sim.NewController(opts)
	return NewHub(ctrl, adapter, 100, quiet), ctrl
}

func decodeKind(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func TestHubLatestPositionWins(t *testing.T) {
	h, ctrl := newTestHub(sim.Options{})
	cancel := ctrl.Subscribe(dynamo.ObserverFunc(h.observe))
	defer cancel()

	fc := newFakeConn()
	reply := make(chan int, 1)
	h.handle(join{conn: fc, reply: reply})
	id := <-reply
	if len(fc.pending()) != 0 {
		t.Fatal("nothing to report before init")
	}

	h.handle(inbound{id: id, msg: Inbound{Type: MsgInit, Width: 100, Height: 100, Size: 10}})
	for i, gx := range []float64{-0.5, -0.5, -0.5} {
		h.handle(inbound{id: id, msg: Inbound{Type: MsgSample, T: int64(i) * dynamo.NanosPerSecond, GX: gx}})
	}
	h.flush()

	msgs := fc.pending()
	if len(msgs) != 1 {
		t.Fatalf("expected one coalesced broadcast, got %d", len(msgs))
	}
	var p Position
	if err := json.Unmarshal(msgs[0], &p); err != nil {
		t.Fatal(err)
	}
	if p.Type != MsgPosition || p.X != 70 || p.Y != 45 {
		t.Errorf("expected position (70, 45), got %+v", p)
	}

	h.flush()
	if len(fc.pending()) != 0 {
		t.Error("expected no broadcast without a change")
	}
}

func TestHubJoinSendsCurrentPosition(t *testing.T) {
	h, ctrl := newTestHub(sim.Options{})
	if err := ctrl.Initialize(square); err != nil {
		t.Fatal(err)
	}
	h = NewHub(ctrl, adapter, 100, quiet)

	fc := newFakeConn()
	reply := make(chan int, 1)
	h.handle(join{conn: fc, reply: reply})
	<-reply

	msgs := fc.pending()
	if len(msgs) != 1 {
		t.Fatalf("expected a welcome position, got %d messages", len(msgs))
	}
	m := decodeKind(t, msgs[0])
	if m["type"] != MsgPosition || m["x"] != 45.0 || m["y"] != 45.0 {
		t.Errorf("unexpected welcome %v", m)
	}
}

func TestHubRejectsToSender(t *testing.T) {
	h, _ := newTestHub(sim.Options{Strict: true, Reinit: sim.ReinitReject})

	a, b := newFakeConn(), newFakeConn()
	reply := make(chan int, 2)
	h.handle(join{conn: a, reply: reply})
	idA := <-reply
	h.handle(join{conn: b, reply: reply})
	<-reply

	h.handle(inbound{id: idA, msg: Inbound{Type: MsgSample, T: 1, GX: 1}})
	msgs := a.pending()
	if len(msgs) != 1 {
		t.Fatalf("expected an error reply, got %d", len(msgs))
	}
	if m := decodeKind(t, msgs[0]); m["type"] != MsgError {
		t.Errorf("expected error message, got %v", m)
	}
	if len(b.pending()) != 0 {
		t.Error("errors must only reach the sender")
	}

	h.handle(inbound{id: idA, msg: Inbound{Type: MsgInit, Width: 100, Height: 100, Size: 10}})
	h.handle(inbound{id: idA, msg: Inbound{Type: MsgInit, Width: 200, Height: 100, Size: 10}})
	if msgs := a.pending(); len(msgs) != 1 || decodeKind(t, msgs[0])["type"] != MsgError {
		t.Errorf("expected conflicting init to be rejected, got %d messages", len(msgs))
	}
}

func TestHubDropsFailedClients(t *testing.T) {
	h, ctrl := newTestHub(sim.Options{})
	cancel := ctrl.Subscribe(dynamo.ObserverFunc(h.observe))
	defer cancel()

	good, bad := newFakeConn(), newFakeConn()
	reply := make(chan int, 2)
	h.handle(join{conn: good, reply: reply})
	<-reply
	h.handle(join{conn: bad, reply: reply})
	<-reply
	bad.fail = true

	if err := ctrl.Initialize(square); err != nil {
		t.Fatal(err)
	}
	h.flush()

	if !bad.isClosed() || len(h.clients) != 1 {
		t.Errorf("expected failed client dropped, clients=%d", len(h.clients))
	}
	if len(good.pending()) != 1 {
		t.Error("expected healthy client to get the broadcast")
	}
}

func TestHubSampleWithoutTimestamp(t *testing.T) {
	h, ctrl := newTestHub(sim.Options{})
	if err := ctrl.Initialize(square); err != nil {
		t.Fatal(err)
	}
	clock := time.Unix(0, 0)
	h.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		h.handle(inbound{msg: Inbound{Type: MsgSample, GY: 0.5}})
		clock = clock.Add(time.Second)
	}

	p, _ := ctrl.Position()
	if p.Y != 70 {
		t.Errorf("expected server clock to drive dt, got y=%g", p.Y)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	h, _ := newTestHub(sim.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	fc := newFakeConn()
	if _, err := h.Join(ctx, fc); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if !fc.isClosed() {
		t.Error("expected clients closed on shutdown")
	}

	// Calls after shutdown must not block.
	h.Leave(1)
	h.Receive(1, Inbound{Type: MsgReset})
	if _, err := h.Join(context.Background(), newFakeConn()); err == nil {
		t.Error("expected join on a stopped hub to fail")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"sample", `{"type":"sample","t":5,"gx":1.5,"gy":-2}`, false},
		{"init", `{"type":"init","width":1080,"height":1920,"size":100}`, false},
		{"reset", `{"type":"reset"}`, false},
		{"empty", ``, true},
		{"garbage", `{"type":`, true},
		{"unknown", `{"type":"spin"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}

	m, _ := Decode([]byte(`{"type":"init","width":1080,"height":1920,"size":100}`))
	if m.Field() != (dynamo.Field{Width: 1080, Height: 1920, BallSize: 100}) {
		t.Errorf("unexpected field %+v", m.Field())
	}
}
