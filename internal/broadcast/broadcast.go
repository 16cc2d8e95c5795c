// Package broadcast is the observer/snapshot-fanout plane of spec.md §4.7.
//
// Subscriber adapts the teacher's server/fastview/client.go almost
// exactly: the same ping/pong liveness loop, the same write-serializing
// websock wrapper, and the same errgroup-driven read/ping/publish trio —
// generalized from a single training-view client to one of many snapshot
// subscribers registered against a Hub keyed by simulation id.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait     = 1 * time.Second
	pubResolution = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
	readDeadline   = time.Second
	writeDeadline  = time.Second
	closeGracePeriod = 2 * time.Second
	// DefaultBacklog is the number of snapshots buffered per subscriber.
	// When a subscriber's buffer is full, Publish discards its oldest
	// queued snapshot; the subscriber itself stays registered.
	DefaultBacklog = 8
)

// Snapshot is the published, internally-consistent copy of state defined
// in spec.md §4.7. Built by internal/orchestrator; broadcast only knows
// it's a JSON-able value.
type Snapshot = interface{}

// Hub holds the live subscribers for one simulation id and fans published
// snapshots out to all of them, copy-on-publish (no subscriber ever
// mutates shared state — §9).
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	closed      bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscriber]struct{})}
}

// Register adds a subscriber and returns an unregister func.
func (h *Hub) Register(sub *Subscriber) (unregister func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, sub)
	}
}

// Publish fans snap out to every live subscriber. Slow subscribers (whose
// buffered channel is full) have their oldest queued snapshot dropped to
// make room — the default drop-oldest backpressure policy of spec.md §5.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		sub.deliver(snap)
	}
}

// Close shuts down every subscriber's channel (simulation reached a
// terminal state, spec.md §4.6 step 8 / §5 cancellation).
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		close(sub.updates)
	}
	h.subscribers = make(map[*Subscriber]struct{})
}

// Subscriber publishes snapshots to one websocket client. Construct via
// NewSubscriber, then call Run to drive it until disconnect or Hub close.
type Subscriber struct {
	updates chan Snapshot
	ws      *websock
	rootCtx context.Context

	mu      sync.Mutex
	backlog int
}

// NewSubscriber upgrades an already-validated HTTP request to a websocket
// (the caller does the upgrade; see internal/httpapi) and returns a
// Subscriber ready to Run.
func NewSubscriber(ctx context.Context, conn *websocket.Conn, backlog int) *Subscriber {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Subscriber{
		updates: make(chan Snapshot, backlog),
		ws:      newWebSocket(conn),
		rootCtx: ctx,
		backlog: backlog,
	}
}

// deliver enqueues snap for this subscriber, dropping the oldest queued
// snapshot first if the channel is already full.
func (s *Subscriber) deliver(snap Snapshot) {
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

// Run drives the read pump (for ping/pong control frames and disconnect
// detection), the ping pump (liveness), and the publish pump (writes
// snapshots as JSON), returning when the client disconnects, the Hub
// closes this subscriber's channel, or ctx is cancelled.
func (s *Subscriber) Run() error {
	group, groupCtx := errgroup.WithContext(s.rootCtx)

	group.Go(func() error {
		return s.readMessages(groupCtx)
	})
	group.Go(func() error {
		return s.pingPong(groupCtx)
	})
	group.Go(func() error {
		err := s.publish(groupCtx)
		// publish returns when the Hub closes updates, ctx ends, or a write
		// fails; expiring the read deadline unblocks the read pump so Run
		// returns as well.
		_ = s.ws.Conn().SetReadDeadline(time.Now())
		return err
	})

	err := group.Wait()
	s.ws.Close()
	return err
}

var errPongDeadlineExceeded = errors.New("broadcast: pong deadline exceeded")

func (s *Subscriber) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	s.ws.Conn().SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return errPongDeadlineExceeded
			}
			if err := s.ping(); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (s *Subscriber) ping() error {
	return s.ws.Write(func(ws *websocket.Conn) error {
		return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	})
}

// readMessages only exists so the websocket library's control-frame
// handlers (pong) fire; this app never reads client payloads.
func (s *Subscriber) readMessages(ctx context.Context) error {
	for {
		err := s.ws.Read(func(ws *websocket.Conn) error {
			_, _, readErr := ws.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (s *Subscriber) publish(ctx context.Context) error {
	var lastSync time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-s.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()
			err := s.ws.Write(func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return err
				}
				return ws.WriteJSON(snap)
			})
			if err != nil {
				return err
			}
		}
	}
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// websock serializes reads and writes to the underlying connection, since
// gorilla/websocket permits at most one concurrent reader and one
// concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

func (s *websock) Conn() *websocket.Conn {
	return s.ws
}

var errSockCongestion = errors.New("broadcast: socket operation congested")

func (s *websock) Read(readFn func(*websocket.Conn) error) error {
	select {
	case s.readSem <- struct{}{}:
		defer func() { <-s.readSem }()
		err := readFn(s.ws)
		if err != nil && isUnexpectedClose(err) {
			return fmt.Errorf("read: %w", err)
		}
		return err
	case <-time.After(readDeadline):
		return errSockCongestion
	}
}

func (s *websock) Write(writeFn func(*websocket.Conn) error) error {
	select {
	case s.writeSem <- struct{}{}:
		defer func() { <-s.writeSem }()
		return writeFn(s.ws)
	case <-time.After(writeDeadline):
		return errSockCongestion
	}
}

func (s *websock) Close() {
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	_ = s.ws.Close()
}
