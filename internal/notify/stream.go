package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type StreamState int

const (
	StreamDisconnected StreamState = iota
	StreamConnecting
	StreamConnected
	StreamReconnecting
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamConnecting:
		return "connecting"
	case StreamConnected:
		return "connected"
	case StreamReconnecting:
		return "reconnecting"
	case StreamFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type StateCallback func(state StreamState)

var errStreamDown = errors.New("stream not connected")

// Stream is a write-only websocket that pushes events and redials on failure.
type Stream struct {
	url string

	conn   *websocket.Conn
	state  StreamState
	stateM sync.RWMutex
	writeM sync.Mutex

	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewStream(url string, maxReconnectAttempts int) *Stream {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Stream{
		url:                  strings.TrimSpace(url),
		state:                StreamDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
	}
}

// SetHeaderProvider allows injecting headers into the handshake.
func (s *Stream) SetHeaderProvider(h HeaderProvider) {
	s.headerProvider = h
}

func (s *Stream) OnStateChange(cb StateCallback) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.stateCbs = append(s.stateCbs, cb)
}

func (s *Stream) State() StreamState {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Stream) Connected() bool { return s != nil && s.State() == StreamConnected }

func (s *Stream) Connect(ctx context.Context) error {
	if st := s.State(); st == StreamConnected || st == StreamConnecting {
		return nil
	}
	s.setState(StreamConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.dial(dialCtx); err != nil {
		s.setState(StreamFailed)
		s.scheduleReconnect()
		return err
	}
	return nil
}

func (s *Stream) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.buildHeaders(),
	})
	if err != nil {
		return err
	}
	// Events only flow out; CloseRead still answers pings and close frames.
	conn.CloseRead(s.rootCtx)

	s.writeM.Lock()
	s.conn = conn
	s.writeM.Unlock()
	s.setState(StreamConnected)

	s.wg.Add(1)
	go s.pingLoop(conn)
	return nil
}

// Send writes v as one JSON message.
func (s *Stream) Send(ctx context.Context, v any) error {
	if !s.Connected() {
		return errStreamDown
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	s.writeM.Lock()
	conn := s.conn
	if conn == nil {
		s.writeM.Unlock()
		return errStreamDown
	}
	err := wsjson.Write(ctx, conn, v)
	s.writeM.Unlock()

	if err != nil && !s.isStopping() {
		s.drop(conn, "write failure")
	}
	return err
}

func (s *Stream) pingLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if !s.isStopping() {
					s.drop(conn, "ping failure")
				}
				return
			}
		}
	}
}

// drop closes conn if it is still current and starts redialing.
func (s *Stream) drop(conn *websocket.Conn, reason string) {
	s.writeM.Lock()
	current := s.conn == conn
	if current {
		s.conn = nil
	}
	s.writeM.Unlock()
	if !current {
		return
	}
	_ = conn.Close(websocket.StatusGoingAway, reason)
	s.setState(StreamDisconnected)
	s.scheduleReconnect()
}

func (s *Stream) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		return
	}
	s.setState(StreamReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(s.rootCtx, 10*time.Second)
			err := s.dial(dialCtx)
			cancel()
			if err == nil {
				return
			}
		}
		s.setState(StreamFailed)
	}()
}

func (s *Stream) setState(state StreamState) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := append([]StateCallback(nil), s.stateCbs...)
	s.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

func (s *Stream) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.writeM.Lock()
	conn := s.conn
	s.conn = nil
	s.writeM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.rootCancel()
		s.setState(StreamDisconnected)
		return nil
	}
}

func (s *Stream) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Stream) buildHeaders() http.Header {
	hdr := http.Header{}
	if s.headerProvider == nil {
		return hdr
	}
	for k, v := range s.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
