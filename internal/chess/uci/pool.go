package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/obslog"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("uci: pool closed")

// PoolConfig configures a Pool. Capacity bounds the number of live engine
// processes; zero picks a CPU-based default.
type PoolConfig struct {
	BinaryPath string
	Capacity   int
	Options    Options
}

// Pool keeps up to Capacity warm engine processes sharing one Options value.
// A session is owned by exactly one caller between Acquire and Release.
type Pool struct {
	binaryPath string
	opt        Options

	slots chan struct{}
	idle  chan *Session

	mu     sync.Mutex
	closed bool
}

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Capacity int
	Live     int
	Idle     int
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	if err := validateOptions(cfg.Options); err != nil {
		return nil, err
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		opt:        cfg.Options,
		slots:      make(chan struct{}, capacity),
		idle:       make(chan *Session, capacity),
	}, nil
}

// Acquire returns an idle session, starts a new one while under capacity,
// or waits for a Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		select {
		case s := <-p.idle:
			if s = p.ready(ctx, s); s != nil {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-p.idle:
			if s = p.ready(ctx, s); s != nil {
				return s, nil
			}
		case p.slots <- struct{}{}:
			s, err := NewSession(ctx, p.binaryPath, p.opt)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ready checks an idle session and drops it when it no longer answers.
func (p *Pool) ready(ctx context.Context, s *Session) *Session {
	if err := s.EnsureReady(ctx); err != nil {
		obslog.L().Warn("uci idle session not ready; discarding", zap.Error(err))
		p.drop(s)
		return nil
	}
	return s
}

// Release hands s back. A non-nil err means the session may be in an
// unknown protocol state, so it is closed instead of reused.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	if err != nil {
		obslog.L().Debug("uci session released with error; discarding", zap.Error(err))
		p.drop(s)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.dropLocked(s)
		return
	}
	select {
	case p.idle <- s:
	default:
		p.dropLocked(s)
	}
}

func (p *Pool) drop(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(s)
}

func (p *Pool) dropLocked(s *Session) {
	_ = s.Close()
	select {
	case <-p.slots:
	default:
	}
}

func (p *Pool) Stats() PoolStats {
	return PoolStats{Capacity: cap(p.slots), Live: len(p.slots), Idle: len(p.idle)}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close stops idle sessions. Sessions still checked out are closed when
// they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

func defaultCapacity() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
