package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/obslog"
)

const (
	handshakeTimeout = 4 * time.Second
	readyAttempts    = 3
	readyRetryDelay  = 150 * time.Millisecond
)

// ErrEngineExited is returned once the engine's stdout has closed.
var ErrEngineExited = errors.New("uci: engine exited")

// Session is one running engine process. Searches are serialized.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines is fed by a single reader goroutine and closed when stdout ends.
	lines   chan string
	readErr error
	done    chan struct{}

	writeMu  sync.Mutex
	searchMu sync.Mutex
	closeOne sync.Once
	closeErr error
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Candidates []Candidate
	// BestMove is empty when the engine answered "bestmove (none)".
	BestMove string
}

// NewSession starts the engine at binaryPath, performs the uci handshake and
// applies opt. The process outlives ctx; call Close to stop it.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{cmd: cmd, stdin: stdin, lines: make(chan string, 64), done: make(chan struct{})}
	go s.pump(stdout)
	go logStderr(binaryPath, stderr)

	if err := s.handshake(ctx, opt); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) pump(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			close(s.lines)
			return
		}
	}
	s.readErr = sc.Err()
	close(s.lines)
}

func logStderr(binary string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		obslog.L().Debug("engine stderr", zap.String("binary", binary), zap.String("line", sc.Text()))
	}
}

func (s *Session) handshake(ctx context.Context, opt Options) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := s.send("uci"); err != nil {
		return err
	}
	if err := s.waitFor(ctx, "uciok"); err != nil {
		return err
	}
	if err := s.send(optionCommands(opt)...); err != nil {
		return err
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	return s.waitFor(ctx, "readyok")
}

// Search runs one "go" and collects the last line reported per multipv slot.
// A position without legal moves yields a single move-less candidate holding
// the engine's terminal score.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	tokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}

	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	position := buildPositionCommand(req.FEN, req.Moves)
	goCmd := strings.Join(tokens, " ")
	if err := s.send(strings.TrimSuffix(position, "\n"), goCmd); err != nil {
		return SearchResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	slots := make(map[int]Candidate)
	var terminal *Score
	for {
		line, err := s.next(ctx)
		if err != nil {
			obslog.L().Warn("uci search aborted",
				zap.String("fen", req.FEN),
				zap.String("go", goCmd),
				zap.Error(err))
			return SearchResponse{}, err
		}

		if rest, ok := strings.CutPrefix(line, "bestmove"); ok {
			resp := SearchResponse{Candidates: collapseCandidates(slots)}
			if f := strings.Fields(rest); len(f) > 0 && f[0] != "(none)" {
				resp.BestMove = f[0]
			}
			if len(resp.Candidates) == 0 && terminal != nil {
				resp.Candidates = []Candidate{{Score: *terminal}}
			}
			return resp, nil
		}
		if !strings.HasPrefix(line, "info ") {
			continue
		}
		if slot, c, ok := parseInfo(line); ok {
			slots[slot] = c
		} else if sc, ok := parseTerminalInfo(line); ok {
			terminal = &sc
		}
	}
}

// EnsureReady round-trips isready to confirm the engine is responsive.
func (s *Session) EnsureReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := s.send("isready"); err != nil {
		return err
	}
	return s.waitFor(ctx, "readyok")
}

// NewGame clears the engine's hash so earlier searches do not leak into the
// next one.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame"); err != nil {
		return err
	}
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = s.EnsureReady(ctx); err == nil {
			return nil
		}
		if errors.Is(err, ErrEngineExited) || attempt == readyAttempts {
			break
		}
		obslog.L().Debug("uci not ready after ucinewgame", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyRetryDelay):
		}
	}
	return err
}

// Close asks the engine to quit, then kills it. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOne.Do(func() {
		close(s.done)
		_ = s.send("quit")
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			err = nil
		}
		s.closeErr = err
	})
	return s.closeErr
}

func (s *Session) send(cmds ...string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, c := range cmds {
		if _, err := io.WriteString(s.stdin, c+"\n"); err != nil {
			return fmt.Errorf("%w: write %q: %v", ErrEngineExited, c, err)
		}
	}
	return nil
}

func (s *Session) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", fmt.Errorf("%w: %v", ErrEngineExited, s.readErr)
			}
			return "", ErrEngineExited
		}
		return line, nil
	}
}

func (s *Session) waitFor(ctx context.Context, token string) error {
	for {
		line, err := s.next(ctx)
		if err != nil {
			return fmt.Errorf("wait %s: %w", token, err)
		}
		if line == token {
			return nil
		}
	}
}
