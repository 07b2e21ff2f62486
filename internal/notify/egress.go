// Package notify publishes review events to a webhook and a websocket stream.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Event is the message published for review progress and completion.
type Event struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	ID    string `json:"id,omitempty"`
	Ply   int    `json:"ply,omitempty"`
	Total int    `json:"total,omitempty"`
	SAN   string `json:"san,omitempty"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

const (
	EventProgress = "progress"
	EventDone     = "done"
)

// Egress delivers events over one transport.
type Egress interface {
	Publish(ctx context.Context, ev Event) error
}

type Mode string

const (
	ModeOff  Mode = "off"
	ModeHTTP Mode = "http"
	ModeWS   Mode = "ws"
	ModeAuto Mode = "auto"
)

// ParseMode accepts off, http, ws and auto; "" means off.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeOff, nil
	case ModeOff, ModeHTTP, ModeWS, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown notify mode %q", s)
	}
}

// NewEgress creates an Egress for mode. In auto mode the stream is preferred
// while connected; only completion events fall back to the webhook.
func NewEgress(mode Mode, c *Client, s *Stream, logger *zap.Logger) (Egress, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeOff, "":
		return nopEgress{}, nil
	case ModeHTTP:
		if c == nil {
			return nil, errors.New("http notify mode needs a webhook url")
		}
		return &httpEgress{c: c}, nil
	case ModeWS:
		if s == nil {
			return nil, errors.New("ws notify mode needs a stream url")
		}
		return &wsEgress{s: s}, nil
	case ModeAuto:
		if c == nil && s == nil {
			return nil, errors.New("auto notify mode needs a webhook or stream url")
		}
		a := &autoEgress{logger: logger}
		if c != nil {
			a.http = &httpEgress{c: c}
		}
		if s != nil {
			a.ws = &wsEgress{s: s}
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown notify mode %q", mode)
	}
}

type nopEgress struct{}

func (nopEgress) Publish(context.Context, Event) error { return nil }

// httpEgress posts completion events only; per-ply progress stays on the stream.
type httpEgress struct{ c *Client }

func (h *httpEgress) Publish(ctx context.Context, ev Event) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	if ev.Type != EventDone {
		return nil
	}
	return h.c.Post(ctx, ev)
}

type wsEgress struct{ s *Stream }

func (w *wsEgress) Publish(ctx context.Context, ev Event) error {
	if w == nil || w.s == nil {
		return errors.New("ws egress not available")
	}
	return w.s.Send(ctx, ev)
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Publish(ctx context.Context, ev Event) error {
	if a.ws != nil && a.ws.s.Connected() {
		err := a.ws.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", ev.Type), zap.Error(err))
	}
	if a.http == nil {
		return errStreamDown
	}
	return a.http.Publish(ctx, ev)
}
