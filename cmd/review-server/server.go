package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/adapter/reviewpresenter"
	corechess "github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/service/review"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

const (
	reviewsPath     = "/v1/reviews"
	maxRecentParam  = 50
	defaultDeadline = 5 * time.Minute
)

type server struct {
	svc       *review.Service
	formatter *reviewpresenter.Formatter
	logger    *zap.Logger
	timeout   time.Duration
}

func newServer(svc *review.Service, f *reviewpresenter.Formatter, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if f == nil {
		f = reviewpresenter.NewFormatter(nil)
	}
	return &server{svc: svc, formatter: f, logger: logger, timeout: defaultDeadline}
}

func (s *server) handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == reviewsPath && method == fasthttp.MethodPost:
		s.createReview(ctx)
	case path == reviewsPath && method == fasthttp.MethodGet:
		s.recent(ctx)
	case strings.HasPrefix(path, reviewsPath+"/") && method == fasthttp.MethodGet:
		s.getReview(ctx, strings.TrimPrefix(path, reviewsPath+"/"))
	default:
		writeError(ctx, fasthttp.StatusNotFound, reviewdto.DomainError{Code: "not_found", Message: "no such route"})
	}

	s.logger.Debug("http request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("took", time.Since(start)))
}

// createReview accepts either a JSON ReviewRequest or a raw PGN body.
func (s *server) createReview(ctx *fasthttp.RequestCtx) {
	var req reviewdto.ReviewRequest
	body := ctx.PostBody()
	if bytes.HasPrefix(ctx.Request.Header.ContentType(), []byte("application/json")) {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, reviewdto.DomainError{Code: "bad_request", Message: "invalid json: " + err.Error()})
			return
		}
	} else {
		req.PGN = string(body)
	}
	if p := string(ctx.QueryArgs().Peek("preset")); p != "" {
		req.Preset = p
	}

	limit, err := s.svc.Limit(req.Preset, reviewpresenter.LimitFromRequest(req))
	if err != nil {
		s.fail(ctx, err)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r *review.GameReview
	switch {
	case strings.TrimSpace(req.PGN) != "":
		r, err = s.svc.ReviewPGN(rctx, strings.NewReader(req.PGN), limit)
	case len(req.Moves) > 0:
		var g *review.Game
		if g, err = review.ParseMoves(req.StartFEN, req.Moves); err == nil {
			r, err = s.svc.ReviewGame(rctx, g, limit)
		}
	default:
		err = review.ErrParse
	}
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusCreated)
	writeJSON(ctx, reviewdto.ReviewResponse{Review: reviewpresenter.ToDTOReview(r)})
}

func (s *server) getReview(ctx *fasthttp.RequestCtx, rest string) {
	id, view, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(ctx, fasthttp.StatusNotFound, reviewdto.DomainError{Code: "not_found", Message: "review id required"})
		return
	}
	var chart review.ChartOptions
	if view == "chart.png" {
		opts, err := chartOptions(ctx)
		if err != nil {
			s.fail(ctx, err)
			return
		}
		chart = opts
	}
	r, err := s.svc.Get(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	switch view {
	case "":
		writeJSON(ctx, reviewdto.ReviewResponse{Review: reviewpresenter.ToDTOReview(r)})
	case "chart.png":
		png, err := review.RenderChart(r, chart)
		if err != nil {
			s.fail(ctx, err)
			return
		}
		ctx.SetContentType("image/png")
		ctx.SetBody(png)
	case "pgn":
		ctx.SetContentType("application/x-chess-pgn")
		ctx.SetBodyString(s.formatter.PGN(reviewpresenter.ToDTOReview(r)))
	case "report":
		text, err := s.formatter.Text(reviewpresenter.ToDTOReview(r))
		if err != nil {
			s.fail(ctx, err)
			return
		}
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(text)
	default:
		writeError(ctx, fasthttp.StatusNotFound, reviewdto.DomainError{Code: "not_found", Message: "no such view"})
	}
}

func (s *server) recent(ctx *fasthttp.RequestCtx) {
	n, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	if n <= 0 || n > maxRecentParam {
		n = 10
	}
	recs, err := s.svc.Recent(ctx, n)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, reviewdto.RecentResponse{Reviews: reviewpresenter.ToDTOSummaries(recs)})
}

// chartOptions reads ?w= and ?h=. Missing values fall back to the defaults.
func chartOptions(ctx *fasthttp.RequestCtx) (review.ChartOptions, error) {
	var opts review.ChartOptions
	for _, dim := range []struct {
		name string
		dst  *int
	}{{"w", &opts.Width}, {"h", &opts.Height}} {
		raw := ctx.QueryArgs().Peek(dim.name)
		if len(raw) == 0 {
			continue
		}
		v, err := strconv.Atoi(string(raw))
		if err != nil || v <= 0 {
			return opts, fmt.Errorf("%w: %s=%q", review.ErrChartSize, dim.name, raw)
		}
		*dim.dst = v
	}
	return opts, opts.Validate()
}

// fail maps service errors onto status codes.
func (s *server) fail(ctx *fasthttp.RequestCtx, err error) {
	status, body := classify(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Warn("review request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(ctx, status, body)
}

func classify(err error) (int, reviewdto.DomainError) {
	switch {
	case errors.Is(err, review.ErrParse),
		errors.Is(err, eval.ErrInvalidLimit),
		errors.Is(err, corechess.ErrUnknownPreset),
		errors.Is(err, review.ErrChartSize):
		return fasthttp.StatusBadRequest, reviewdto.DomainError{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, review.ErrNotFound):
		return fasthttp.StatusNotFound, reviewdto.DomainError{Code: "not_found", Message: "review not found"}
	case errors.Is(err, review.ErrEngineUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusServiceUnavailable, reviewdto.DomainError{Code: "engine_unavailable", Message: "analysis engine unavailable", Retryable: true}
	default:
		return fasthttp.StatusInternalServerError, reviewdto.DomainError{Code: "internal", Message: "internal error"}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.ResetBody()
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, body reviewdto.DomainError) {
	ctx.SetStatusCode(status)
	writeJSON(ctx, body)
}
