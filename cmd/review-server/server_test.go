package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/openingbook"
	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/internal/service/review"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

type evenOracle struct{ err error }

func (o evenOracle) Analyze(_ context.Context, fen string, _ eval.Limit) (eval.Analysis, error) {
	if o.err != nil {
		return eval.Analysis{}, o.err
	}
	p, err := position.FromFEN(fen)
	if err != nil {
		return eval.Analysis{}, err
	}
	a := eval.Analysis{Score: eval.Centipawns(0), Depth: 1}
	if moves := p.LegalMoves(); len(moves) > 0 {
		a.PV = []string{position.UCI(moves[0])}
	}
	return a, nil
}

func startServer(t *testing.T, o eval.Oracle) *fasthttp.Client {
	t.Helper()
	book, err := openingbook.New("")
	if err != nil {
		t.Fatalf("openingbook.New: %v", err)
	}
	svc, err := review.NewService(o, book, msgcat.MustDefault(), review.NewMemoryRepository(), review.Config{DefaultPreset: "standard"}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: newServer(svc, nil, nil).handle}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func do(t *testing.T, c *fasthttp.Client, method, uri, contentType string, body []byte) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.Header.SetMethod(method)
	req.SetRequestURI("http://review.test" + uri)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	req.SetBody(body)
	if err := c.Do(req, resp); err != nil {
		t.Fatalf("%s %s: %v", method, uri, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func TestCreateAndFetchReview(t *testing.T) {
	c := startServer(t, evenOracle{})

	pgn := []byte("[White \"Anna\"]\n[Black \"Ben\"]\n\n1. e4 e5 2. Nf3 Nc6 *\n")
	status, body := do(t, c, fasthttp.MethodPost, "/v1/reviews?preset=fast", "application/x-chess-pgn", pgn)
	if status != fasthttp.StatusCreated {
		t.Fatalf("POST status = %d body %s", status, body)
	}
	var created reviewdto.ReviewResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Review.ID == "" || len(created.Review.Moves) != 4 || created.Review.Limit != "t100ms" {
		t.Fatalf("created = %+v", created.Review)
	}
	id := created.Review.ID

	status, body = do(t, c, fasthttp.MethodGet, "/v1/reviews/"+id, "", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("GET status = %d", status)
	}
	var got reviewdto.ReviewResponse
	if err := json.Unmarshal(body, &got); err != nil || got.Review.ID != id {
		t.Fatalf("GET review = %s, %v", body, err)
	}

	status, body = do(t, c, fasthttp.MethodGet, "/v1/reviews/"+id+"/chart.png?w=200&h=100", "", nil)
	if status != fasthttp.StatusOK || len(body) < 8 || string(body[1:4]) != "PNG" {
		t.Fatalf("chart status %d, %d bytes", status, len(body))
	}

	status, body = do(t, c, fasthttp.MethodGet, "/v1/reviews/"+id+"/pgn", "", nil)
	if status != fasthttp.StatusOK || len(body) == 0 {
		t.Fatalf("pgn status %d", status)
	}

	status, body = do(t, c, fasthttp.MethodGet, "/v1/reviews?limit=5", "", nil)
	var recent reviewdto.RecentResponse
	if err := json.Unmarshal(body, &recent); err != nil || status != fasthttp.StatusOK {
		t.Fatalf("recent = %d %s", status, body)
	}
	if len(recent.Reviews) != 1 || recent.Reviews[0].White != "Anna" || recent.Reviews[0].Plies != 4 {
		t.Fatalf("recent = %+v", recent.Reviews)
	}
}

func TestCreateReviewFromJSONMoves(t *testing.T) {
	c := startServer(t, evenOracle{})
	req, _ := json.Marshal(reviewdto.ReviewRequest{Moves: []string{"d2d4", "g8f6"}, Depth: 9})
	status, body := do(t, c, fasthttp.MethodPost, "/v1/reviews", "application/json", req)
	if status != fasthttp.StatusCreated {
		t.Fatalf("status = %d body %s", status, body)
	}
	var created reviewdto.ReviewResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Review.Limit != "d9" || created.Review.Moves[1].SAN != "Nf6" {
		t.Fatalf("created = %+v", created.Review)
	}
}

func TestErrorMapping(t *testing.T) {
	c := startServer(t, evenOracle{})
	cases := []struct {
		name        string
		method, uri string
		contentType string
		body        string
		want        int
	}{
		{"unparsable pgn", fasthttp.MethodPost, "/v1/reviews", "", "not a game", fasthttp.StatusBadRequest},
		{"illegal move", fasthttp.MethodPost, "/v1/reviews", "application/json", `{"moves":["e2e5"]}`, fasthttp.StatusBadRequest},
		{"bad json", fasthttp.MethodPost, "/v1/reviews", "application/json", `{`, fasthttp.StatusBadRequest},
		{"unknown preset", fasthttp.MethodPost, "/v1/reviews?preset=bullet", "", "1. e4 *", fasthttp.StatusBadRequest},
		{"missing review", fasthttp.MethodGet, "/v1/reviews/nope", "", "", fasthttp.StatusNotFound},
		{"unknown route", fasthttp.MethodGet, "/v2/things", "", "", fasthttp.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, c, tc.method, tc.uri, tc.contentType, []byte(tc.body))
			if status != tc.want {
				t.Fatalf("status = %d, want %d (%s)", status, tc.want, body)
			}
			var e reviewdto.DomainError
			if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
				t.Fatalf("error body = %s", body)
			}
		})
	}

	status, _ := do(t, c, fasthttp.MethodGet, "/healthz", "", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("healthz = %d", status)
	}
}

func TestChartSizeIsBounded(t *testing.T) {
	c := startServer(t, evenOracle{})
	status, body := do(t, c, fasthttp.MethodPost, "/v1/reviews", "", []byte("1. e4 e5 *"))
	if status != fasthttp.StatusCreated {
		t.Fatalf("POST status = %d body %s", status, body)
	}
	var created reviewdto.ReviewResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	chart := "/v1/reviews/" + created.Review.ID + "/chart.png"

	for _, query := range []string{"?w=100000&h=100000", "?w=4096", "?h=2000", "?w=10&h=10", "?w=-5", "?h=tall"} {
		status, body := do(t, c, fasthttp.MethodGet, chart+query, "", nil)
		if status != fasthttp.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400 (%s)", query, status, body)
		}
	}
	status, body = do(t, c, fasthttp.MethodGet, fmt.Sprintf("%s?w=%d&h=%d", chart, review.MaxChartWidth, review.MaxChartHeight), "", nil)
	if status != fasthttp.StatusOK || string(body[1:4]) != "PNG" {
		t.Fatalf("largest chart status %d", status)
	}
}

func TestEngineFailureIsUnavailable(t *testing.T) {
	c := startServer(t, evenOracle{err: errors.New("engine crashed")})
	status, body := do(t, c, fasthttp.MethodPost, "/v1/reviews", "", []byte("1. e4 e5 *"))
	if status != fasthttp.StatusServiceUnavailable {
		t.Fatalf("status = %d body %s", status, body)
	}
	var e reviewdto.DomainError
	if err := json.Unmarshal(body, &e); err != nil || !e.Retryable {
		t.Fatalf("error body = %s", body)
	}
}

func TestClassify(t *testing.T) {
	for err, want := range map[error]int{
		fmt.Errorf("wrap: %w", review.ErrParse):    fasthttp.StatusBadRequest,
		review.ErrNotFound:                         fasthttp.StatusNotFound,
		fmt.Errorf("%w: 9x9", review.ErrChartSize): fasthttp.StatusBadRequest,
		context.DeadlineExceeded:                   fasthttp.StatusServiceUnavailable,
		errors.New("boom"):                         fasthttp.StatusInternalServerError,
	} {
		if got, _ := classify(err); got != want {
			t.Fatalf("classify(%v) = %d, want %d", err, got, want)
		}
	}
}
