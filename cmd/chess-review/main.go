package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/adapter/reviewpresenter"
	corechess "github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/chess/eval"
	appcfg "github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/obslog"
	"github.com/park285/cheese-review/internal/reviewbuilder"
	"github.com/park285/cheese-review/internal/service/review"
)

type options struct {
	pgnPath  string
	moves    string
	fen      string
	format   string
	chart    string
	preset   string
	depth    int
	moveTime time.Duration
	nodes    int
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		return 2
	}
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return 1
	}
	defer obslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		obslog.L().Error("review failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "chess-review: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("chess-review", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.pgnPath, "pgn", "", "PGN file to review, - for stdin")
	fs.StringVar(&o.moves, "moves", "", "space separated UCI moves, instead of -pgn")
	fs.StringVar(&o.fen, "fen", "", "start position for -moves")
	fs.StringVar(&o.format, "format", "text", "output format: text, json or pgn")
	fs.StringVar(&o.chart, "chart", "", "write the evaluation chart PNG here")
	fs.StringVar(&o.preset, "preset", "", "analysis preset: "+strings.Join(corechess.PresetNames(), ", "))
	fs.IntVar(&o.depth, "depth", 0, "search depth, overrides the preset")
	fs.DurationVar(&o.moveTime, "movetime", 0, "search time per position, overrides the preset")
	fs.IntVar(&o.nodes, "nodes", 0, "node cap per search, overrides the preset")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if (o.pgnPath == "") == (strings.TrimSpace(o.moves) == "") {
		fmt.Fprintln(errOut, "exactly one of -pgn or -moves is required")
		fs.Usage()
		return o, flag.ErrHelp
	}
	return o, nil
}

func run(ctx context.Context, o options, stdin io.Reader, stdout io.Writer) error {
	format, err := reviewpresenter.ParseFormat(o.format)
	if err != nil {
		return err
	}
	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	deps, err := reviewbuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer deps.Close()

	limit, err := deps.Service.Limit(o.preset, eval.Limit{Depth: o.depth, MoveTime: o.moveTime, Nodes: o.nodes})
	if err != nil {
		return err
	}

	var r *review.GameReview
	if o.pgnPath != "" {
		in, closeIn, err := openInput(o.pgnPath, stdin)
		if err != nil {
			return err
		}
		defer closeIn()
		r, err = deps.Service.ReviewPGN(ctx, in, limit)
		if err != nil {
			return err
		}
	} else {
		g, err := review.ParseMoves(o.fen, strings.Fields(o.moves))
		if err != nil {
			return err
		}
		if r, err = deps.Service.ReviewGame(ctx, g, limit); err != nil {
			return err
		}
	}

	if o.chart != "" {
		png, err := review.RenderChart(r, review.ChartOptions{})
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.chart, png, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	presenter := reviewpresenter.NewPresenter(reviewpresenter.NewFormatter(deps.Catalog))
	return presenter.Write(stdout, reviewpresenter.ToDTOReview(r), format)
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pgn: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
