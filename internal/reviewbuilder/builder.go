package reviewbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	corechess "github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/openingbook"
	"github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/internal/notify"
	"github.com/park285/cheese-review/internal/service/cache"
	"github.com/park285/cheese-review/internal/service/review"
)

const streamReconnectAttempts = 5

// Deps holds everything a review binary needs. Close releases it in reverse
// order of construction.
type Deps struct {
	Service *review.Service
	Catalog *msgcat.Catalog
	Engine  *corechess.Engine
	Store   *cache.EvalStore
	Repo    review.Repository
	Stream  *notify.Stream

	db     *sql.DB
	logger *zap.Logger
}

// New starts the engine pool and wires the review service around it.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for analysis")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	preset, err := corechess.GetPreset(cfg.ReviewPreset)
	if err != nil {
		return nil, err
	}
	if cfg.EngineThreads > 0 {
		preset.Threads = cfg.EngineThreads
	}
	if cfg.EngineHashMB > 0 {
		preset.HashMB = cfg.EngineHashMB
	}
	engine, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath: cfg.StockfishPath,
		PoolSize:   cfg.EnginePoolSize,
		Preset:     preset,
		Logger:     logger.Named("engine"),
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	deps, err := Assemble(ctx, cfg, engine, logger)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	deps.Engine = engine
	return deps, nil
}

// Assemble wires the review service around an existing oracle.
func Assemble(ctx context.Context, cfg *config.AppConfig, oracle eval.Oracle, logger *zap.Logger) (deps *Deps, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps = &Deps{logger: logger}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	deps.Catalog, err = msgcat.New(cfg.MessageOverrideDir)
	if err != nil {
		return deps, fmt.Errorf("load messages: %w", err)
	}

	bookPath, err := openingbook.ResolveBookPath(cfg.PolyglotBookPath)
	if err != nil {
		return deps, err
	}
	book, err := openingbook.New(bookPath)
	if err != nil {
		return deps, err
	}
	logger.Info("opening book ready", zap.String("polyglot", bookPath), zap.Bool("book_moves", book.HasPolyglot()))

	if err := deps.openRepository(ctx, cfg.DatabaseURL); err != nil {
		return deps, err
	}

	var opts []review.Option
	if strings.TrimSpace(cfg.RedisURL) != "" {
		deps.Store, err = cache.Dial(ctx, cfg.RedisURL, cfg.EvalCacheTTL)
		if err != nil {
			return deps, fmt.Errorf("init eval cache: %w", err)
		}
		opts = append(opts, review.WithEvalStore(deps.Store))
	}

	notifier, err := deps.buildNotifier(ctx, cfg)
	if err != nil {
		return deps, err
	}
	if notifier != nil {
		opts = append(opts, review.WithNotifier(notifier))
	}

	depth, moveTime, nodes := cfg.ReviewLimit()
	deps.Service, err = review.NewService(oracle, book, deps.Catalog, deps.Repo, review.Config{
		DefaultPreset:   cfg.ReviewPreset,
		Override:        eval.Limit{Depth: depth, MoveTime: moveTime, Nodes: nodes},
		PrefetchWorkers: cfg.PrefetchWorkers,
	}, logger.Named("review"), opts...)
	if err != nil {
		return deps, err
	}
	return deps, nil
}

func (d *Deps) openRepository(ctx context.Context, dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		d.logger.Info("review repository: in-memory")
		d.Repo = review.NewMemoryRepository()
		return nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	d.db = db

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	repo := review.NewPostgresRepository(db)
	if err := repo.EnsureSchema(pingCtx); err != nil {
		return fmt.Errorf("ensure review schema: %w", err)
	}
	d.Repo = repo
	return nil
}

// buildNotifier returns nil when notifications are off.
func (d *Deps) buildNotifier(ctx context.Context, cfg *config.AppConfig) (*notify.Notifier, error) {
	mode, err := notify.ParseMode(cfg.NotifyMode)
	if err != nil {
		return nil, err
	}
	if mode == notify.ModeOff {
		return nil, nil
	}

	var headers notify.HeaderProvider
	if cfg.NotifyToken != "" {
		headers = notify.BearerToken(cfg.NotifyToken)
	}

	var client *notify.Client
	if cfg.NotifyHTTPURL != "" && mode != notify.ModeWS {
		client = notify.NewClient(cfg.NotifyHTTPURL, notify.WithHeaderProvider(headers))
	}
	if cfg.NotifyWSURL != "" && mode != notify.ModeHTTP {
		d.Stream = notify.NewStream(cfg.NotifyWSURL, streamReconnectAttempts)
		d.Stream.SetHeaderProvider(headers)
		d.Stream.OnStateChange(func(st notify.StreamState) {
			d.logger.Info("notify stream state", zap.String("state", st.String()))
		})
		if err := d.Stream.Connect(ctx); err != nil {
			// The stream keeps redialing in the background.
			d.logger.Warn("notify stream connect failed", zap.Error(err))
		}
	}

	egress, err := notify.NewEgress(mode, client, d.Stream, d.logger.Named("notify"))
	if err != nil {
		return nil, err
	}
	return notify.NewNotifier(egress, d.Catalog, d.logger.Named("notify")), nil
}

// Close releases the stream, cache, database and engine. It is safe on a
// partially built Deps.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Stream != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		errs = append(errs, d.Stream.Close(ctx))
		cancel()
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	return errors.Join(errs...)
}
