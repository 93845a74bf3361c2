package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/auth"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/catalog"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/config"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/database"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/evaluate"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/handler"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/llm"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/logger"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/repository"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/session"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/snapshot"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/transcribe"
)

type application struct {
	DB         *pgxpool.Pool
	Logger     *zap.Logger
	Config     *config.Config
	Repository *repository.Repository
	Registry   *session.Registry
	Handler    *handler.Handler
}

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, _ := logger.NewLogger(cfg.Env)
	defer log.Sync()
	sugar := log.Sugar()
	sugar.Infof("config loaded, env=%s", cfg.Env)

	pool, err := database.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxConns, cfg.DB.MaxConnLife)
	if err != nil {
		sugar.Fatal(err)
	}
	defer pool.Close()

	repo := repository.NewRepository(pool)

	interviewTypeID, err := repo.GetInterviewTypeIDBySlug(ctx, cfg.Catalog.InterviewTypeSlug)
	if err != nil {
		sugar.Fatalw("interview type lookup failed", "slug", cfg.Catalog.InterviewTypeSlug, "err", err)
	}

	stations, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		sugar.Fatalw("catalog load failed", "path", cfg.Catalog.Path, "err", err)
	}
	sugar.Infow("catalog loaded", "stations", stations.Len())

	var snapshots session.SnapshotStore
	if cfg.Snapshot.RedisAddr != "" {
		store := snapshot.NewRedisStore(cfg.Snapshot.RedisAddr, cfg.Snapshot.RedisPassword, cfg.Snapshot.RedisDB, cfg.Snapshot.TTL)
		if err := store.Ping(ctx); err != nil {
			sugar.Fatalw("redis unreachable", "addr", cfg.Snapshot.RedisAddr, "err", err)
		}
		snapshots = store
		sugar.Infow("snapshot store ready", "backend", "redis", "addr", cfg.Snapshot.RedisAddr)
	} else {
		snapshots = snapshot.NewMemoryStore()
		sugar.Infow("snapshot store ready", "backend", "memory")
	}

	llmClient, err := llm.NewClient(cfg.Evaluation.Provider, cfg.Evaluation.APIKey, cfg.Evaluation.Model)
	if err != nil {
		sugar.Fatalw("llm client init failed", "provider", cfg.Evaluation.Provider, "err", err)
	}
	evaluator, err := evaluate.NewService(llmClient, cfg.Evaluation.RubricPath, cfg.Evaluation.InputCostPerMTok, cfg.Evaluation.OutputCostPerMTok)
	if err != nil {
		sugar.Fatalw("evaluation service init failed", "err", err)
	}

	var transcriber session.Transcriber
	if cfg.Deepgram.Enabled {
		transcriber = transcribe.NewClient(cfg.Deepgram.APIKey, cfg.Deepgram.Model)
		sugar.Infow("transcription enabled", "model", cfg.Deepgram.Model)
	} else {
		sugar.Warnw("transcription disabled, audio responses will not be transcribed")
	}

	registry := session.NewRegistry(session.Deps{
		Stations:          stations.Stations(),
		Gateway:           repo,
		Transcriber:       transcriber,
		Evaluator:         evaluator,
		Snapshots:         snapshots,
		InterviewTypeID:   interviewTypeID,
		EvalTimeout:       cfg.Evaluation.Timeout,
		TranscribeTimeout: cfg.Deepgram.Timeout,
		Logger:            sugar,
	})

	tokenMaker := auth.NewJWTMaker(cfg.JWT.Secret)

	h := &handler.Handler{
		Logger:     log,
		Registry:   registry,
		Repo:       repo,
		Catalog:    stations,
		TokenMaker: tokenMaker,
		JwtTTL:     cfg.JWT.AccessTokenTTL,
	}

	app := &application{
		DB:         pool,
		Logger:     log,
		Config:     cfg,
		Repository: repo,
		Registry:   registry,
		Handler:    h,
	}

	if err := app.serve(); err != nil {
		sugar.Fatal(err)
	}
}
