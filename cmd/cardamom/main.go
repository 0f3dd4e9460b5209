package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/cardamom-srs/cardamom/internal/config"
	"github.com/cardamom-srs/cardamom/internal/decksync"
	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/queue"
	"github.com/cardamom-srs/cardamom/internal/srs"
	"github.com/cardamom-srs/cardamom/internal/stats"
	"github.com/cardamom-srs/cardamom/internal/storage"
	"github.com/cardamom-srs/cardamom/internal/web"
)

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("cardamom", pflag.ExitOnError)
	configPath := flags.String("config", "cardamom.yaml", "Path to the yaml config file")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("db_path", "cardamom.db", "Path to the SQLite database file")
	flags.String("repos_dir", "repos", "Directory for git source checkouts")
	syncOnce := flags.Bool("sync-once", false, "Sync all card sources once and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to seed configured users and sources: %v", err)
	}

	syncer := decksync.NewRunner(db, cfg.ReposDir)
	syncer.RunAll(ctx)
	if *syncOnce {
		return
	}
	if err := syncer.Start(cfg.SyncInterval); err != nil {
		log.Fatalf("Failed to start periodic sync: %v", err)
	}
	defer syncer.Stop()

	clock := srs.SystemClock{}
	server := web.NewServer(
		&web.HeaderResolver{Header: cfg.UserHeader, Store: db},
		queue.NewBuilder(db, clock),
		stats.NewAggregator(db, clock),
		srs.NewService(db, cfg.Params(), clock),
	)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server,
	}
	go func() {
		slog.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// seed makes sure the configured users, their source decks and the sources
// themselves exist. Re-running is idempotent.
func seed(ctx context.Context, db *storage.DB, cfg *config.Config) error {
	for _, u := range cfg.Users {
		if _, err := db.FindUserByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		user := domain.User{Username: u.Username, Name: u.Name}
		if err := db.CreateUser(ctx, &user); err != nil {
			return err
		}
		slog.Info("created user", "username", u.Username)
	}

	for _, src := range cfg.Sources {
		user, err := db.FindUserByUsername(ctx, src.User)
		if err != nil {
			return err
		}
		deck, err := db.FindDeckByName(ctx, user.ID, src.Deck)
		if err != nil {
			return err
		}
		if deck == nil {
			deck = &domain.Deck{UserID: user.ID, Name: src.Deck}
			if err := db.CreateDeck(ctx, deck); err != nil {
				return err
			}
			slog.Info("created deck", "name", src.Deck, "user", src.User)
		}
		source := storage.Source{
			UserID: user.ID,
			DeckID: deck.ID,
			Path:   src.Path,
			Kind:   src.Kind,
		}
		if err := db.UpsertSource(ctx, &source); err != nil {
			return err
		}
	}
	return nil
}
