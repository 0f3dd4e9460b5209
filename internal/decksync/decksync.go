// Package decksync reconciles registered card sources into their decks:
// new cards are inserted, cards that disappeared from the source are
// removed (their review state cascades away), everything keyed by content
// fingerprint.
package decksync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/fingerprint"
	"github.com/cardamom-srs/cardamom/internal/gitsource"
	"github.com/cardamom-srs/cardamom/internal/parser"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

// Runner drives source reconciliation, either once or on a schedule.
type Runner struct {
	store    *storage.DB
	reposDir string
	cron     *gocron.Scheduler
}

// NewRunner wires a sync runner. reposDir is where git sources get their
// local checkouts.
func NewRunner(store *storage.DB, reposDir string) *Runner {
	return &Runner{
		store:    store,
		reposDir: reposDir,
		cron:     gocron.NewScheduler(time.UTC),
	}
}

// Start schedules RunAll every interval and returns immediately. A zero or
// negative interval disables periodic sync.
func (r *Runner) Start(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	if _, err := r.cron.Every(interval).Do(func() {
		r.RunAll(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule periodic sync: %w", err)
	}
	r.cron.StartAsync()
	return nil
}

// Stop cancels the periodic schedule.
func (r *Runner) Stop() {
	r.cron.Stop()
}

// RunAll reconciles every registered source. Failures are logged per
// source; one bad source does not stop the rest.
func (r *Runner) RunAll(ctx context.Context) {
	slog.Info("starting sync of all card sources")
	sources, err := r.store.AllSources(ctx)
	if err != nil {
		slog.Error("failed to list sources", "error", err)
		return
	}
	if len(sources) == 0 {
		slog.Info("no card sources configured")
		return
	}

	if err := os.MkdirAll(r.reposDir, os.ModePerm); err != nil {
		slog.Error("failed to create repos directory", "error", err)
		return
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "kind", source.Kind, "path", source.Path)
		if err := r.syncSource(ctx, source); err != nil {
			slog.Error("source sync failed", "id", source.ID, "path", source.Path, "error", err)
		}
	}
	slog.Info("sync complete")
}

func (r *Runner) syncSource(ctx context.Context, source storage.Source) error {
	localPath := source.Path
	if source.Kind == storage.SourceGit {
		var err error
		localPath, err = gitURLToLocalPath(r.reposDir, source.Path)
		if err != nil {
			return err
		}
		if err := gitsource.Sync(source.Path, localPath); err != nil {
			return err
		}
	}

	if err := r.reconcile(ctx, source, localPath); err != nil {
		return err
	}
	return r.store.UpdateSourceSynced(ctx, source.ID, time.Now())
}

// reconcile walks the source's card files and converges the target deck on
// their current contents.
func (r *Runner) reconcile(ctx context.Context, source storage.Source, localPath string) error {
	found := make(map[string]parser.ParsedCard)

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat source path %s: %w", localPath, err)
	}

	collect := func(path string) error {
		cards, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, card := range cards {
			found[fingerprint.Of(card.Front, card.Back)] = card
		}
		return nil
	}

	if info.IsDir() {
		err = filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return collect(path)
			}
			return nil
		})
	} else {
		err = collect(localPath)
	}
	if err != nil {
		return err
	}

	existing, err := r.store.CardsForDeck(ctx, source.DeckID)
	if err != nil {
		return err
	}
	known := make(map[string]int64, len(existing))
	for _, card := range existing {
		known[card.Fingerprint] = card.ID
	}

	var inserted, deleted int
	for fp, parsed := range found {
		if _, ok := known[fp]; ok {
			continue
		}
		if err := r.insertCard(ctx, source, fp, parsed); err != nil {
			slog.Warn("failed to insert card", "fingerprint", fp, "error", err)
			continue
		}
		inserted++
	}
	for fp, cardID := range known {
		if _, ok := found[fp]; ok {
			continue
		}
		if err := r.store.DeleteCard(ctx, cardID); err != nil {
			slog.Warn("failed to delete orphaned card", "card_id", cardID, "error", err)
			continue
		}
		deleted++
	}

	slog.Info("deck reconciled",
		"deck_id", source.DeckID,
		"parsed", len(found),
		"inserted", inserted,
		"deleted", deleted,
	)
	return nil
}

func (r *Runner) insertCard(ctx context.Context, source storage.Source, fp string, parsed parser.ParsedCard) error {
	card := domainCard(source.DeckID, fp, parsed)
	if err := r.store.InsertCard(ctx, &card); err != nil {
		return err
	}
	for _, name := range parsed.TagNames {
		tagID, err := r.store.EnsureTag(ctx, source.UserID, name)
		if err != nil {
			return err
		}
		if err := r.store.TagCard(ctx, card.ID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func domainCard(deckID int64, fp string, parsed parser.ParsedCard) domain.Card {
	return domain.Card{
		DeckID:      deckID,
		Front:       parsed.Front,
		Back:        parsed.Back,
		Fingerprint: fp,
	}
}

// gitURLToLocalPath maps a git URL to a checkout directory under baseDir,
// handling both https URLs and scp-style git@host:owner/repo.git remotes.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	if strings.Contains(repoURL, "@") {
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) == 2 {
			hostAndUser := strings.SplitN(parts[0], "@", 2)
			if len(hostAndUser) == 2 {
				return filepath.Join(baseDir, hostAndUser[1], strings.TrimSuffix(parts[1], ".git")), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
