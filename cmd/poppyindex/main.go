// Command poppyindex runs the package-collection index as a standalone
// service: it mirrors a collections repository, keeps the core engine in
// sync with it, and serves the engine's operations over HTTP. It also
// carries an import-legacy subcommand that folds a tree of pre-existing
// YAML package manifests into a synthesized collection.
//
// Grounded on zephyraoss-poppy-pkgs/cmd/poppypkgs/main.go's wiring order
// (config, logger, storage, repo client, background sync loop, HTTP
// server, signal-driven shutdown) for the default command, and on
// otterindex/internal/otidxcli's cobra root-plus-subcommand shape for the
// CLI surface itself.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zephyraoss/poppy-index/internal/api"
	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/config"
	"github.com/zephyraoss/poppy-index/internal/diagnostics"
	"github.com/zephyraoss/poppy-index/internal/index"
	"github.com/zephyraoss/poppy-index/internal/legacy"
	"github.com/zephyraoss/poppy-index/internal/repo"
	"github.com/zephyraoss/poppy-index/internal/store"
	"github.com/zephyraoss/poppy-index/internal/syncer"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poppyindex",
		Short: "Package-collection index and search service",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
	cmd.AddCommand(newImportLegacyCommand())
	return cmd
}

// runServe is the default command: mirror the collections repository,
// keep the engine in sync with it, and serve its operations over HTTP
// until an interrupt or SIGTERM arrives.
func runServe() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	logger.Info("starting poppyindex", "listen_addr", cfg.ListenAddr, "db_path", cfg.DBPath, "repo_path", cfg.RepoPath, "sync_interval", cfg.SyncInterval.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := index.New(index.Options{
		Location:    store.AtPath(cfg.DBPath),
		Diagnostics: diagnostics.SlogSink{Logger: logger},
	})
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := engine.Close(closeCtx); err != nil {
			logger.Error("close engine", "error", err)
		}
	}()

	repoClient := repo.New(cfg.RepoURL, cfg.RepoPath, logger)
	sync := syncer.New(engine, repoClient, cfg.StatePath, logger)

	app := api.New(engine, sync, logger)
	go func() {
		logger.Info("starting api server")
		if err := app.Listen(cfg.ListenAddr); err != nil {
			logger.Error("fiber listen failed", "error", err)
			cancel()
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		logger.Info("started sync scheduler")

		syncOnce := func(label string) {
			logger.Info("ensuring collections repository", "repo_url", cfg.RepoURL, "run", label)
			if err := repoClient.Ensure(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("repository ensure cancelled", "run", label)
					return
				}
				logger.Error("ensure collections repo failed", "error", err, "run", label)
				return
			}
			logger.Info("running sync", "run", label)
			if err := sync.RunOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("sync run cancelled", "run", label)
					return
				}
				logger.Error("sync run failed", "error", err, "run", label)
				return
			}
			logger.Info("sync run complete", "run", label)
		}

		syncOnce("startup")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				syncOnce("scheduled")
			}
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	logger.Info("shutting down api server")
	_ = app.ShutdownWithContext(shutdownCtx)
}

// newImportLegacyCommand builds the import-legacy subcommand: it walks a
// directory of legacy YAML manifests, folds them into a synthesized
// collection keyed by --source-url, and writes it straight to the index
// database without going through the git-mirrored sync path.
func newImportLegacyCommand() *cobra.Command {
	var sourceURL string
	var name string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import-legacy <manifest-dir>",
		Short: "Fold a tree of legacy YAML package manifests into a synthesized collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportLegacy(cmd.Context(), args[0], sourceURL, name, dbPath)
		},
	}

	cfg := config.Load()
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "source URL identifying the synthesized collection (required)")
	cmd.Flags().StringVar(&name, "name", "Legacy Import", "name recorded on the synthesized collection")
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "path to the index database")
	_ = cmd.MarkFlagRequired("source-url")
	return cmd
}

func runImportLegacy(ctx context.Context, dir, sourceURL, name, dbPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	manifests, err := loadLegacyManifests(dir)
	if err != nil {
		return fmt.Errorf("import-legacy: load manifests: %w", err)
	}
	logger.Info("loaded legacy manifests", "dir", dir, "count", len(manifests))

	engine := index.New(index.Options{
		Location:    store.AtPath(dbPath),
		Diagnostics: diagnostics.SlogSink{Logger: logger},
	})
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		_ = engine.Close(closeCtx)
	}()

	now := collection.NewTime(time.Now())
	c, err := engine.Get(ctx, collection.NewJSONIdentifier(sourceURL))
	if err != nil {
		c = collection.Collection{
			Identifier: collection.NewJSONIdentifier(sourceURL),
			Source:     collection.Source{Type: collection.JSONSource, URL: sourceURL},
			Name:       name,
			CreatedAt:  now,
		}
	}
	c.LastProcessedAt = now
	c = legacy.MergeInto(c, manifests)

	if err := engine.Put(ctx, c); err != nil {
		return fmt.Errorf("import-legacy: put synthesized collection: %w", err)
	}
	logger.Info("imported legacy manifests", "packages", len(c.Packages), "collection", sourceURL)
	return nil
}

func loadLegacyManifests(dir string) ([]legacy.Manifest, error) {
	var manifests []legacy.Manifest
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		m, parseErr := legacy.ParseLegacyManifest(raw)
		if parseErr != nil {
			return fmt.Errorf("%s: %w", path, parseErr)
		}
		manifests = append(manifests, m)
		return nil
	})
	return manifests, err
}
