// Package syncer drives collection files from a mirrored git repository
// into the core Index engine: full sync on first run, commit-diff-based
// incremental sync afterward.
//
// Grounded on zephyraoss-poppy-pkgs/internal/indexer.Indexer.RunOnce: the
// same lastIndexedCommit-gates-full-vs-incremental shape, the same
// running/lastRun* status fields exposed for the status endpoint, the
// same "no changes -> just advance the cursor" short-circuit.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/index"
	"github.com/zephyraoss/poppy-index/internal/repo"
)

// Syncer periodically folds the mirrored collection repository into the
// engine. It is safe for concurrent use; RunOnce is idempotent under
// overlap (a call arriving while one is in flight is a no-op).
type Syncer struct {
	engine    *index.Engine
	repo      *repo.Client
	statePath string
	logger    *slog.Logger

	mu              sync.Mutex
	running         bool
	lastRunStarted  time.Time
	lastRunFinished time.Time
	lastRunError    string
	lastRunType     string
	lastUpserts     int
	lastDeletes     int
	lastCommit      string
}

// Status is a snapshot of the syncer's most recent run, exposed by the
// API's status endpoint.
type Status struct {
	Running         bool
	LastRunStarted  time.Time
	LastRunFinished time.Time
	LastRunError    string
	LastRunType     string
	LastUpserts     int
	LastDeletes     int
	LastCommit      string
}

// New returns a Syncer. statePath is where the sync cursor (last indexed
// commit, path-to-identity index) is persisted between runs; an empty
// path disables persistence, so every RunOnce performs a full sync.
func New(engine *index.Engine, repoClient *repo.Client, statePath string, logger *slog.Logger) *Syncer {
	return &Syncer{engine: engine, repo: repoClient, statePath: statePath, logger: logger}
}

// RunOnce performs one sync pass.
func (s *Syncer) RunOnce(ctx context.Context) (runErr error) {
	started := time.Now()
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("sync run skipped, already running")
		return nil
	}
	s.running = true
	s.lastRunStarted = started
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRunFinished = time.Now()
		if runErr != nil {
			s.lastRunError = runErr.Error()
		} else {
			s.lastRunError = ""
		}
		s.mu.Unlock()
	}()

	state := loadState(s.statePath)
	s.logger.Info("sync run started", "last_indexed_commit", shortCommit(state.LastCommit))

	oldHead, newHead, err := s.repo.Update(ctx)
	if err != nil {
		s.logger.Warn("repo update failed, syncing existing state", "error", err)
		newHead, err = s.repo.HeadCommit(ctx)
		if err != nil {
			return err
		}
		oldHead = newHead
	}
	_ = oldHead

	if state.LastCommit == "" {
		s.logger.Info("starting full sync")
		paths, err := s.repo.ListCollectionFiles(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("discovered collection files for full sync", "count", len(paths))
		upserts, err := s.applyPaths(ctx, paths, state)
		if err != nil {
			return err
		}
		state.LastCommit = newHead
		if err := saveState(s.statePath, state); err != nil {
			s.logger.Warn("save sync state failed", "error", err)
		}
		s.setRunSummary("full", upserts, 0, newHead)
		s.logger.Info("full sync complete", "collections", upserts, "commit", shortCommit(newHead), "duration", time.Since(started).String())
		return nil
	}

	if state.LastCommit == newHead {
		s.setRunSummary("noop", 0, 0, newHead)
		s.logger.Debug("sync already up to date", "commit", shortCommit(newHead), "duration", time.Since(started).String())
		return nil
	}

	upsertPaths, deletePaths, err := s.repo.DiffCollectionPaths(ctx, state.LastCommit, newHead)
	if err != nil {
		return err
	}
	s.logger.Info("collection diff computed", "from", shortCommit(state.LastCommit), "to", shortCommit(newHead), "upserts", len(upsertPaths), "deletes", len(deletePaths))

	upserted, err := s.applyPaths(ctx, upsertPaths, state)
	if err != nil {
		return err
	}
	deleted, err := s.applyDeletions(ctx, deletePaths, state)
	if err != nil {
		return err
	}

	state.LastCommit = newHead
	if err := saveState(s.statePath, state); err != nil {
		s.logger.Warn("save sync state failed", "error", err)
	}
	s.setRunSummary("incremental", upserted, deleted, newHead)
	s.logger.Info("incremental sync complete", "upserts", upserted, "deletes", deleted, "commit", shortCommit(newHead), "duration", time.Since(started).String())
	return nil
}

func (s *Syncer) applyPaths(ctx context.Context, paths []string, state persistentState) (int, error) {
	applied := 0
	for _, path := range paths {
		raw, err := s.repo.ReadFile(ctx, path)
		if err != nil {
			s.logger.Warn("read collection file failed", "path", path, "error", err)
			continue
		}
		c, err := collection.Decode(raw)
		if err != nil {
			s.logger.Warn("decode collection file failed", "path", path, "error", err)
			continue
		}
		if err := s.engine.Put(ctx, c); err != nil {
			s.logger.Warn("put collection failed", "path", path, "error", err)
			continue
		}
		state.PathIdentity[path] = c.Identifier.DatabaseKey()
		applied++
	}
	return applied, nil
}

func (s *Syncer) applyDeletions(ctx context.Context, paths []string, state persistentState) (int, error) {
	deleted := 0
	for _, path := range paths {
		key, ok := state.PathIdentity[path]
		if !ok {
			s.logger.Warn("deletion for untracked path, skipping", "path", path)
			continue
		}
		id := collection.NewJSONIdentifier(key)
		if err := s.engine.Remove(ctx, id); err != nil {
			s.logger.Warn("remove collection failed", "path", path, "error", err)
			continue
		}
		delete(state.PathIdentity, path)
		deleted++
	}
	return deleted, nil
}

// Status returns a snapshot of the most recent run.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:         s.running,
		LastRunStarted:  s.lastRunStarted,
		LastRunFinished: s.lastRunFinished,
		LastRunError:    s.lastRunError,
		LastRunType:     s.lastRunType,
		LastUpserts:     s.lastUpserts,
		LastDeletes:     s.lastDeletes,
		LastCommit:      s.lastCommit,
	}
}

func (s *Syncer) setRunSummary(runType string, upserts, deletes int, commit string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunType = runType
	s.lastUpserts = upserts
	s.lastDeletes = deletes
	s.lastCommit = commit
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
