// Package api exposes the core Index engine over HTTP: read-only lookup,
// listing, and search endpoints, plus status and health checks for the
// syncer that feeds it.
//
// Grounded on zephyraoss-poppy-pkgs/internal/api.Server's route-group and
// handler shape (one *fiber.App, one Server holding its collaborators,
// one handler method per route, uniform fiber.Map{"data": ...} envelopes
// and fiber.Map{"error": ...} failure bodies), with per-request
// correlation IDs added in the style of
// aladin2907-overhuman/internal/observability (uuid.NewString() minted
// once per request and attached to the request-scoped logger).
package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/index"
	"github.com/zephyraoss/poppy-index/internal/syncer"
)

// Server holds the collaborators every handler needs.
type Server struct {
	engine *index.Engine
	sync   *syncer.Syncer
	logger *slog.Logger
}

// New builds the fiber.App exposing the engine's operations.
func New(engine *index.Engine, syncer *syncer.Syncer, logger *slog.Logger) *fiber.App {
	s := &Server{engine: engine, sync: syncer, logger: logger}
	app := fiber.New(fiber.Config{AppName: "poppyindex"})
	app.Use(correlationID)

	v1 := app.Group("/v1")
	v1.Get("/health", s.health)
	v1.Get("/status", s.status)
	v1.Get("/collections", s.listCollections)
	v1.Get("/collections/+", s.getCollection)
	v1.Get("/search/packages", s.searchPackages)
	v1.Get("/search/packages/+", s.findPackage)
	v1.Get("/search/targets", s.searchTargets)

	return app
}

func correlationID(c *fiber.Ctx) error {
	id := uuid.NewString()
	c.Locals("requestID", id)
	c.Set("X-Request-Id", id)
	return c.Next()
}

func (s *Server) requestLogger(c *fiber.Ctx) *slog.Logger {
	id, _ := c.Locals("requestID").(string)
	return s.logger.With("request_id", id)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) status(c *fiber.Ctx) error {
	st := s.sync.Status()
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"running":              st.Running,
			"last_run_commit":      st.LastCommit,
			"last_run_type":        st.LastRunType,
			"last_upserts":         st.LastUpserts,
			"last_deletes":         st.LastDeletes,
			"last_run_started_at":  formatTime(st.LastRunStarted),
			"last_run_finished_at": formatTime(st.LastRunFinished),
			"last_run_error":       st.LastRunError,
			"engine_state":         engineStateLabel(s.engine.State()),
		},
	})
}

func (s *Server) getCollection(c *fiber.Ctx) error {
	url := c.Params("+")
	if url == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}
	id := collection.NewJSONIdentifier(url)
	coll, err := s.engine.Get(c.UserContext(), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"data": coll})
}

func (s *Server) listCollections(c *fiber.Ctx) error {
	ids, err := parseIDsQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	collections, err := s.engine.List(c.UserContext(), ids)
	if err != nil {
		s.requestLogger(c).Error("list collections failed", "error", err)
		return writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"data": collections, "meta": fiber.Map{"count": len(collections)}})
}

func (s *Server) searchPackages(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}
	ids, err := parseIDsQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	hits, err := s.engine.SearchPackages(c.UserContext(), ids, q)
	if err != nil {
		s.requestLogger(c).Error("search packages failed", "error", err)
		return writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"data": hits, "meta": fiber.Map{"q": q, "count": len(hits)}})
}

func (s *Server) findPackage(c *fiber.Ctx) error {
	identity := c.Params("+")
	if identity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "identity is required"})
	}
	ids, err := parseIDsQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	res, err := s.engine.FindPackage(c.UserContext(), collection.PackageIdentity(identity), ids)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"data": res})
}

func (s *Server) searchTargets(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}
	matchType := index.Prefix
	if c.Query("match") == "exact" {
		matchType = index.ExactMatch
	}
	ids, err := parseIDsQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	hits, err := s.engine.SearchTargets(c.UserContext(), ids, q, matchType)
	if err != nil {
		s.requestLogger(c).Error("search targets failed", "error", err)
		return writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"data": hits, "meta": fiber.Map{"q": q, "count": len(hits)}})
}

func parseIDsQuery(c *fiber.Ctx) ([]collection.Identifier, error) {
	raw := c.Query("ids")
	if raw == "" {
		return nil, nil
	}
	urls := strings.Split(raw, ",")
	ids := make([]collection.Identifier, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		ids = append(ids, collection.NewJSONIdentifier(u))
	}
	return ids, nil
}

func writeEngineError(c *fiber.Ctx, err error) error {
	if errors.Is(err, index.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	if errors.Is(err, index.ErrCorrupt) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stored value is corrupt"})
	}
	if errors.Is(err, index.ErrClosed) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "engine is shutting down"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func engineStateLabel(s index.State) string {
	switch s {
	case index.Idle:
		return "idle"
	case index.Connected:
		return "connected"
	case index.Disconnected:
		return "disconnected"
	case index.Errored:
		return "errored"
	default:
		return "unknown"
	}
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
