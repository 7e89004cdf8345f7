package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/gradeprobe/internal/store"
)

// ResultReader reads persisted session results.
type ResultReader interface {
	Results(ctx context.Context, opts store.QueryOpts) ([]store.StoredResult, error)
	Result(ctx context.Context, sessionID string) (*store.StoredResult, error)
}

// ResultHandler serves finished session results from the store.
type ResultHandler struct {
	reader ResultReader
	logger zerolog.Logger
}

// NewResultHandler constructs a result handler.
func NewResultHandler(reader ResultReader, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		reader: reader,
		logger: logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register wires result routes.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *ResultHandler) list(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 0 {
		return sendError(c, fiber.StatusBadRequest, "limit must not be negative")
	}

	results, err := h.reader.Results(c.UserContext(), store.QueryOpts{Limit: limit})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list results")
		return sendError(c, fiber.StatusInternalServerError, "failed to list results")
	}

	views := make([]StoredResultView, 0, len(results))
	for _, r := range results {
		views = append(views, newStoredResultView(r))
	}
	return sendSuccess(c, "", views)
}

func (h *ResultHandler) get(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.reader.Result(c.UserContext(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("failed to load result")
		return sendError(c, fiber.StatusInternalServerError, "failed to load result")
	}
	if r == nil {
		return sendError(c, fiber.StatusNotFound, "result not found")
	}
	return sendSuccess(c, "", newStoredResultView(*r))
}
