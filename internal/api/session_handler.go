package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// SessionHandler exposes the session manager over HTTP.
type SessionHandler struct {
	manager  *assessment.Manager
	start    float64
	archives []assessment.SessionArchive
	logger   zerolog.Logger
}

// NewSessionHandler constructs a session handler. defaultStart is used
// when a start request omits starting_difficulty. archives are consulted,
// in order, for sessions the manager has already evicted.
func NewSessionHandler(manager *assessment.Manager, defaultStart float64, archives []assessment.SessionArchive, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:  manager,
		start:    defaultStart,
		archives: archives,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/answers", h.answer)
	router.Post("/:id/abort", h.abort)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var payload StartSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	req := assessment.StartRequest{
		Subject:            payload.Subject,
		StartingDifficulty: h.start,
		TotalItems:         h.manager.DefaultTotalItems(),
	}
	if payload.StartingDifficulty != nil {
		req.StartingDifficulty = *payload.StartingDifficulty
	}
	if payload.TotalItems != nil {
		req.TotalItems = *payload.TotalItems
	}

	handle, err := h.manager.Start(c.UserContext(), req)
	if err != nil {
		if handle != nil {
			return sendErrorWithData(c, errorStatus(err), err.Error(), StartSessionResponse{SessionID: handle.SessionID})
		}
		return h.fail(c, err)
	}

	return sendSuccessWithStatus(c, fiber.StatusCreated, "session started", StartSessionResponse{
		SessionID: handle.SessionID,
		Item:      newItemView(handle.Item),
	})
}

func (h *SessionHandler) answer(c *fiber.Ctx) error {
	var payload AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	out, err := h.manager.Submit(c.UserContext(), c.Params("id"), payload.Answer)
	if err != nil && out == nil {
		return h.fail(c, err)
	}

	data := AnswerResponse{
		Response: newResponseView(out.Response),
		NextItem: newItemView(out.NextItem),
		Result:   out.Result,
	}
	if err != nil {
		// The answer was recorded but the session was aborted fetching the next item.
		return sendErrorWithData(c, errorStatus(err), err.Error(), data)
	}
	if out.Complete() {
		return sendSuccess(c, "session complete", data)
	}
	return sendSuccess(c, "answer recorded", data)
}

func (h *SessionHandler) abort(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.manager.Abort(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return h.respondSession(c, id, "session aborted")
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	id := c.Params("id")
	s, err := h.manager.Get(id)
	if errors.Is(err, assessment.ErrSessionNotFound) {
		if rec := h.archived(c, id); rec != nil {
			return sendSuccess(c, "archived session", newArchivedSessionView(rec))
		}
	}
	if err != nil {
		return h.fail(c, err)
	}
	return sendSuccess(c, "", newSessionView(s))
}

// archived returns the first archive record found for id. Archive errors
// are logged and the next archive is tried.
func (h *SessionHandler) archived(c *fiber.Ctx, id string) *assessment.SessionRecord {
	for _, a := range h.archives {
		rec, err := a.ArchivedSession(c.UserContext(), id)
		if err != nil {
			h.logger.Warn().Err(err).Str("session_id", id).Msg("session archive lookup failed")
			continue
		}
		if rec != nil {
			return rec
		}
	}
	return nil
}

func (h *SessionHandler) respondSession(c *fiber.Ctx, id, message string) error {
	s, err := h.manager.Get(id)
	if err != nil {
		return h.fail(c, err)
	}
	return sendSuccess(c, message, newSessionView(s))
}

func (h *SessionHandler) fail(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("session request failed")
	}
	return sendError(c, status, err.Error())
}

// errorStatus maps engine errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, assessment.ErrInvalidConfiguration), errors.Is(err, assessment.ErrEmptyAnswer):
		return fiber.StatusBadRequest
	case errors.Is(err, assessment.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, assessment.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, assessment.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
