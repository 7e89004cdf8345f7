package api

import "github.com/gofiber/fiber/v2"

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// sendSuccess sends a successful JSON response with a message.
func sendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return sendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// sendSuccessWithStatus sends a success payload using the provided HTTP status code.
func sendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// sendError sends an error JSON response with the given status code.
func sendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}

// sendErrorWithData sends an error JSON response that still carries a payload.
func sendErrorWithData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Data:    data,
		Message: message,
	})
}
