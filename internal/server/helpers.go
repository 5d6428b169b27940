package server

import (
	"errors"
	"strconv"

	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten tells a handler that a helper already sent the error
// response. The handler returns nil so the ErrorHandler does not render it
// a second time.
var errResponseWritten = errors.New("response already written")

// parseID reads the profile ID in route parameter param. IDs start at 1.
func parseID(c *fiber.Ctx, param string) (uint64, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err == nil && id > 0 {
		return id, nil
	}
	_ = models.RespondWithAppError(c, models.NewInvalidArgumentError("Invalid profile ID "+strconv.Quote(raw)))
	return 0, errResponseWritten
}

// parseBody decodes the JSON request body into v.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		_ = models.RespondWithAppError(c, models.NewInvalidArgumentError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// errorHandler renders errors that escape the handlers in the API error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return models.RespondWithAppError(c, err)
}
