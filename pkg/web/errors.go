package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/fimbul-io/sporing/pkg/person"
)

var (
	errMissingID = errors.New("Please set vedtaksperiodeId in url")
	errBadID     = errors.New("Please use a valid UUID")
	errBadEtter  = errors.New("Please use a valid timestamp")
	errBadPID    = errors.New("Please set pid in url (numbers only)")
)

// badRequest answers user errors in plain text. These are caller mistakes,
// not incidents, so nothing is logged beyond the access log.
func badRequest(c fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).SendString(detail)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// personError maps failures from the person lookup path: validation errors
// stay 400, directory failures surface as 502 with the upstream status, and
// anything else is internal.
func (h *Handlers) personError(c fiber.Ctx, err error) error {
	if errors.Is(err, errBadPID) {
		return badRequest(c, err.Error())
	}

	var directoryErr *person.DirectoryError
	if errors.As(err, &directoryErr) {
		h.logger.ErrorContext(c.Context(), "Person directory lookup failed",
			"status_code", directoryErr.StatusCode)

		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("directory_unavailable").
			WithDetail(directoryErr.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)
	}

	return internalError(c, err)
}
