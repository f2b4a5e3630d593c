package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/flowdeckhq/flowdeck/pkg/persistence"
	"github.com/flowdeckhq/flowdeck/pkg/services"
	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsFlowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("flow_not_found").
			WithDetail("flow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsNodeNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("node_not_found").
			WithDetail("node not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsCredentialNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("credential_not_found").
			WithDetail("credential not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	default:
		// Log unexpected errors but don't expose details
		return internalError(c, err)
	}
}

// handleWizardError maps wizard state machine errors onto problem responses.
func handleWizardError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		return notFound(c, "wizard session not found")

	case errors.Is(err, wizard.ErrUnknownMode),
		errors.Is(err, wizard.ErrFlowRequired),
		errors.Is(err, wizard.ErrAgentNodeRequired):
		return badRequest(c, err.Error())

	case errors.Is(err, wizard.ErrNotTestStep),
		errors.Is(err, wizard.ErrNotLastStep),
		errors.Is(err, wizard.ErrTestInProgress):
		return conflict(c, err.Error())

	default:
		return handleServiceError(c, err)
	}
}
