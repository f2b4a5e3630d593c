package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/flowdeckhq/flowdeck/pkg/wizard"
)

func wizardOpenOptions(req OpenWizardRequest) wizard.OpenOptions {
	return wizard.OpenOptions{
		Owner:       req.Owner,
		FlowID:      req.FlowID,
		AgentNodeID: req.AgentNodeID,
		AppKey:      req.App,
	}
}

// OpenWizard starts a new wizard session, replacing any session the owner
// already had open.
func (h *APIHandlers) OpenWizard(c fiber.Ctx) error {
	var req OpenWizardRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.wizardManager.Open(c.Context(), req.Mode, wizardOpenOptions(req))
	if err != nil {
		return handleWizardError(c, err)
	}

	if len(req.Draft) > 0 {
		session, err = h.wizardManager.PatchDraft(c.Context(), session.ID, req.Draft)
		if err != nil {
			return handleWizardError(c, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(TransformSession(session))
}

func (h *APIHandlers) GetWizard(c fiber.Ctx) error {
	session, err := h.wizardManager.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleWizardError(c, err)
	}

	return c.JSON(TransformSession(session))
}

func (h *APIHandlers) PatchWizardDraft(c fiber.Ctx) error {
	var partial map[string]any
	if err := c.Bind().JSON(&partial); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	session, err := h.wizardManager.PatchDraft(c.Context(), c.Params("id"), partial)
	if err != nil {
		return handleWizardError(c, err)
	}

	return c.JSON(TransformSession(session))
}

// WizardNext advances the session one step. When the current step does not
// validate, the session comes back unchanged with field errors set and the
// response stays 200: step gating is state, not failure.
func (h *APIHandlers) WizardNext(c fiber.Ctx) error {
	session, err := h.wizardManager.Next(c.Context(), c.Params("id"))
	if err != nil {
		return handleWizardError(c, err)
	}

	return c.JSON(TransformSession(session))
}

func (h *APIHandlers) WizardPrev(c fiber.Ctx) error {
	session, err := h.wizardManager.Prev(c.Context(), c.Params("id"))
	if err != nil {
		return handleWizardError(c, err)
	}

	return c.JSON(TransformSession(session))
}

func (h *APIHandlers) WizardTest(c fiber.Ctx) error {
	session, err := h.wizardManager.RunTest(c.Context(), c.Params("id"))
	if err != nil {
		return handleWizardError(c, err)
	}

	return c.JSON(TransformSession(session))
}

// WizardConfirm commits the draft and closes the session either way.
func (h *APIHandlers) WizardConfirm(c fiber.Ctx) error {
	if err := h.wizardManager.Confirm(c.Context(), c.Params("id")); err != nil {
		return handleWizardError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CloseWizard(c fiber.Ctx) error {
	if err := h.wizardManager.Close(c.Context(), c.Params("id")); err != nil {
		return handleWizardError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
