package rest

import (
	domainTrigger "github.com/AzielCF/az-reply/domains/trigger"
	"github.com/AzielCF/az-reply/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Trigger struct {
	Service domainTrigger.ITriggerUsecase
}

func InitRestTrigger(app fiber.Router, service domainTrigger.ITriggerUsecase) Trigger {
	handler := Trigger{Service: service}

	group := app.Group("/triggers")
	group.Get("/", handler.List)
	group.Put("/", handler.Upsert)
	group.Delete("/:trigger", handler.Remove)
	group.Post("/reload", handler.Reload)

	return handler
}

func (h *Trigger) List(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Known triggers retrieved",
		Results: map[string]any{
			"responses":     h.Service.GetAll(),
			"mediaHandlers": h.Service.MediaHandlers(),
		},
	})
}

type upsertTriggerRequest struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
}

func (h *Trigger) Upsert(c *fiber.Ctx) error {
	var request upsertTriggerRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	if request.Trigger == "" || request.Response == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "VALIDATION_ERROR",
			Message: "trigger and response are required",
		})
	}

	utils.PanicIfNeeded(h.Service.Upsert(request.Trigger, request.Response))
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Trigger saved",
	})
}

func (h *Trigger) Remove(c *fiber.Ctx) error {
	trigger := c.Params("trigger")

	removed, err := h.Service.Remove(trigger)
	utils.PanicIfNeeded(err)
	if !removed {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "Unknown trigger",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Trigger removed",
	})
}

func (h *Trigger) Reload(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.Service.Reload())
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Trigger document reloaded",
		Results: map[string]any{"count": len(h.Service.GetAll())},
	})
}
