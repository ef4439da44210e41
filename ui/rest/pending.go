package rest

import (
	domainPending "github.com/AzielCF/az-reply/domains/pending"
	"github.com/AzielCF/az-reply/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Pending struct {
	Service domainPending.IPendingUsecase
}

func InitRestPending(app fiber.Router, service domainPending.IPendingUsecase) Pending {
	handler := Pending{Service: service}

	group := app.Group("/pending")
	group.Get("/", handler.List)
	group.Post("/:id/resolve", handler.Resolve)

	return handler
}

func (h *Pending) List(c *fiber.Ctx) error {
	items := h.Service.List()
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pending messages retrieved",
		Results: map[string]any{
			"count": len(items),
			"items": items,
		},
	})
}

type resolvePendingRequest struct {
	Response string `json:"response"`
}

func (h *Pending) Resolve(c *fiber.Ctx) error {
	id := c.Params("id")

	var request resolvePendingRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	if request.Response == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "VALIDATION_ERROR",
			Message: "response is required",
		})
	}

	found, err := h.Service.Resolve(c.UserContext(), id, request.Response)
	utils.PanicIfNeeded(err)
	if !found {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "No pending message with that id",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pending message resolved and trigger learned",
	})
}
