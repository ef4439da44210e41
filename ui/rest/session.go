package rest

import (
	domainSession "github.com/AzielCF/az-reply/domains/session"
	"github.com/AzielCF/az-reply/pkg/msgworker"
	"github.com/AzielCF/az-reply/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Session struct {
	Service domainSession.IConnectionUsecase
	Pool    *msgworker.Pool
}

func InitRestSession(app fiber.Router, service domainSession.IConnectionUsecase, pool *msgworker.Pool) Session {
	handler := Session{Service: service, Pool: pool}

	group := app.Group("/session")
	group.Get("/status", handler.Status)
	group.Post("/reconnect", handler.Reconnect)
	group.Post("/qr", handler.RegenerateQR)
	group.Post("/logout", handler.Logout)
	group.Get("/workers", handler.WorkerStats)

	return handler
}

func (h *Session) Status(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session status retrieved",
		Results: h.Service.Status(),
	})
}

func (h *Session) Reconnect(c *fiber.Ctx) error {
	if err := h.Service.ForceReconnect(c.UserContext()); err != nil {
		return c.Status(429).JSON(utils.ResponseData{
			Status:  429,
			Code:    "RECONNECT_REJECTED",
			Message: err.Error(),
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Reconnect started",
	})
}

func (h *Session) RegenerateQR(c *fiber.Ctx) error {
	if err := h.Service.RegenerateQR(c.UserContext()); err != nil {
		return c.Status(409).JSON(utils.ResponseData{
			Status:  409,
			Code:    "QR_REJECTED",
			Message: err.Error(),
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "QR pairing restarted, watch the websocket for codes",
	})
}

func (h *Session) Logout(c *fiber.Ctx) error {
	if err := h.Service.Logout(c.UserContext()); err != nil {
		return c.Status(409).JSON(utils.ResponseData{
			Status:  409,
			Code:    "LOGOUT_REJECTED",
			Message: err.Error(),
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Device unlinked, scan a new QR to pair again",
	})
}

func (h *Session) WorkerStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "Worker pool not running",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool stats retrieved",
		Results: h.Pool.GetStats(),
	})
}
