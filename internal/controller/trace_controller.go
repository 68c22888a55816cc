package controller

import (
	"visuallm-be/internal/dto"
	"visuallm-be/internal/pkg/serverutils"
	"visuallm-be/internal/service"
	"visuallm-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

type ITraceController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type traceController struct {
	service service.ITraceService
}

func NewTraceController(service service.ITraceService) ITraceController {
	return &traceController{service: service}
}

func (c *traceController) RegisterRoutes(r fiber.Router) {
	r.Get("/traces", c.List)
}

func (c *traceController) List(ctx *fiber.Ctx) error {
	var query dto.TraceQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperr.New(apperr.ErrInvalidRequest, "query", "%v", err)
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	traces, err := c.service.List(ctx.UserContext(), query.Component, query.Limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Traces retrieved", traces))
}
