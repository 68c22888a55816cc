package controller

import (
	"sort"

	"visuallm-be/internal/dto"
	"visuallm-be/internal/pkg/logger"
	"visuallm-be/internal/pkg/serverutils"
	"visuallm-be/internal/service"
	"visuallm-be/pkg/component"
	"visuallm-be/pkg/events"

	"github.com/gofiber/fiber/v2"
)

type IComponentController interface {
	RegisterRoutes(r fiber.Router)
	Components(ctx *fiber.Ctx) error
	Routes(ctx *fiber.Ctx) error
}

type componentController struct {
	registry  *component.Registry
	publisher service.IPublisherService
	logger    logger.ILogger
}

func NewComponentController(registry *component.Registry, publisher service.IPublisherService, log logger.ILogger) IComponentController {
	return &componentController{registry: registry, publisher: publisher, logger: log}
}

// RegisterRoutes mounts every registered component endpoint plus the description
// routes used by the frontend on load.
func (c *componentController) RegisterRoutes(r fiber.Router) {
	r.Get("/components", c.Components)
	r.Get("/routes", c.Routes)
	for _, rt := range c.registry.Routes() {
		r.Add(string(rt.Method), rt.Path, c.invoke(rt))
	}
}

func (c *componentController) Components(ctx *fiber.Ctx) error {
	described := c.registry.Describe()
	res := dto.ComponentListResponse{
		Result:     "success",
		Components: make([]dto.ComponentResponse, 0, len(described)),
	}
	for _, d := range described {
		elements := make([]map[string]any, 0, len(d.Elements))
		for _, p := range d.Elements {
			elements = append(elements, p)
		}
		res.Components = append(res.Components, dto.ComponentResponse{
			Name:     d.Name,
			Title:    d.Title,
			Elements: elements,
		})
	}
	return ctx.JSON(res)
}

func (c *componentController) Routes(ctx *fiber.Ctx) error {
	routes := c.registry.Routes()
	res := make([]dto.RouteResponse, 0, len(routes))
	for _, rt := range routes {
		res = append(res, dto.RouteResponse{
			Component: rt.Component,
			Method:    string(rt.Method),
			Path:      rt.Path,
			FetchAll:  rt.FetchAll,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Routes retrieved", res))
}

func (c *componentController) invoke(rt component.Route) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		resp, err := c.registry.Invoke(rt.Method, rt.Path, component.Request{
			Ctx:      ctx.UserContext(),
			Body:     ctx.Body(),
			Validate: serverutils.ValidateRequest,
		})
		if err != nil {
			return err
		}
		c.publish(ctx, rt, resp)
		return ctx.JSON(resp.Body())
	}
}

func (c *componentController) publish(ctx *fiber.Ctx, rt component.Route, resp component.Response) {
	if c.publisher == nil {
		return
	}
	changed := make([]string, 0, len(resp.ChangedElements))
	for id := range resp.ChangedElements {
		changed = append(changed, id)
	}
	sort.Strings(changed)

	event := events.NewInteractionEvent(resp.Component, string(rt.Method), rt.Path, changed, resp.Fields)
	if err := c.publisher.Publish(ctx.UserContext(), event); err != nil {
		c.logger.Warn("ComponentController", "Failed to publish interaction", map[string]interface{}{
			"path":  rt.Path,
			"error": err.Error(),
		})
	}
}
