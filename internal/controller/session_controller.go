package controller

import (
	"datachat-be/internal/pkg/serverutils"
	"datachat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type sessionController struct {
	queryService service.IQueryService
}

func NewSessionController(queryService service.IQueryService) ISessionController {
	return &sessionController{
		queryService: queryService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":id", c.Get)
	h.Get(":id/history", c.History)
	h.Delete(":id", c.End)
}

func (c *sessionController) Get(ctx *fiber.Ctx) error {
	summary, err := c.queryService.GetSession(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", summary))
}

func (c *sessionController) History(ctx *fiber.Ctx) error {
	turns, err := c.queryService.History(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session history", turns))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	if err := c.queryService.EndSession(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success end session", nil))
}
