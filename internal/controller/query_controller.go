package controller

import (
	"datachat-be/internal/dto"
	"datachat-be/internal/pkg/serverutils"
	"datachat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	Diagnose(ctx *fiber.Ctx) error
}

type queryController struct {
	queryService service.IQueryService
}

func NewQueryController(queryService service.IQueryService) IQueryController {
	return &queryController{
		queryService: queryService,
	}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/query/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("ask", c.Ask)
	h.Post("analyze", c.Analyze)
	h.Post("diagnose", c.Diagnose)
}

func (c *queryController) Analyze(ctx *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	preview, err := c.queryService.Analyze(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success analyze query", preview))
}

func (c *queryController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	result, err := c.queryService.Ask(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success execute query", result))
}

func (c *queryController) Diagnose(ctx *fiber.Ctx) error {
	var req dto.DiagnoseRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	diag, err := c.queryService.Diagnose(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success diagnose query", diag))
}
