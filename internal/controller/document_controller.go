package controller

import (
	"encoding/json"

	"owlynn-be/internal/dto"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/serverutils"
	"owlynn-be/internal/service"
	"owlynn-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload", c.Upload)
	r.Get("/search", c.Search)

	h := r.Group("/documents")
	h.Post("/upload", c.Upload)
	h.Get("/search", c.Search)
	h.Get("", c.GetAll)
	h.Get("/:id", c.Show)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperror.Validation("file is required")
	}

	var meta store.Metadata
	if raw := ctx.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return apperror.Validation("metadata must be a JSON object")
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()

	res, err := c.service.Upload(ctx.UserContext(), service.UploadInput{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   file,
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *documentController) Search(ctx *fiber.Ctx) error {
	req := dto.SearchRequest{Limit: 5}
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.Validation("invalid query parameters")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.UserContext(), req.Query, req.Limit)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *documentController) GetAll(ctx *fiber.Ctx) error {
	req := dto.ListDocumentsRequest{Limit: 20}
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.Validation("invalid query parameters")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), req.Limit, req.Offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return apperror.Validation("id must be a positive integer")
	}

	res, err := c.service.Get(ctx.UserContext(), int64(id))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get document", res))
}
