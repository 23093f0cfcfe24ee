package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	templateNotFound    = "core/404.html"
	templateServerError = "core/500.html"
)

// renderBytes executes a page with the per-request values every layout needs.
func (s *Server) renderBytes(c *fiber.Ctx, name string, data fiber.Map) ([]byte, error) {
	if data == nil {
		data = fiber.Map{}
	}
	data["Template"] = name
	data["User"] = middleware.CurrentUser(c)
	data["Path"] = c.Path()
	data["Year"] = time.Now().Year()

	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	body, err := s.renderBytes(c, name, data)
	if err != nil {
		return err
	}
	return sendHTML(c, status, body)
}

func sendHTML(c *fiber.Ctx, status int, body []byte) error {
	c.Status(status).Type("html", "utf-8")
	return c.Send(body)
}

func (s *Server) staticPage(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.render(c, fiber.StatusOK, name, nil)
	}
}

// parseID reads a positive numeric route parameter; anything else is a missing page.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// ErrorHandler turns handler errors into pages: 404 for anything missing, a login redirect
// for anonymous access and the 500 page otherwise.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	case errors.As(err, &appErr):
		switch appErr.Code {
		case models.CodeNotFound:
			status = fiber.StatusNotFound
		case models.CodeUnauthorized:
			return c.Redirect(middleware.LoginURL(loginPath, c.OriginalURL()), fiber.StatusFound)
		case models.CodeForbidden:
			status = fiber.StatusForbidden
		case models.CodeValidation, models.CodeConflict:
			status = fiber.StatusBadRequest
		}
	}

	name := templateServerError
	if status == fiber.StatusNotFound {
		name = templateNotFound
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	if status != fiber.StatusNotFound && status < fiber.StatusInternalServerError {
		return c.Status(status).SendString(err.Error())
	}

	body, renderErr := s.renderBytes(c, name, nil)
	if renderErr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "Error page failed to render",
			slog.String("template", name),
			slog.String("error", renderErr.Error()),
		)
		return c.Status(status).SendString(fiber.ErrInternalServerError.Message)
	}
	return sendHTML(c, status, body)
}
