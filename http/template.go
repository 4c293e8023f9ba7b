package http

import (
	"strconv"

	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleListTemplates(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	templates, err := s.templates.FindTemplates(ctx)
	if err != nil {
		return err
	}

	return RespondList(c, templates, len(templates), 0, 0)
}

func (s *Server) handleGetTemplate(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}

	t, err := s.templates.FindTemplate(ctx, id)
	if err != nil {
		return err
	}

	return RespondOK(c, t)
}

func (s *Server) handleGetTemplateVersion(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		return liftcheck.Invalid("Version must be a positive integer")
	}

	t, err := s.templates.FindTemplateVersion(ctx, id, version)
	if err != nil {
		return err
	}

	return RespondOK(c, t)
}
