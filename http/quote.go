package http

import (
	"github.com/labstack/echo/v4"
)

// handleListQuotes lists Quote Now defects across inspections. It accepts
// the same query parameters as the inspection list.
func (s *Server) handleListQuotes(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	filter, err := inspectionFilter(c)
	if err != nil {
		return err
	}

	candidates, err := s.engine.QuoteCandidates(ctx, filter)
	if err != nil {
		return err
	}

	return RespondList(c, candidates, len(candidates), filter.Offset, filter.Limit)
}
