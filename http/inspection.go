package http

import (
	"log/slog"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/engine"
	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// StartInspectionRequest is the request payload for starting an inspection.
// CarryForward, when present, replaces the keys derived from the asset's
// last completed inspection; an empty list disables carry-forward.
type StartInspectionRequest struct {
	TemplateID      string              `json:"templateId" validate:"required,max=100"`
	TemplateVersion int                 `json:"templateVersion" validate:"gte=0"`
	AssetID         string              `json:"assetId" validate:"required,max=100"`
	TechnicianID    string              `json:"technicianId" validate:"max=100"`
	CarryForward    []liftcheck.ItemKey `json:"carryForward"`
}

func (s *Server) handleStartInspection(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var req StartInspectionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	technicianID := req.TechnicianID
	if technicianID == "" {
		technicianID = liftcheck.TechnicianIDFromContext(ctx)
	}

	inspection, created, err := s.engine.Start(ctx, engine.StartRequest{
		TemplateID:      req.TemplateID,
		TemplateVersion: req.TemplateVersion,
		AssetID:         req.AssetID,
		TechnicianID:    technicianID,
		CarryForward:    req.CarryForward,
	})
	if err != nil {
		return err
	}

	if !created {
		s.log(c).Debug("resuming active inspection",
			slog.String("inspection_id", inspection.ID.String()),
			slog.String("asset_id", inspection.AssetID),
		)
		return RespondOK(c, inspection)
	}
	return RespondCreated(c, inspection)
}

func (s *Server) handleGetInspection(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	inspection, err := s.engine.Get(ctx, inspectionID)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

// inspectionFilter builds a filter from the asset_id, technician_id,
// status, offset and limit query parameters.
func inspectionFilter(c echo.Context) (liftcheck.InspectionFilter, error) {
	var filter liftcheck.InspectionFilter
	if v := c.QueryParam("asset_id"); v != "" {
		filter.AssetID = &v
	}
	if v := c.QueryParam("technician_id"); v != "" {
		filter.TechnicianID = &v
	}
	if v := c.QueryParam("status"); v != "" {
		status := liftcheck.InspectionStatus(v)
		if !status.IsValid() {
			return filter, liftcheck.Invalid("Unknown inspection status %q", v)
		}
		filter.Status = &status
	}

	var err error
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit", defaultListLimit); err != nil {
		return filter, err
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return filter, nil
}

func (s *Server) handleListInspections(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	filter, err := inspectionFilter(c)
	if err != nil {
		return err
	}

	inspections, total, err := s.engine.List(ctx, filter)
	if err != nil {
		return err
	}

	return RespondList(c, inspections, total, filter.Offset, filter.Limit)
}

func (s *Server) handleInspectionStatus(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	report, err := s.engine.Report(ctx, inspectionID)
	if err != nil {
		return err
	}

	return RespondOK(c, report)
}

// SetCraneStatusRequest is the request payload for choosing the asset's
// operational status.
type SetCraneStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleSetCraneStatus(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req SetCraneStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.engine.SetCraneStatus(ctx, inspectionID, liftcheck.OperationalStatus(req.Status))
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleCompleteInspection(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	inspection, err := s.engine.Complete(ctx, inspectionID)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleReopenInspection(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	inspection, err := s.engine.Reopen(ctx, inspectionID)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}
