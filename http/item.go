package http

import (
	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleMarkPass(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	inspection, err := s.engine.MarkPass(ctx, inspectionID, key)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

// DefectToggleResponse is returned by the defect toggle. When Committed is
// false, Item holds an unsaved draft and the inspection is unchanged.
type DefectToggleResponse struct {
	Inspection *liftcheck.Inspection `json:"inspection"`
	Item       liftcheck.ItemResult  `json:"item"`
	Committed  bool                  `json:"committed"`
}

func (s *Server) handleToggleDefect(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	toggle, err := s.engine.MarkDefect(ctx, inspectionID, key)
	if err != nil {
		return err
	}

	return RespondOK(c, DefectToggleResponse{
		Inspection: toggle.Inspection,
		Item:       toggle.Item,
		Committed:  toggle.Committed,
	})
}

// SaveDefectRequest is the request payload for committing a defect. Photos
// are the references returned by photo staging or already on the defect.
type SaveDefectRequest struct {
	DefectType string            `json:"defectType" validate:"max=50"`
	Severity   string            `json:"severity" validate:"required"`
	Timeframe  string            `json:"rectificationTimeframe" validate:"required"`
	Notes      string            `json:"notes" validate:"max=2000"`
	Photos     []liftcheck.Photo `json:"photos"`
}

func (s *Server) handleSaveDefect(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	var req SaveDefectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.engine.SaveDefectDetails(ctx, inspectionID, key, liftcheck.DefectDetails{
		DefectType: liftcheck.DefectType(req.DefectType),
		Severity:   liftcheck.Severity(req.Severity),
		Timeframe:  liftcheck.RectificationTimeframe(req.Timeframe),
		Notes:      req.Notes,
		Photos:     req.Photos,
	})
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

// AnswerItemRequest is the request payload for a non-checklist value. Only
// the field matching the item's kind is read.
type AnswerItemRequest struct {
	SelectedValue *string  `json:"selectedValue" validate:"omitempty,max=200"`
	NumericValue  *float64 `json:"numericValue"`
	DateValue     *string  `json:"dateValue" validate:"omitempty,datetime=2006-01-02"`
	TextValue     *string  `json:"textValue" validate:"omitempty,max=4000"`
	Comment       *string  `json:"comment" validate:"omitempty,max=2000"`
}

func (s *Server) handleAnswerItem(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	var req AnswerItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.engine.AnswerItem(ctx, inspectionID, key, liftcheck.Answer{
		SelectedValue: req.SelectedValue,
		NumericValue:  req.NumericValue,
		DateValue:     req.DateValue,
		TextValue:     req.TextValue,
		Comment:       req.Comment,
	})
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

func (s *Server) handleClearItem(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	inspection, err := s.engine.ClearItem(ctx, inspectionID, key)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}

// SetQuoteStatusRequest is the request payload for flagging a defect for quoting.
type SetQuoteStatusRequest struct {
	QuoteStatus string `json:"quoteStatus" validate:"required"`
}

func (s *Server) handleSetQuoteStatus(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	var req SetQuoteStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inspection, err := s.engine.SetQuoteStatus(ctx, inspectionID, key, liftcheck.QuoteStatus(req.QuoteStatus))
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}
