package http

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/engine"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

// photoField is the multipart field that carries photo files.
const photoField = "photos"

// withUploadTimeout creates a context with the longer upload timeout.
func withUploadTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), UploadTimeout)
}

// readPhotoFiles opens every file in the photos field. The content type is
// sniffed from the bytes rather than trusted from the client. The returned
// cleanup closes the files and removes any temporary copies.
func readPhotoFiles(c echo.Context) ([]engine.PhotoFile, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, liftcheck.Invalid("Expected a multipart form with %s", photoField)
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = form.RemoveAll()
	}

	headers := form.File[photoField]
	if len(headers) == 0 {
		cleanup()
		return nil, func() {}, liftcheck.Invalid("At least one photo is required")
	}

	files := make([]engine.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, liftcheck.Internal("Failed to read uploaded file", err)
		}
		opened = append(opened, f)

		mtype, err := mimetype.DetectReader(f)
		if err != nil {
			cleanup()
			return nil, func() {}, liftcheck.Internal("Failed to read uploaded file", err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			cleanup()
			return nil, func() {}, liftcheck.Internal("Failed to read uploaded file", err)
		}

		files = append(files, engine.PhotoFile{
			Filename:    fh.Filename,
			ContentType: mtype.String(),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, cleanup, nil
}

func (s *Server) handleAddPhotos(c echo.Context) error {
	ctx, cancel := withUploadTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	target := engine.TargetItem
	if v := c.QueryParam("target"); v != "" {
		target = engine.PhotoTarget(v)
	}
	if !target.IsValid() {
		return liftcheck.Invalid("target must be item, defect or unresolved")
	}

	files, cleanup, err := readPhotoFiles(c)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := s.engine.AddPhotos(ctx, inspectionID, key, target, files)
	if err != nil {
		return err
	}

	return RespondOK(c, batch)
}

func (s *Server) handleStagePhotos(c echo.Context) error {
	ctx, cancel := withUploadTimeout(c)
	defer cancel()

	inspectionID, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	files, cleanup, err := readPhotoFiles(c)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := s.engine.StagePhotos(ctx, inspectionID, files)
	if err != nil {
		return err
	}

	return RespondOK(c, batch)
}

// handleResolveCarryForward records the re-check of a previously reported
// defect. The choice is the "status" form value; photos are optional.
func (s *Server) handleResolveCarryForward(c echo.Context) error {
	ctx, cancel := withUploadTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}

	choice := liftcheck.UnresolvedStatus(c.FormValue("status"))
	if !choice.IsValid() {
		return liftcheck.ErrorWithFields(map[string]string{
			"status": "must be still_unresolved or resolved",
		})
	}

	var files []engine.PhotoFile
	if form, err := c.MultipartForm(); err == nil && len(form.File[photoField]) > 0 {
		var cleanup func()
		files, cleanup, err = readPhotoFiles(c)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	batch, err := s.engine.ResolveCarryForward(ctx, inspectionID, key, choice, files)
	if err != nil {
		return err
	}

	return RespondOK(c, batch)
}

func (s *Server) handleRemovePhoto(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	inspectionID, key, err := requireItemParams(c)
	if err != nil {
		return err
	}
	photoID, err := requireUUIDParam(c, "photoId")
	if err != nil {
		return err
	}

	inspection, err := s.engine.RemovePhoto(ctx, inspectionID, key, photoID)
	if err != nil {
		return err
	}

	return RespondOK(c, inspection)
}
