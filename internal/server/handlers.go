package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

// ExtractRequest is the body of both extraction endpoints.
type ExtractRequest struct {
	Text     string `json:"text" validate:"required"`
	SaveNote bool   `json:"save_note"`
}

// MarkDoneRequest is the body of POST /action-items/:id/done. Done defaults to true.
type MarkDoneRequest struct {
	Done *bool `json:"done"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleCreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := s.service.CreateNote(c.Request().Context(), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, created)
}

func (s *Server) handleListNotes(c echo.Context) error {
	notes, err := s.service.ListNotes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) handleGetNote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	found, err := s.service.GetNote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := s.service.Extract(c.Request().Context(), req.Text, req.SaveNote)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleExtractWithModel(c echo.Context) error {
	var req ExtractRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := s.service.ExtractWithModel(c.Request().Context(), req.Text, req.SaveNote)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListActionItems(c echo.Context) error {
	var noteID *int64
	if raw := c.QueryParam("note_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "note_id must be an integer")
		}
		noteID = &id
	}

	items, err := s.service.ListActionItems(c.Request().Context(), noteID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleMarkDone(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req MarkDoneRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return err
	}
	done := true
	if req.Done != nil {
		done = *req.Done
	}

	result, err := s.service.MarkActionItemDone(c.Request().Context(), id, done)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	return id, nil
}
