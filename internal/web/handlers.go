package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type listResponse struct {
	Tasks []model.Task `json:"tasks"`
	Count int          `json:"count"`
	Label string       `json:"label"`
}

type createRequest struct {
	Title    string  `json:"title"`
	Due      *string `json:"due"`
	Priority string  `json:"priority"`
}

type patchRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

type themeBody struct {
	Theme string `json:"theme"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

func newListResponse(tasks []model.Task) listResponse {
	return listResponse{Tasks: tasks, Count: len(tasks), Label: view.CountLabel(len(tasks))}
}

func (s *Server) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.project(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, newListResponse(tasks))
}

// project applies the filter, search, and order query parameters.
func (s *Server) project(c echo.Context) ([]model.Task, error) {
	filter, err := view.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return nil, err
	}
	order, err := view.ParseOrder(c.QueryParam("order"))
	if err != nil {
		return nil, err
	}
	return view.ProjectOrdered(s.store.Tasks(), filter, c.QueryParam("search"), order), nil
}

func (s *Server) createTask(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	t, err := s.store.Create(c.Request().Context(), req.Title, req.Due, model.Priority(req.Priority))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) patchTask(c echo.Context) error {
	id := c.Param("id")
	if _, ok := s.store.Get(id); !ok {
		return notFound(c, id)
	}
	var req patchRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Title == nil && req.Completed == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "nothing to update (expected title and/or completed)"})
	}

	found, err := s.store.Patch(c.Request().Context(), id, req.Title, req.Completed)
	if err != nil {
		return s.storeError(c, err)
	}
	t, ok := s.store.Get(id)
	if !found || !ok {
		return notFound(c, id)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(c echo.Context) error {
	id := c.Param("id")
	ok, err := s.store.Delete(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	if !ok {
		return notFound(c, id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) duplicateTask(c echo.Context) error {
	id := c.Param("id")
	t, ok, err := s.store.Duplicate(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	if !ok {
		return notFound(c, id)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) completeAll(c echo.Context) error {
	if err := s.store.CompleteAll(c.Request().Context()); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, newListResponse(view.Project(s.store.Tasks(), view.FilterAll, "")))
}

func (s *Server) clearCompleted(c echo.Context) error {
	n, err := s.store.ClearCompleted(c.Request().Context())
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, removedResponse{Removed: n})
}

// deleteAll requires confirm=true; the store itself never asks.
func (s *Server) deleteAll(c echo.Context) error {
	confirm, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if !confirm {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "refusing to delete all tasks without confirm=true"})
	}
	n, err := s.store.DeleteAll(c.Request().Context())
	if err != nil {
		return s.storeError(c, err)
	}
	s.log.WithField("removed", n).Info("deleted all tasks")
	return c.JSON(http.StatusOK, removedResponse{Removed: n})
}

// putOrder reconciles a visible order (ids) into the canonical order and returns the
// full list in canonical order.
func (s *Server) putOrder(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.store.Reorder(c.Request().Context(), req.IDs); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, newListResponse(s.store.Tasks()))
}

func (s *Server) getTheme(c echo.Context) error {
	t, err := store.LoadTheme(c.Request().Context(), s.blobs, s.themeKey)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, themeBody{Theme: string(t)})
}

func (s *Server) putTheme(c echo.Context) error {
	var req themeBody
	if err := c.Bind(&req); err != nil {
		return err
	}
	t, err := store.ParseTheme(req.Theme)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: "theme"})
	}
	if err := store.SaveTheme(c.Request().Context(), s.blobs, s.themeKey, t); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, themeBody{Theme: string(t)})
}

// events streams the canonical task list as server-sent events: once on connect, then after
// every committed change.
func (s *Server) events(c echo.Context) error {
	ch, cancel := s.hub.subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		tasks := s.store.Tasks()
		b, err := sonic.ConfigStd.Marshal(newListResponse(tasks))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: tasks\ndata: %s\n\n", b); err != nil {
			return err
		}
		w.Flush()
		return nil
	}

	if err := send(); err != nil {
		return nil
	}
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := send(); err != nil {
				return nil
			}
		}
	}
}

func (s *Server) storeError(c echo.Context, err error) error {
	var ve *store.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: ve.Msg, Field: ve.Field})
	}
	s.log.WithError(err).Error("store operation failed")
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func notFound(c echo.Context, id string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("task not found: %s", id)})
}
