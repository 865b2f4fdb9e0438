package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, projects ProjectDirectory, tasks TaskDirectory, auth Authenticator, db Pinger, logger *log.Logger) {
	e.GET("/api/projects", getProjects(projects, tasks, auth, logger))
	e.GET("/api/projects/:id", getProject(projects, auth))
	e.POST("/api/projects", createProject(projects, auth))
	e.PUT("/api/projects", upsertProject(projects, auth))
	e.PATCH("/api/projects/:id", updateProject(projects, auth))
	e.DELETE("/api/projects/:id", deleteProject(projects, auth))

	e.GET("/api/tasks", getTasks(tasks, auth, logger))
	e.POST("/api/tasks", createTask(tasks, auth))
	e.PUT("/api/tasks", upsertTask(tasks, auth))
	e.PATCH("/api/tasks/:id", updateTask(tasks, auth))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, auth))
	e.POST("/api/tasks/:id/toggle", toggleTask(tasks, auth))

	e.GET("/api/subscriptions/projects", streamProjects(projects, auth))
	e.GET("/api/subscriptions/tasks", streamTasks(tasks, auth))

	e.GET("/healthz", healthz(db))
}

func healthz(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// anything over the size cap.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.BadRequest("invalid body")
	}
	return nil
}

type projectRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func getProjects(projects ProjectDirectory, tasks TaskDirectory, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, logger, "/api/projects")
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := authenticate(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = writeError(c, authErr)
			return err
		}

		fetchStart := time.Now()
		owned, fetchErr := projects.List(ctx, userID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr)
			return err
		}

		if c.QueryParam("expand") == "tasks" {
			for i := range owned {
				nested, nestedErr := tasks.ListByProject(ctx, owned[i].ID)
				if nestedErr != nil {
					metrics.SetErrorStage("storage")
					err = writeError(c, nestedErr)
					return err
				}
				owned[i].Tasks = nested
			}
		}

		metrics.SetItemsReturned(len(owned))
		err = c.JSON(http.StatusOK, owned)
		return err
	}
}

// getProject responds 200 with a JSON null body when the project is absent or
// not owned by the caller, preserving the query surface's nullable read.
func getProject(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		project, err := projects.Get(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if project == nil {
			return c.JSON(http.StatusOK, nil)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func createProject(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req projectRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		var name, description string
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		project, err := projects.Create(c.Request().Context(), userID, req.ID, name, description)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func upsertProject(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req projectRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		project, err := projects.Upsert(c.Request().Context(), userID, req.ID, req.Name, req.Description)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func updateProject(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req projectRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		project, err := projects.Update(c.Request().Context(), userID, c.Param("id"), req.Name, req.Description)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func deleteProject(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		project, err := projects.Delete(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

type taskRequest struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Due         domain.Due      `json:"due"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

func getTasks(tasks TaskDirectory, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, logger, "/api/tasks")
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := authenticate(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = writeError(c, authErr)
			return err
		}

		filter := domain.TaskFilter{
			OwnerID:   userID,
			ProjectID: c.QueryParam("project_id"),
			DueDate:   c.QueryParam("dueDate"),
			Priority:  domain.Priority(c.QueryParam("priority")),
		}
		fetchStart := time.Now()
		matched, fetchErr := tasks.List(ctx, filter)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("filter")
			err = writeError(c, fetchErr)
			return err
		}
		metrics.SetItemsReturned(len(matched))
		err = c.JSON(http.StatusOK, matched)
		return err
	}
}

func createTask(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		task, err := tasks.Create(c.Request().Context(), userID, draftFromRequest(req))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func upsertTask(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		task, err := tasks.Upsert(c.Request().Context(), userID, draftFromRequest(req))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		upd := domain.TaskUpdate{
			Name:        req.Name,
			Description: req.Description,
			Due:         req.Due,
			Priority:    req.Priority,
		}
		task, err := tasks.Update(c.Request().Context(), userID, c.Param("id"), upd)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		task, err := tasks.Delete(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func toggleTask(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := authenticate(c, auth); err != nil {
			return writeError(c, err)
		}
		task, err := tasks.Toggle(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func draftFromRequest(req taskRequest) domain.TaskDraft {
	return domain.TaskDraft{
		ID:          req.ID,
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Due:         req.Due,
		Description: req.Description,
		Priority:    req.Priority,
	}
}
