package api

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskdeck/domain"
	"taskdeck/pubsub"
)

// sseAuthenticate also accepts a token query parameter because EventSource
// clients cannot set request headers.
func sseAuthenticate(c echo.Context, auth Authenticator) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			authHeader = "Bearer " + token
		}
	}
	userID, err := auth.UserIDFromAuthHeader(authHeader)
	if err != nil {
		if errors.Is(err, errMissingAuthorization) {
			return "", domain.Unauthenticated("Missing Authorization header")
		}
		return "", domain.Unauthenticated("Invalid or expired token")
	}
	return userID, nil
}

// streamProjects delivers the caller's own project change events over SSE.
// Filtering happens server-side so a subscriber never observes another
// owner's projects.
func streamProjects(projects ProjectDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := sseAuthenticate(c, auth)
		if err != nil {
			return writeError(c, err)
		}
		ctx := c.Request().Context()
		events := pubsub.Filter(ctx, projects.SubscribeChanged(ctx), func(ev domain.ProjectEvent) bool {
			return ev.Data.OwnerID == userID
		})
		return streamEvents(c, events)
	}
}

// streamTasks delivers change events for tasks under the project named in the
// subscription arguments. The filter is by project id only, matching the
// subscription surface: knowing a project id grants visibility of its task
// events.
func streamTasks(tasks TaskDirectory, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := sseAuthenticate(c, auth); err != nil {
			return writeError(c, err)
		}
		projectID := c.QueryParam("project_id")
		if projectID == "" {
			return writeError(c, domain.BadRequest("project_id required"))
		}
		ctx := c.Request().Context()
		events := pubsub.Filter(ctx, tasks.SubscribeChanged(ctx), func(ev domain.TaskEvent) bool {
			return ev.Data.ProjectID == projectID
		})
		return streamEvents(c, events)
	}
}

// streamEvents writes each event as an SSE data frame until the client
// disconnects or the source closes.
func streamEvents[T any](c echo.Context, events <-chan T) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-events:
			if !open {
				return nil
			}
			data, err := sonic.ConfigStd.Marshal(ev)
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
