package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdeck/domain"
)

// errorResponse is the client-visible error shape: a message and a stable
// machine-readable code.
type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// writeError maps domain errors onto HTTP responses. Anything outside the
// closed domain set is logged server-side and replaced with a generic 500 so
// internals never leak.
func writeError(c echo.Context, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return c.JSON(httpStatus(derr), errorResponse{Message: derr.Message, Code: derr.Code})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error", Code: 500})
}

func httpStatus(derr *domain.Error) int {
	switch derr.Kind {
	case domain.KindUnauthenticated, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// authenticate resolves the caller from the Authorization header, translating
// verifier errors into the client-visible unauthenticated messages.
func authenticate(c echo.Context, auth Authenticator) (string, error) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		if errors.Is(err, errMissingAuthorization) {
			return "", domain.Unauthenticated("Missing Authorization header")
		}
		return "", domain.Unauthenticated("Invalid or expired token")
	}
	return userID, nil
}
