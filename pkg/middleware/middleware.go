// Package middleware holds the echo middleware of the in-process API used in
// tests.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "

	// UserIDKey is where BearerAuth leaves the caller's user id.
	UserIDKey = "user_id"
)

// TokenLookup resolves a bearer token to a user id.
type TokenLookup func(token string) (userID string, ok bool)

// BearerAuth rejects requests without a known bearer token the way the
// bookstore API does: 401 with {"message": "Unauthenticated."}.
func BearerAuth(lookup TokenLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if !strings.HasPrefix(authorization, bearer) {
				return unauthenticated(c)
			}
			userID, ok := lookup(strings.TrimPrefix(authorization, bearer))
			if !ok {
				return unauthenticated(c)
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.DebugLevel
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = zapcore.WarnLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
