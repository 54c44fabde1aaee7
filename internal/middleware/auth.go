package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/formcraft-io/formcraft/internal/modules/serializer"
	"github.com/formcraft-io/formcraft/internal/pkg/utils/tokens"
)

// UserIDKey is the gin context key holding the authenticated uuid.UUID.
const UserIDKey = "user_id"

// UserAuth verifies the HS256 bearer token and stores the caller's id under UserIDKey.
// Any token problem is reported as 401 with the same message.
func UserAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := otel.Tracer("middleware").Start(c.Request.Context(), "user_auth",
			trace.WithAttributes(attribute.String("middleware", "user_auth")))
		defer span.End()

		raw, ok := tokens.ParseBearer(c.GetHeader("Authorization"))
		if !ok {
			span.SetAttributes(attribute.Bool("authenticated", false))
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr(""))
			return
		}

		userID, err := tokens.Verify(cfg.Auth.JWTSecret, cfg.Auth.Issuer, raw)
		if err != nil {
			span.SetAttributes(attribute.Bool("authenticated", false))
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Invalid access token"))
			return
		}

		span.SetAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Bool("authenticated", true),
		)
		if root := trace.SpanFromContext(c.Request.Context()); root.SpanContext().IsValid() {
			root.SetAttributes(attribute.String("user_id", userID.String()))
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the id stored by UserAuth.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
