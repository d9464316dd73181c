package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the bearer token against the identity provider and
// places the opaque actor identity on the request context. This service never
// stores user records; identity stays external.
func AuthMiddleware(client *casdoorsdk.Client, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing bearer token",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := client.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Token verification failed",
				"path", c.Request.URL.Path,
				"error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid token",
			})
			return
		}

		c.Set("actor_id", claims.User.Id)
		c.Set("actor_name", claims.User.Name)
		c.Set("actor_role", claims.User.Tag)
		c.Next()
	}
}

// StaticActorMiddleware injects a fixed actor identity. Used in development
// and tests where no identity provider is available.
func StaticActorMiddleware(actorID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("actor_id", actorID)
		c.Next()
	}
}
