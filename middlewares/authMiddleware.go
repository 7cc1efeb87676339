package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/models"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware validates the bearer token and loads the caller's identity
// (user id, role, business, store scope) into the request context. Requests
// without a token pass through; handlers that need identity fail on the
// missing context values.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetUserRoleInContext(ctx, claim.Role)
		ctx = utils.SetBusinessIdInContext(ctx, claim.BusinessId)
		ctx = utils.SetStoreIdInContext(ctx, claim.StoreId)
		if claim.Role == string(models.UserRoleSuperUser) {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}

		// resolve the display name once per request, cache-first
		var user models.User
		exists, err := config.GetRedisObject("User:"+utils.GetType(user)+":"+auth, &user)
		if err == nil && exists {
			ctx = utils.SetUserNameInContext(ctx, user.Name)
			ctx = utils.SetUsernameInContext(ctx, user.Username)
		} else if db := config.GetDB(); db != nil {
			if err := db.WithContext(ctx).First(&user, claim.ID).Error; err == nil {
				ctx = utils.SetUserNameInContext(ctx, user.Name)
				ctx = utils.SetUsernameInContext(ctx, user.Username)
				_ = config.SetRedisObject("User:"+utils.GetType(user)+":"+auth, &user, utils.GetCacheLifespan())
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CorrelationMiddleware stamps every request with a correlation id,
// propagating one supplied by the caller.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}
