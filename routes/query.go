package routes

import (
	"net/http"
	"time"

	"manuals-backend/models"
	"manuals-backend/services"
	"manuals-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupQueryRoutes(router *gin.Engine, query *services.QueryService) {
	router.POST("/query/", handleQuery(query))
	router.GET("/health/", handleHealth(query))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
}

func handleQuery(query *services.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request: "+err.Error())
			return
		}

		answer, err := query.Answer(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithServiceError[*services.ValidationError](c, err)
			return
		}
		c.JSON(http.StatusOK, models.QueryResponse{Response: answer})
	}
}

func handleHealth(query *services.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		if err := query.Health(ctx); err != nil {
			utils.RespondWithInternalError(c, "Health check failed: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
