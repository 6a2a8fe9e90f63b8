package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddlewareWithOrigins allows the given origins. "*" allows any origin
// without credentials.
func CORSMiddlewareWithOrigins(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			config.AllowAllOrigins = true
			return cors.New(config)
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return cors.New(config)
	}

	config.AllowOrigins = origins
	config.AllowCredentials = true
	return cors.New(config)
}
