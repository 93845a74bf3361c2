package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (app *application) routes() http.Handler {
	if app.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// simple logger middleware that uses zap
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		app.Logger.Sugar().Infow("http", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "duration", time.Since(start))
	})

	r.Use(app.corsMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/signup", app.Handler.SignUp)
		v1.POST("/login", app.Handler.Login)
	}

	protected := v1.Group("/")
	protected.Use(app.AuthMiddleware())
	{
		protected.GET("/me", app.Handler.Me)

		// live session routes
		protected.POST("/sessions", app.Handler.StartSession)
		protected.POST("/sessions/resume", app.Handler.ResumeSession)
		protected.GET("/sessions/:id", app.Handler.GetSession)
		protected.POST("/sessions/:id/response", app.Handler.SubmitTextResponse)
		protected.POST("/sessions/:id/response/audio", app.Handler.SubmitAudioResponse)
		protected.GET("/sessions/:id/feedback", app.Handler.GetFeedback)
		protected.POST("/sessions/:id/feedback/retry", app.Handler.RetryFeedback)
		protected.DELETE("/sessions/:id", app.Handler.DeleteSession)

		// interview history routes
		protected.GET("/interviews", app.Handler.ListInterviews)
		protected.GET("/interviews/:id", app.Handler.GetInterview)
	}

	return r
}

func (app *application) corsMiddleware() gin.HandlerFunc {
	allowed := app.Config.GetCORSOrigins()
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
