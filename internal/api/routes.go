package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up the API endpoints and groups them logically.
// generation middleware (rate limiting) is applied only to the routes that call the AI provider.
func RegisterRoutes(router *gin.Engine, h *APIHandler, sessions gin.HandlerFunc, generation ...gin.HandlerFunc) {
	withGeneration := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, generation...), handler)
	}

	apiGroup := router.Group("/api")
	if sessions != nil {
		apiGroup.Use(sessions)
	}
	{
		apiGroup.POST("/gemini", withGeneration(h.Generate)...)  // Raw prompt -> generated text
		apiGroup.POST("/apps", withGeneration(h.GenerateApp)...) // Compose + generate + record
		apiGroup.POST("/projects", h.SaveProject)                // Record a generated app for the session
		apiGroup.POST("/preview", h.Preview)                     // Extract the renderable fragment
		apiGroup.POST("/archive", h.Archive)                     // Download the code as a zip
		apiGroup.POST("/design", h.InspectDesign)                // Validate an optional design upload
	}

	// Sandboxed live preview page, meant to be loaded into an iframe
	router.POST("/preview", h.PreviewPage)

	router.GET("/health", h.Health)
	router.HEAD("/health", h.Health)
}
