package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"

	mcpE "github.com/flarexio/ragblade/mcp"
)

func AddRouters(r *gin.Engine, endpoints ragblade.EndpointSet, timeouts ragblade.Timeouts) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/upload", Timeout(timeouts.Upload), UploadHandler(endpoints.IngestFile))
		api.POST("/text", Timeout(timeouts.Text), TextHandler(endpoints.IngestText))
		api.POST("/scrape", Timeout(timeouts.Scrape), ScrapeHandler(endpoints.IngestURL))
		api.POST("/chat", Timeout(timeouts.Chat), ChatHandler(endpoints.Chat))

		store := api.Group("/store", Timeout(timeouts.Store))
		store.GET("/stats", StatsHandler(endpoints.Stats))
		store.DELETE("/clear", ClearHandler(endpoints.Clear))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
