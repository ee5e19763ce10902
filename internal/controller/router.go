package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes groups the handlers and middleware the HTTP surface is built from.
type Routes struct {
	Health     *HealthController
	Connection *ConnectionController
	Query      *QueryController
	Report     *ReportController
	Panel      *PanelController

	// Identity is RequireAuth or TrustHeaders.
	Identity gin.HandlerFunc
	// RateLimit is optional.
	RateLimit gin.HandlerFunc
}

// Register mounts every route on router.
func (r *Routes) Register(router *gin.Engine) {
	router.GET("/health", r.Health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.Panel != nil {
		router.GET("/p/:id", r.Panel.Redirect)
	}

	api := router.Group("/api/v1")
	api.Use(r.Identity)
	if r.RateLimit != nil {
		api.Use(r.RateLimit)
	}

	connections := api.Group("/connections")
	{
		connections.POST("/test", r.Connection.TestConnection)
		connections.POST("/databases", r.Connection.ListDatabases)
		connections.POST("/schema", r.Connection.GetSchema)
	}

	api.POST("/query", r.Query.ExecuteQuery)
	api.GET("/query/stats", r.Query.Stats)
	api.POST("/reports", r.Report.GenerateReport)
	api.POST("/charts/recommend", r.Report.RecommendChart)

	if r.Panel != nil {
		api.GET("/panels", r.Panel.ListPanels)
	}
}
