// Package server exposes the HTTP API: completions, the GitHub device
// flow pass-through, and a health probe.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/engine"
	"github.com/shellmind/shellmind-api/githubauth"
)

// Completions produces completions. Satisfied by *engine.Dispatcher.
type Completions interface {
	Dispatch(ctx context.Context, req *engine.Request) (*core.CompletionResponse, error)
}

// DeviceFlow talks to GitHub's device authorization endpoints.
// Satisfied by *githubauth.Client.
type DeviceFlow interface {
	RequestDeviceCode(ctx context.Context) (*githubauth.DeviceCode, error)
	PollToken(ctx context.Context, deviceCode string) (*githubauth.TokenResult, error)
}

// Server wires the HTTP routes to the completion engine.
type Server struct {
	dispatcher Completions
	github     DeviceFlow
}

// New creates a server. github may be nil when no OAuth app is
// configured; the device-flow routes then report the feature as
// unavailable.
func New(dispatcher Completions, github DeviceFlow) *Server {
	return &Server{dispatcher: dispatcher, github: github}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	r.GET("/healthz", s.handleHealth)
	v1 := r.Group("/v1")
	{
		v1.POST("/completions", s.handleCompletion)
		v1.POST("/auth/device/code", s.handleDeviceCode)
		v1.POST("/auth/device/token", s.handleDeviceToken)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS, PATCH, DELETE, POST, PUT")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
