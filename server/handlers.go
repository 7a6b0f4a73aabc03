package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/engine"
	"github.com/shellmind/shellmind-api/provider"
)

type completionRequest struct {
	Prompt         string             `json:"prompt"`
	Messages       []core.ChatMessage `json:"messages"`
	Mode           string             `json:"mode"`
	ConversationID string             `json:"conversationId"`
}

// input resolves the user text: prompt wins, otherwise the first
// message's content.
func (r *completionRequest) input() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	if len(r.Messages) > 0 {
		return r.Messages[0].Content
	}
	return ""
}

func (s *Server) handleCompletion(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	input := req.input()
	if input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	resp, err := s.dispatcher.Dispatch(c.Request.Context(), &engine.Request{
		ConversationID: req.ConversationID,
		Mode:           core.ParseMode(req.Mode),
		Input:          input,
	})
	if err != nil {
		s.writeCompletionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeCompletionError(c *gin.Context, err error) {
	if errors.Is(err, engine.ErrTimeout) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timeout"})
		return
	}

	var upstream *provider.UpstreamError
	if errors.As(err, &upstream) {
		log.Printf("[SERVER] upstream failure from %s: %v", upstream.Provider, err)
	} else {
		log.Printf("[SERVER] completion failed: %v", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to get response from provider",
		"details": err.Error(),
	})
}

type deviceTokenRequest struct {
	DeviceCode string `json:"device_code"`
}

func (s *Server) handleDeviceCode(c *gin.Context) {
	if s.github == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Device flow is not configured"})
		return
	}

	code, err := s.github.RequestDeviceCode(c.Request.Context())
	if err != nil {
		log.Printf("[SERVER] device code request failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start device flow"})
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *Server) handleDeviceToken(c *gin.Context) {
	if s.github == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Device flow is not configured"})
		return
	}

	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_code is required"})
		return
	}

	result, err := s.github.PollToken(c.Request.Context(), req.DeviceCode)
	if err != nil {
		log.Printf("[SERVER] token poll failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to poll for token"})
		return
	}

	switch {
	case result.AccessToken != "":
		c.JSON(http.StatusOK, gin.H{"token": result.AccessToken})
	case result.Pending:
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": result.ErrorCode})
	}
}
