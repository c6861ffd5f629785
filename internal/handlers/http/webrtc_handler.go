package http

import (
	"net/http"

	"pairlink/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
)

// WebRTCHandler serves the ICE server configuration clients need to build
// their RTCPeerConnection. Media never touches this server; it only brokers
// the signaling, so this endpoint is the full extent of its WebRTC surface.
type WebRTCHandler struct {
	iceServers []webrtc.ICEServer
}

func NewWebRTCHandler(cfg *config.Config) *WebRTCHandler {
	var servers []webrtc.ICEServer
	for _, s := range cfg.WebRTC.ICEServers {
		urls := make([]string, len(s.URLs))
		copy(urls, s.URLs)
		server := webrtc.ICEServer{URLs: urls}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}
	return &WebRTCHandler{iceServers: servers}
}

func (h *WebRTCHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/api/v1/webrtc/config", h.GetConfig)
}

func (h *WebRTCHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ice_servers": h.iceServers,
	})
}
