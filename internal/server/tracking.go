package server

import (
	"github.com/gin-gonic/gin"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
)

func (s *Server) RecordClick(c *gin.Context) {
	var req clickdomain.RecordClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// Transport metadata comes from the request itself unless the caller is
	// a trusted proxy forwarding it explicitly.
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}
	if req.Referer == "" {
		req.Referer = c.Request.Referer()
	}

	click, err := s.clickSvc.RecordClick(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, click)
}
