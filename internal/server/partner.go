package server

import (
	"github.com/gin-gonic/gin"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
)

func (s *Server) RegisterPartner(c *gin.Context) {
	var req partnerdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	partner, err := s.partnerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, partner)
}

func (s *Server) GetPartnerByCode(c *gin.Context) {
	partner, err := s.partnerSvc.GetByReferralCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, partner)
}
