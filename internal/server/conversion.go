package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
)

func (s *Server) CreateConversion(c *gin.Context) {
	var req conversiondomain.CreateConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.conversionSvc.CreateConversion(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, event)
}

func (s *Server) GetConversion(c *gin.Context) {
	event, err := s.conversionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, event)
}

func (s *Server) ConfirmConversion(c *gin.Context) {
	event, err := s.conversionSvc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, event)
}

func (s *Server) CancelConversion(c *gin.Context) {
	event, err := s.conversionSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, event)
}

func (s *Server) RefundConversion(c *gin.Context) {
	var req conversiondomain.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ConversionID = c.Param("id")

	event, err := s.conversionSvc.Refund(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, event)
}

// ProcessOrderLine attributes a purchase and calculates its commission in
// one call.
func (s *Server) ProcessOrderLine(c *gin.Context) {
	var req conversiondomain.CreateConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.pipelineSvc.ProcessOrderLine(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, result)
}

// GetCommission calculates the commission for a confirmed conversion on
// first request and returns the stored record afterwards.
func (s *Server) GetCommission(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, conversiondomain.ErrConversionNotFound)
		return
	}

	commission, err := s.commissionSvc.ProcessConversion(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, commission)
}
