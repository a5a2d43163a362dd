package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
)

var errInvalidRequest = errors.New("invalid_request")

func invalidRequestError() error { return errInvalidRequest }

// AbortWithError maps domain errors onto HTTP statuses. Unrecognized errors
// become opaque 500s so storage details never leak to callers.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, clickdomain.ErrMissingReferralCode),
		errors.Is(err, clickdomain.ErrInvalidProduct),
		errors.Is(err, conversiondomain.ErrInvalidOrder),
		errors.Is(err, conversiondomain.ErrInvalidAmount),
		errors.Is(err, conversiondomain.ErrInvalidModel),
		errors.Is(err, partnerdomain.ErrInvalidUser):
		status = http.StatusBadRequest
		message = err.Error()

	case errors.Is(err, clickdomain.ErrInvalidReferralCode):
		status = http.StatusUnprocessableEntity
		message = err.Error()

	case errors.Is(err, conversiondomain.ErrNoAttributableClick),
		errors.Is(err, conversiondomain.ErrConversionNotFound),
		errors.Is(err, commissiondomain.ErrCommissionNotFound),
		errors.Is(err, partnerdomain.ErrPartnerNotFound),
		errors.Is(err, conversiondomain.ErrInvalidProduct):
		status = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, conversiondomain.ErrInvalidTransition),
		errors.Is(err, conversiondomain.ErrInvalidRefund):
		status = http.StatusConflict
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
