package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// RegisterValidations wires the bookdate format check into gin's binding
// validator. Call once at startup.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("bookdate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(dateLayout, fl.Field().String())
			return err == nil
		})
	}
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// respondError maps the engine's error taxonomy onto HTTP statuses. Every
// error message already carries the offending identifiers.
func respondError(c *gin.Context, err error) {
	var transition *domain.InvalidTransitionError
	var conflict *domain.ReconciliationConflictError

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownTransaction):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnitUnavailable), errors.Is(err, domain.ErrDatesLocked):
		status = http.StatusConflict
	case errors.As(err, &transition), errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAuthenticityFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
