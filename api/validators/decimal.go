package validators

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// validDecimal accepts empty strings and non-negative decimal literals.
func validDecimal(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	d, err := decimal.NewFromString(raw)
	return err == nil && !d.IsNegative()
}
