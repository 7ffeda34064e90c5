package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// sendInput carries the identity part of a send request.
type sendInput struct {
	SenderID   string `json:"sender_id" validate:"required,max=64"`
	ReceiverID string `json:"receiver_id" validate:"required,max=64,nefield=SenderID"`
}

// validateStruct runs struct validation and reports the first failure as
// a domain ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}

	fe := verrs[0]
	return domain.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "nefield":
		return "cannot message yourself"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
