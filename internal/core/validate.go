package core

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateDescriptor(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return nil
}
