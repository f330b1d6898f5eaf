package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ParseAndValidate binds the request body into dst and checks its
// validate tags, returning a 400 AppError on failure.
func ParseAndValidate(ctx *fiber.Ctx, dst interface{}) error {
	if err := ctx.BodyParser(dst); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			names := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				names = append(names, fe.Field())
			}
			return NewAppError(fiber.StatusBadRequest, fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")))
		}
		return NewAppError(fiber.StatusBadRequest, "validation failed")
	}

	return nil
}
