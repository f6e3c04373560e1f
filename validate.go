package authcore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use json tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (e *Engine) validateRegister(req *RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	var fields []FieldError
	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Fields: []FieldError{{Field: "request", Message: "Invalid request"}}}
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: registerFieldMessage(fe)})
		}
	}

	if req.Role == "" {
		req.Role = e.config.Account.DefaultRole
	}
	if !e.config.roleAllowed(req.Role) {
		fields = append(fields, FieldError{Field: "role", Message: "Please select a valid role (" + roleList(e.config.Account.AllowedRoles) + ")"})
	}

	if verr := e.validatePassword("password", req.Password); verr != nil {
		fields = append(fields, verr.Fields...)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (e *Engine) validatePassword(field, pw string) *ValidationError {
	n := utf8.RuneCountInString(pw)
	if n < e.config.Password.MinLength {
		return invalidField(field, fmt.Sprintf("Password must be at least %d characters", e.config.Password.MinLength))
	}
	if n > e.config.Password.MaxLength {
		return invalidField(field, fmt.Sprintf("Password cannot be longer than %d characters", e.config.Password.MaxLength))
	}
	return nil
}

func registerFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "email":
		return "Please enter a valid email address"
	case "full_name":
		if fe.Tag() == "max" {
			return "Your full name is too long (maximum " + fe.Param() + " characters)"
		}
		return "Please enter your full name (at least 2 characters)"
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

func roleList(roles []string) string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		out = append(out, strings.ToUpper(r[:1])+r[1:])
	}
	switch len(out) {
	case 0:
		return ""
	case 1:
		return out[0]
	case 2:
		return out[0] + " or " + out[1]
	default:
		return strings.Join(out[:len(out)-1], ", ") + ", or " + out[len(out)-1]
	}
}
