package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(wireName)
	return v
}

// wireName reports a field by the name the client sent it under.
func wireName(f reflect.StructField) string {
	for _, tag := range [...]string{"json", "query", "param"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// BindAndValidate binds the request, fills `default` tags and validates it.
// Failures come back as a 400 with one detail per offending field.
func BindAndValidate(c echo.Context, req interface{}) *AppError {
	if err := c.Bind(req); err != nil {
		return BadRequestError("malformed request").WithDetails(describe(err)).WithError(err)
	}
	if err := defaults.Set(req); err != nil {
		return InternalError("apply request defaults").WithError(err)
	}
	err := validate.StructCtx(c.Request().Context(), req)
	if err == nil {
		return nil
	}
	details := describe(err)
	return BadRequestError(details[0].Message).WithDetails(details).WithError(err)
}

// describe always returns at least one entry.
func describe(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		out := make([]ValidationError, len(fieldErrs))
		for i, fe := range fieldErrs {
			out[i] = ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			}
		}
		return out
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprint(he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

var tagMessages = map[string]string{
	"required":    "%[1]s is required",
	"len":         "%[1]s must contain exactly %[2]s values",
	"gt":          "%[1]s must be greater than %[2]s",
	"gte":         "%[1]s must be at least %[2]s",
	"lte":         "%[1]s must be at most %[2]s",
	"datetime":    "%[1]s must match layout %[2]s",
	"excludesall": "%[1]s must not contain any of %[2]s",
	"printascii":  "%[1]s must contain printable ASCII only",
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch tag := fe.Tag(); tag {
	case "min", "max":
		bound := map[string]string{"min": "least", "max": "most"}[tag]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at %s %s characters", field, bound, param)
		}
		return fmt.Sprintf("%s must be at %s %s", field, bound, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(param), ", "))
	default:
		if tmpl, ok := tagMessages[tag]; ok {
			return fmt.Sprintf(tmpl, field, param)
		}
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte", "gt":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "len":
		return map[string]interface{}{"len": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	}
	return nil
}
