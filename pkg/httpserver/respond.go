package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so error bodies match the request.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("username_chars", validateUsernameChars)
	return v
}

// validateUsernameChars accepts letters, digits and @.+-_ only.
func validateUsernameChars(fl validator.FieldLevel) bool {
	for _, c := range fl.Field().String() {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && !strings.ContainsRune("@.+-_", c) {
			return false
		}
	}
	return true
}

// fieldErrors is the body of a 400 response: field name to messages, with
// "non_field_errors" for problems that are not tied to one field.
type fieldErrors map[string][]string

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decodeJSON reads a JSON object from the request body into dst. An empty
// body decodes to the zero value.
func decodeJSON(r *http.Request, dst any) error {
	if err := render.DecodeJSON(io.LimitReader(r.Body, maxBodyBytes), dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("JSON parse error - %w", err)
	}
	return nil
}

// validateRequest runs struct validation and converts failures into a
// fieldErrors body. It returns nil when req is valid.
func validateRequest(req any) fieldErrors {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fieldErrors{"non_field_errors": {err.Error()}}
	}
	out := fieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], formatFieldError(fe))
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "username_chars":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return "This field is invalid."
	}
}
