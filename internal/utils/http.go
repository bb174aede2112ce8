package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-theatre/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ErrorStatus maps domain errors onto HTTP status codes.
func ErrorStatus(err error) int {
	var (
		outOfRange *models.OutOfRangeError
		seatTaken  *models.SeatTakenError
		notFound   *models.NotFoundError
		conflict   *models.ConflictError
		validation *models.ValidationError
		batch      *models.TicketRequestError
	)
	switch {
	case errors.As(err, &seatTaken), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &batch):
		// Unknown performances inside a batch are a bad request, not a missing resource.
		return http.StatusBadRequest
	case errors.As(err, &outOfRange), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorDetails(err error) *ErrorDetails {
	var (
		batch      *models.TicketRequestError
		outOfRange *models.OutOfRangeError
		validation *models.ValidationError
	)
	switch {
	case errors.As(err, &batch):
		index := batch.Index
		return &ErrorDetails{Index: &index, Field: batch.Field, Reason: batch.Reason}
	case errors.As(err, &outOfRange):
		return &ErrorDetails{Field: outOfRange.Field, Reason: outOfRange.Error()}
	case errors.As(err, &validation):
		return &ErrorDetails{Field: validation.Field, Reason: validation.Reason}
	}
	return nil
}

// WriteError renders err in the APIResponse envelope. Internal errors are
// reported with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := ErrorStatus(err)
	resp := ErrorResponse(http.StatusText(status), err.Error())
	if status == http.StatusInternalServerError {
		resp.Error = "internal server error"
	} else if d := errorDetails(err); d != nil {
		resp.Details = d
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON reads the body into dst and runs struct validation. Every
// failure comes back as *models.ValidationError.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &models.ValidationError{Reason: fmt.Sprintf("invalid request body: %v", err)}
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &models.ValidationError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &models.ValidationError{Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "email":
		return "enter a valid email address"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
