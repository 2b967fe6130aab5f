package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "medbridge/pkg/domain-errors"
)

type selectRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type licenseRequest struct {
	LicenseNumber string `json:"license_number" validate:"required"`
}

// documentRequest carries the document image base64-encoded.
type documentRequest struct {
	Image []byte `json:"image" validate:"required,min=1"`
}

type biometricRequest struct {
	Frame       []byte `json:"frame" validate:"required,min=1"`
	ContentType string `json:"content_type" validate:"required"`
}

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type confirmCodeRequest struct {
	Code            string `json:"code" validate:"required"`
	Password        string `json:"password" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" sanitize:"-"`
}

type passwordRequest struct {
	Password        string `json:"password" validate:"required" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" validate:"required" sanitize:"-"`
}

type referralRequest struct {
	ReferralCode string `json:"referral_code" validate:"required" sanitize:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst, trims it and checks its tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeInvalidInput, "request body is too large")
		}
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	sanitize(dst)
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request")
	}
	e := errs[0]
	field := e.Field()
	switch e.Tag() {
	case "required":
		return dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	case "min":
		return dErrors.New(dErrors.CodeInvalidInput, field+" must not be empty")
	case "max":
		return dErrors.New(dErrors.CodeInvalidInput, field+" must be at most "+e.Param()+" characters")
	default:
		return dErrors.New(dErrors.CodeInvalidInput, field+" is invalid")
	}
}
