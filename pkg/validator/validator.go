package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/security"
)

const DateLayout = "2006-01-02"

// 24h clock; the hour may be one or two digits.
var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Validator provides validation functionality
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Register(v); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// Register installs the custom tags and json field naming on v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"isodate":  isoDate,
		"hhmm":     hhmm,
		"password": password,
		"role":     role,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// Validate checks obj and returns a validation AppError naming the first
// offending field.
func (v *Validator) Validate(obj interface{}) error {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return apperrors.NewBadRequest(err.Error(), err)
	}
	fe := errs[0]
	return apperrors.NewValidation(fieldPath(fe), message(fe))
}

// Var validates a single value against tag.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return apperrors.NewValidation(field, message(errs[0]))
		}
		return apperrors.NewValidation(field, err.Error())
	}
	return nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "invalid email format"
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "hhmm":
		return fmt.Sprintf("%s must be a time in HH:MM format", fe.Field())
	case "password":
		if err := security.ValidatePassword(fe.Value().(string)); err != nil {
			return err.Error()
		}
		return "invalid password"
	case "role", "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), allowed(fe))
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

func allowed(fe validator.FieldError) string {
	if fe.Tag() == "role" {
		return "admin, doctor, patient"
	}
	return strings.ReplaceAll(fe.Param(), " ", ", ")
}

func isoDate(fl validator.FieldLevel) bool {
	return ValidDate(fl.Field().String())
}

func hhmm(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func password(fl validator.FieldLevel) bool {
	return security.ValidatePassword(fl.Field().String()) == nil
}

func role(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "admin", "doctor", "patient":
		return true
	}
	return false
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// NormalizeTime pads a single-digit hour, turning "9:30" into "09:30".
func NormalizeTime(s string) (string, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("invalid time %q", s)
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2], nil
}

// NormalizeAvailability pads every slot boundary and rejects slots whose
// end is not after their start. The input is left untouched.
func NormalizeAvailability(days model.Availability) (model.Availability, error) {
	out := make(model.Availability, 0, len(days))
	for i, day := range days {
		slots := make([]model.TimeRange, 0, len(day.Slots))
		for j, slot := range day.Slots {
			start, err := NormalizeTime(slot.Start)
			if err != nil {
				return nil, apperrors.NewValidation(fmt.Sprintf("availability[%d].slots[%d].start", i, j), err.Error())
			}
			end, err := NormalizeTime(slot.End)
			if err != nil {
				return nil, apperrors.NewValidation(fmt.Sprintf("availability[%d].slots[%d].end", i, j), err.Error())
			}
			// Zero-padded HH:MM compares correctly as a string.
			if end <= start {
				return nil, apperrors.NewValidation(fmt.Sprintf("availability[%d].slots[%d].end", i, j), "end must be after start")
			}
			slots = append(slots, model.TimeRange{Start: start, End: end})
		}
		out = append(out, model.DayAvailability{DayOfWeek: day.DayOfWeek, Slots: slots})
	}
	return out, nil
}
