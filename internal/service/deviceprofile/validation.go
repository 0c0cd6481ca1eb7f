package deviceprofile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minWindow       = 100
	maxWindow       = 10000
	maxMobileWindow = 2000
	maxMobileAspect = 3
)

// validate caches struct metadata, so it is built once.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	mustRegister(v, "devicetype", func(fl validator.FieldLevel) bool {
		switch DeviceType(fl.Field().String()) {
		case DeviceDesktop, DeviceMobile:
			return true
		}
		return false
	})
	mustRegister(v, "country", func(fl validator.FieldLevel) bool {
		_, ok := countryCodes[fl.Field().String()]
		return ok
	})
	mustRegister(v, "allowedheader", func(fl validator.FieldLevel) bool {
		_, denied := deniedHeaders[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
		return !denied
	})
	v.RegisterStructValidation(validateMobileViewport, Input{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateMobileViewport rejects ultra-wide mobile viewports. It only
// looks at dimensions that already passed the range check.
func validateMobileViewport(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if in.DeviceType != DeviceMobile || !inRange(in.WindowWidth) || !inRange(in.WindowHeight) {
		return
	}
	if in.WindowWidth > maxMobileWindow {
		sl.ReportError(in.WindowWidth, "window_width", "WindowWidth", "mobilesize", "")
	}
	if in.WindowHeight > maxMobileWindow {
		sl.ReportError(in.WindowHeight, "window_height", "WindowHeight", "mobilesize", "")
	}
	if in.WindowWidth > in.WindowHeight && in.WindowWidth > maxMobileAspect*in.WindowHeight {
		sl.ReportError(in.WindowWidth, "window_width", "WindowWidth", "mobileaspect", "")
	}
}

func inRange(n int) bool {
	return n >= minWindow && n <= maxWindow
}

// normalize trims the name and lower-cases the country, and makes empty
// collections non-nil. It returns a new Input.
func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.UserAgent = strings.TrimSpace(in.UserAgent)
	in.Country = strings.ToLower(strings.TrimSpace(in.Country))
	in.CustomHeaders = append([]CustomHeader{}, in.CustomHeaders...)
	if in.Extras == nil {
		in.Extras = map[string]any{}
	}
	return in
}

// Validate normalizes in and checks every rule, returning the normalized
// input or a *ValidationError listing all violations.
func Validate(in Input) (Input, error) {
	in = normalize(in)
	err := validate.Struct(in)
	if err == nil {
		return in, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return in, err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, toFieldError(fe))
	}
	return in, &ValidationError{Fields: fields}
}

func toFieldError(fe validator.FieldError) FieldError {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	out := FieldError{Field: path, Message: messageFor(fe)}
	// Header values may be credentials and are never echoed.
	if fe.Field() != "value" {
		out.Value = fe.Value()
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("must be between %d and %d", minWindow, maxWindow)
		}
		if fe.Tag() == "min" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "devicetype":
		return "must be one of desktop, mobile"
	case "country":
		return "must be a valid ISO 3166-1 alpha-2 country code"
	case "allowedheader":
		return "header not allowed"
	case "mobilesize":
		return fmt.Sprintf("must not exceed %d for mobile devices", maxMobileWindow)
	case "mobileaspect":
		return fmt.Sprintf("mobile aspect ratio must not exceed %d:1", maxMobileAspect)
	default:
		return "is invalid"
	}
}
