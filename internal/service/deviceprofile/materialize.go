package deviceprofile

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"

	"github.com/janisto/device-profile-api/internal/platform/fieldcase"
)

// Defaults applied to template data that leaves a field out.
const (
	DefaultDeviceType   = DeviceDesktop
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultCountry      = "us"
)

// Materialize builds a create payload from template data and overrides.
// data is never modified and the result shares no memory with it, so later
// changes to the template do not reach profiles created from it.
//
// Overrides win: Name always, Country and CustomHeaders when set, and
// Extras keys are merged over the template's extras. The result still has
// to pass Validate.
func Materialize(data map[string]any, ov Overrides) (Input, error) {
	src := fieldcase.KeysToStorage(cloneMap(data))
	var fields []FieldError

	in := Input{
		Name:          ov.Name,
		DeviceType:    DefaultDeviceType,
		WindowWidth:   DefaultWindowWidth,
		WindowHeight:  DefaultWindowHeight,
		UserAgent:     DefaultUserAgent,
		Country:       DefaultCountry,
		CustomHeaders: []CustomHeader{},
		Extras:        map[string]any{},
	}

	if v, ok := src["device_type"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			fields = append(fields, typeError("device_type", "must be a string", v))
		}
		in.DeviceType = DeviceType(s)
	}
	if v, ok := src["window_width"]; ok && v != nil {
		n, ok := toInt(v)
		if !ok {
			fields = append(fields, typeError("window_width", "must be an integer", v))
		}
		in.WindowWidth = n
	}
	if v, ok := src["window_height"]; ok && v != nil {
		n, ok := toInt(v)
		if !ok {
			fields = append(fields, typeError("window_height", "must be an integer", v))
		}
		in.WindowHeight = n
	}
	if v, ok := src["user_agent"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			fields = append(fields, typeError("user_agent", "must be a string", v))
		}
		in.UserAgent = s
	}
	if v, ok := src["country"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			fields = append(fields, typeError("country", "must be a string", v))
		}
		in.Country = s
	}
	if v, ok := src["custom_headers"]; ok && v != nil {
		headers, ferrs := toHeaders(v)
		fields = append(fields, ferrs...)
		in.CustomHeaders = headers
	}
	if v, ok := src["extras"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			fields = append(fields, typeError("extras", "must be an object", v))
		} else {
			in.Extras = m
		}
	}

	if ov.Country != nil {
		in.Country = *ov.Country
	}
	if ov.CustomHeaders != nil {
		in.CustomHeaders = append([]CustomHeader{}, (*ov.CustomHeaders)...)
	}
	maps.Copy(in.Extras, cloneMap(ov.Extras))

	if len(fields) > 0 {
		return Input{}, &ValidationError{Fields: fields}
	}
	return in, nil
}

func typeError(field, msg string, v any) FieldError {
	return FieldError{Field: field, Message: msg, Value: v}
}

// toInt accepts the number shapes template data can carry: Go ints from
// the built-in seeds, float64 from encoding/json and json.Number.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toHeaders(v any) ([]CustomHeader, []FieldError) {
	switch list := v.(type) {
	case []CustomHeader:
		return append([]CustomHeader{}, list...), nil
	case []any:
		out := make([]CustomHeader, 0, len(list))
		var errs []FieldError
		for i, e := range list {
			field := fmt.Sprintf("custom_headers[%d]", i)
			m, ok := e.(map[string]any)
			if !ok {
				errs = append(errs, typeError(field, "must be an object", e))
				continue
			}
			name, nok := m["name"].(string)
			value, vok := m["value"].(string)
			if !nok {
				errs = append(errs, typeError(field+".name", "must be a string", m["name"]))
			}
			if !vok && m["value"] != nil {
				errs = append(errs, typeError(field+".value", "must be a string", nil))
			}
			secret, _ := m["secret"].(bool)
			out = append(out, CustomHeader{Name: name, Value: value, Secret: secret})
		}
		return out, errs
	default:
		return []CustomHeader{}, []FieldError{typeError("custom_headers", "must be an array", v)}
	}
}
