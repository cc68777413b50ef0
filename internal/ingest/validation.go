package ingest

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/devtrack/internal/device"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator, reporting fields by their
// JSON names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateStruct runs struct tag validation and converts the first failure
// into a *ValidationError.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "unknown", Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return missingField(fe.Field())
	default:
		return &ValidationError{Field: fe.Field(), Message: fe.Field() + " is invalid"}
	}
}

// parseReport validates report fields and builds a registry report.
func parseReport(fields Fields) (device.Report, error) {
	id, err := requiredID(fields)
	if err != nil {
		return device.Report{}, err
	}
	lat, err := requiredCoordinate(fields, FieldLatitude)
	if err != nil {
		return device.Report{}, err
	}
	lon, err := requiredCoordinate(fields, FieldLongitude)
	if err != nil {
		return device.Report{}, err
	}

	return device.Report{
		ID:       id,
		Position: device.Position{Latitude: lat, Longitude: lon},
		Telemetry: device.Telemetry{
			Timestamp: fields[FieldTimestamp],
			Battery:   fields[FieldBattery],
			Speed:     fields[FieldSpeed],
			Accuracy:  fields[FieldAccuracy],
		},
	}, nil
}

// requiredID extracts the device identifier. Strings and numbers are
// accepted; surrounding whitespace is dropped.
func requiredID(fields Fields) (string, error) {
	v := fields[FieldID]
	if v.IsZero() {
		return "", missingField(FieldID)
	}
	if _, isNumber := v.Float64(); !v.IsString() && !isNumber {
		return "", &ValidationError{Field: FieldID, Message: "id must be a string"}
	}
	id := strings.TrimSpace(v.String())
	if id == "" {
		return "", missingField(FieldID)
	}
	return id, nil
}

// requiredCoordinate extracts a finite coordinate.
func requiredCoordinate(fields Fields, field string) (float64, error) {
	v := fields[field]
	if v.IsZero() || (v.IsString() && strings.TrimSpace(v.String()) == "") {
		return 0, missingField(field)
	}
	f, ok := v.Float64()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Field: field, Message: field + " must be a finite number"}
	}
	return f, nil
}
