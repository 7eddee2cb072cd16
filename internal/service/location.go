package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// checkLocation validates a GPS fix and returns it in stored form.
func checkLocation(in *model.LocationInput) (model.Location, error) {
	if in == nil {
		return model.Location{}, fmt.Errorf("%w: location is required", ErrInvalidLocation)
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return model.Location{}, fmt.Errorf("%w: %s is required", ErrInvalidLocation, jsonName(fe.Field()))
			}
			return model.Location{}, fmt.Errorf("%w: %s out of range (%s %s)", ErrInvalidLocation, jsonName(fe.Field()), fe.Tag(), fe.Param())
		}
		return model.Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return model.Location{
		Latitude:       *in.Latitude,
		Longitude:      *in.Longitude,
		AccuracyMeters: *in.AccuracyMeters,
	}, nil
}

func jsonName(field string) string {
	switch field {
	case "Latitude":
		return "latitude"
	case "Longitude":
		return "longitude"
	case "AccuracyMeters":
		return "accuracy_meters"
	}
	return strings.ToLower(field)
}

func normalizeSource(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case model.SourceMobile, "app", "ios", "android":
		return model.SourceMobile
	case model.SourceWeb, "browser":
		return model.SourceWeb
	}
	return model.SourceUnknown
}
