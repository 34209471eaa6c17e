package http

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type createRoomRequest struct {
	Name       string `json:"name" validate:"required"`
	Capacity   *int   `json:"capacity" validate:"required,min=1"`
	ScreenType string `json:"screen_type" validate:"omitempty,oneof=2D 3D IMAX"`
}

type seatInput struct {
	RowNumber  string `json:"row_number" validate:"required"`
	SeatNumber *int   `json:"seat_number" validate:"required,min=1"`
	SeatType   string `json:"seat_type" validate:"omitempty,oneof=regular premium vip"`
}

type createSeatsRequest struct {
	AutoGenerate bool        `json:"auto_generate"`
	SeatsPerRow  int         `json:"seats_per_row" validate:"omitempty,min=1"`
	Seats        []seatInput `json:"seats" validate:"required_unless=AutoGenerate true,dive"`
}

type createScheduleRequest struct {
	MovieID    string   `json:"movie_id" validate:"required"`
	RoomID     *int64   `json:"room_id" validate:"required,min=1"`
	ShowTime   string   `json:"show_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Price      *float64 `json:"price" validate:"required,gte=0"`
	ScreenType string   `json:"screen_type" validate:"omitempty,oneof=2D 3D IMAX"`
}

// validationDetails turns validator errors into field -> message pairs,
// keyed by the JSON path below the request root (e.g. seats[0].row_number).
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		out[key] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless":
		return "field is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "datetime":
		return "must be an RFC 3339 timestamp"
	}
	return "failed " + fe.Tag() + " validation"
}
