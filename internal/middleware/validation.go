package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "econdash/internal/errors"
	"econdash/internal/series"
	"econdash/internal/view"
)

// ViewQuery is the query string accepted by the view endpoints.
type ViewQuery struct {
	Range    string `query:"range" validate:"omitempty,yearrange"`
	Combined string `query:"combined" validate:"omitempty,oneof=true false 1 0"`
	Year     string `query:"year" validate:"omitempty,len=4,numeric"`
}

// QueryValidator validates query parameters with struct tags
type QueryValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewQueryValidator creates a validator with the dashboard's custom tags.
func NewQueryValidator(logger *slog.Logger) *QueryValidator {
	v := validator.New()
	_ = v.RegisterValidation("yearrange", isYearRange)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})

	return &QueryValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "query_validator")),
	}
}

// ParseViewQuery reads and validates the view query of r.
func (v *QueryValidator) ParseViewQuery(r *http.Request) (view.Params, error) {
	p, err := v.ParseValues(r.URL.Query())
	if err != nil {
		v.logger.DebugContext(r.Context(), "rejected view query",
			slog.String("query", r.URL.RawQuery),
			slog.String("error", err.Error()),
		)
	}
	return p, err
}

// ParseValues validates view options given as query values.
func (v *QueryValidator) ParseValues(q url.Values) (view.Params, error) {
	vq := ViewQuery{
		Range:    strings.TrimSpace(q.Get("range")),
		Combined: strings.ToLower(strings.TrimSpace(q.Get("combined"))),
		Year:     strings.TrimSpace(q.Get("year")),
	}
	if err := v.ValidateStruct(vq); err != nil {
		return view.Params{}, err
	}

	yr, err := series.ParseYearRange(vq.Range)
	if err != nil {
		return view.Params{}, apperrors.ErrValidation("range", err.Error())
	}
	combined, _ := strconv.ParseBool(vq.Combined)

	return view.Params{Range: yr, Combined: combined, Year: vq.Year}, nil
}

// ValidateStruct validates s and converts failures to an API error.
func (v *QueryValidator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(out)
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "yearrange":
		return fmt.Sprintf("%s must be YYYY-YYYY or all", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len", "numeric":
		return fmt.Sprintf("%s must be a four digit year", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func isYearRange(fl validator.FieldLevel) bool {
	_, err := series.ParseYearRange(fl.Field().String())
	return err == nil
}
