package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

const dateLayout = "2006-01-02"

// bindFilter binds listing query params; the submitted_* bounds are plain
// dates, which echo's binder does not handle.
func bindFilter(ctx echo.Context, filter *admission.QueryFilter) error {
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	for _, bound := range []struct {
		param string
		dst   *time.Time
	}{
		{"submitted_from", &filter.SubmittedFrom},
		{"submitted_to", &filter.SubmittedTo},
	} {
		raw := ctx.QueryParam(bound.param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: bound.param, Error: "invalid date; expected YYYY-MM-DD"})
		}
		*bound.dst = t
	}
	return nil
}
