package httpapi

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/interp"
	"github.com/i474232898/grid-point-interpolation/internal/store"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *interp.Service, stations []weather.Station) {
	byName := make(map[string]weather.Station, len(stations))
	for _, st := range stations {
		byName[st.Name] = st
	}

	v1 := app.Group("/api/v1")

	v1.Get("/interpolate", func(c *fiber.Ctx) error {
		var q interpolateQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		req := q.toRequest()
		series, err := service.Interpolate(c.UserContext(), req)
		if err != nil {
			return mapError(err)
		}
		if q.Daily {
			series = weather.ResampleDaily(series)
		}

		method := req.Method
		if method == "" {
			method = service.DefaultMethod()
		}
		return c.JSON(fiber.Map{
			"callId": req.CallID,
			"method": method,
			"point":  req.Point,
			"zmax":   req.ZMax,
			"daily":  q.Daily,
			"series": series,
		})
	})

	v1.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(stations)
	})

	v1.Get("/stations/:name/latest", func(c *fiber.Ctx) error {
		st, ok := byName[c.Params("name")]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown station")
		}

		result, err := service.GetLatest(st)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no interpolation for requested station")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch station result")
		}
		return c.JSON(result)
	})

	v1.Get("/stations/:name/history", func(c *fiber.Ctx) error {
		st, ok := byName[c.Params("name")]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown station")
		}

		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		results, err := service.GetRange(st, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no interpolation history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch station history")
		}

		return c.JSON(fiber.Map{
			"station": st,
			"from":    req.From,
			"to":      req.To,
			"results": results,
		})
	})
}

// mapError converts interpolation errors into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, interp.ErrInvalidMethod):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, grid.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, interp.ErrTimeAxisMismatch):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "interpolation failed")
	}
}

// interpolateQuery holds query parameters for the interpolate endpoint.
type interpolateQuery struct {
	X         *float64 `validate:"required"`
	Y         *float64 `validate:"required"`
	ZMax      *float64 `validate:"required"`
	Elevation *float64
	Label     string
	Method    string `validate:"omitempty,oneof=SGl PG onecell IDW EA"`
	Quota     int    `validate:"min=0"`
	Daily     bool
}

func (q *interpolateQuery) bind(c *fiber.Ctx) error {
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"x", &q.X},
		{"y", &q.Y},
		{"zmax", &q.ZMax},
		{"z", &q.Elevation},
	} {
		s := c.Query(f.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("invalid " + f.key + ": must be a finite number")
		}
		*f.dst = &v
	}

	q.Label = c.Query("label")
	q.Method = c.Query("method")
	q.Quota = c.QueryInt("quota", 0)
	q.Daily = c.QueryBool("daily", false)
	return nil
}

func (q interpolateQuery) toRequest() interp.Request {
	return interp.Request{
		Point: grid.Point{
			Easting:   *q.X,
			Northing:  *q.Y,
			Elevation: q.Elevation,
		},
		ZMax:   *q.ZMax,
		Label:  q.Label,
		Method: interp.Method(q.Method),
		Quota:  q.Quota,
		CallID: uuid.New().String(),
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
