package shift

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/shiftinstance"
	"github.com/Ramsey-B/sage/internal/repositories/shifttemplate"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/schedule"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers shift routes
func Register(g *echo.Group) {
	g.GET("/templates", ListTemplates)
	g.GET("/templates/:id", GetTemplate)
	g.GET("/templates/:id/next", NextTemplate)
	g.GET("/templates/:id/previous", PreviousTemplate)
	g.GET("/instances", ListInstances)
	g.GET("/instances/:id", GetInstance)
}

// ListTemplates returns the shift template catalog
func ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "shift_handler.ListTemplates")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*shifttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	templates, err := repo.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, templates)
}

// GetTemplate returns a single shift template
func GetTemplate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "shift_handler.GetTemplate")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*shifttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	template, err := repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, template)
}

// NextTemplate returns the template that follows the given one in the daily
// rotation; 404 when fewer than two templates exist
func NextTemplate(c echo.Context) error {
	return adjacentTemplate(c, "shift_handler.NextTemplate", schedule.Next)
}

// PreviousTemplate returns the template that precedes the given one
func PreviousTemplate(c echo.Context) error {
	return adjacentTemplate(c, "shift_handler.PreviousTemplate", schedule.Previous)
}

func adjacentTemplate(c echo.Context, spanName string, resolve func([]models.ShiftTemplate, string) (*models.ShiftTemplate, error)) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, spanName)
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*shifttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	templates, err := repo.List(ctx)
	if err != nil {
		return err
	}

	adjacent, err := resolve(templates, c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if adjacent == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no adjacent shift template")
	}

	return c.JSON(http.StatusOK, adjacent)
}

// ListInstances returns the materialized shift instances of a unit,
// optionally bounded by start-time range (RFC3339 from/to query params)
func ListInstances(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "shift_handler.ListInstances")
	defer span.End()

	unitID := c.QueryParam("unit_id")
	if unitID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "unit_id is required")
	}

	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
		}
		to = &t
	}

	ctx, repo, err := ectoinject.GetContext[*shiftinstance.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	instances, err := repo.List(ctx, unitID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, instances)
}

// GetInstance returns a single shift instance
func GetInstance(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "shift_handler.GetInstance")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*shiftinstance.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	instance, err := repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, instance)
}
