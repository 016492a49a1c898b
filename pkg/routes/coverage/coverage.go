package coverage

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	coveragepkg "github.com/Ramsey-B/sage/pkg/coverage"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var validate = validator.New()

// Register registers coverage routes
func Register(g *echo.Group) {
	g.POST("", Assign)
	g.DELETE("", Unassign)
	g.GET("/patients/:patientId/instances/:instanceId", ListForInstance)
	g.GET("/users/:userId", ListForUser)
}

// Assign binds a clinician to a patient for a shift instance
func Assign(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "coverage_handler.Assign")
	defer span.End()

	var req models.AssignCoverageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*coveragepkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coverage service")
	}

	cov, err := svc.Assign(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, cov)
}

// Unassign removes a clinician's coverage of a patient
func Unassign(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "coverage_handler.Unassign")
	defer span.End()

	var req models.UnassignCoverageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*coveragepkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coverage service")
	}

	if err := svc.Unassign(ctx, req); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ListForInstance returns the coverage rows for a patient and shift instance
func ListForInstance(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "coverage_handler.ListForInstance")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*coveragepkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coverage service")
	}

	covs, err := svc.ListForInstance(ctx, c.Param("patientId"), c.Param("instanceId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, covs)
}

// ListForUser returns a user's coverage assignments
func ListForUser(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "coverage_handler.ListForUser")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*coveragepkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coverage service")
	}

	covs, err := svc.ListForUser(ctx, c.Param("userId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, covs)
}
