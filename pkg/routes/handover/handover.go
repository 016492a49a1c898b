package handover

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/sage/pkg/context"
	handoverpkg "github.com/Ramsey-B/sage/pkg/handover"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var validate = validator.New()

// Register registers handover routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("/:id", Get)
	g.POST("/:id/ready", MarkReady)
	g.POST("/:id/start", Start)
	g.POST("/:id/complete", Complete)
	g.POST("/:id/cancel", Cancel)
	// reject is a cancel by the receiving side; same transition, clearer intent
	g.POST("/:id/reject", Cancel)
	g.POST("/:id/return", ReturnForChanges)
	g.PUT("/:id/contents", UpdateSection)
	g.POST("/:id/action-items", AddActionItem)
	g.POST("/:id/action-items/:itemId/complete", CompleteActionItem)
	g.POST("/:id/contingency-plans", AddContingencyPlan)
	g.POST("/:id/messages", AddMessage)
	g.GET("/patients/:patientId", ListByPatient)
	g.GET("/patients/:patientId/current", GetCurrent)
	g.GET("/pending", ListPending)
}

func requireUser(c echo.Context) (string, error) {
	userID := ctxmiddleware.GetUserID(c.Request().Context())
	if userID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "X-User-ID header is required")
	}
	return userID, nil
}

// Create opens a handover for a patient's shift transition. Returns 201 when
// a new handover was created, 200 when the transition already had one.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.Create")
	defer span.End()

	var req models.CreateHandoverRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CreatedBy == "" {
		req.CreatedBy = ctxmiddleware.GetUserID(ctx)
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, created, err := svc.Create(ctx, req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, h)
}

// Get returns a handover with contents, child records, and derived state
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.Get")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	detail, err := svc.GetDetail(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, detail)
}

// MarkReady flips a draft handover to ready
func MarkReady(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.MarkReady")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, err := svc.MarkReady(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h)
}

// Start moves a ready handover to in progress
func Start(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.Start")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, err := svc.Start(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h)
}

// Complete finishes an in-progress handover
func Complete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.Complete")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, err := svc.Complete(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h)
}

// CancelRequest carries the mandatory reason for abandoning a handover
type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Cancel abandons a handover
func Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.Cancel")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, err := svc.Cancel(ctx, c.Param("id"), userID, req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h)
}

// ReturnForChanges sends a ready handover back to draft
func ReturnForChanges(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.ReturnForChanges")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	h, err := svc.ReturnForChanges(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h)
}

// UpdateSection overwrites one content section of a handover
func UpdateSection(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.UpdateSection")
	defer span.End()

	var req models.UpdateSectionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UpdatedBy == "" {
		req.UpdatedBy = ctxmiddleware.GetUserID(ctx)
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	contents, err := svc.UpdateSection(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contents)
}

// AddActionItem attaches a task to a handover
func AddActionItem(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.AddActionItem")
	defer span.End()

	var req models.CreateActionItemRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CreatedBy == "" {
		req.CreatedBy = ctxmiddleware.GetUserID(ctx)
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	item, err := svc.AddActionItem(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, item)
}

// CompleteActionItem marks a task done
func CompleteActionItem(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.CompleteActionItem")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	if err := svc.CompleteActionItem(ctx, c.Param("id"), c.Param("itemId")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// AddContingencyPlan attaches an "if X then Y" plan to a handover
func AddContingencyPlan(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.AddContingencyPlan")
	defer span.End()

	var req models.CreateContingencyPlanRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CreatedBy == "" {
		req.CreatedBy = ctxmiddleware.GetUserID(ctx)
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	plan, err := svc.AddContingencyPlan(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, plan)
}

// AddMessage appends to a handover's discussion
func AddMessage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.AddMessage")
	defer span.End()

	var req models.CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		req.UserID = ctxmiddleware.GetUserID(ctx)
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	msg, err := svc.AddMessage(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, msg)
}

// ListByPatient returns a page of a patient's handovers
func ListByPatient(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.ListByPatient")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	resp, err := svc.ListByPatient(ctx, c.Param("patientId"), page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetCurrent returns the ID of a patient's open handover, if any
func GetCurrent(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.GetCurrent")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	id, err := svc.GetCurrentHandoverID(ctx, c.Param("patientId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]*string{"handover_id": id})
}

// ListPending returns the authenticated user's open handovers
func ListPending(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handover_handler.ListPending")
	defer span.End()

	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*handoverpkg.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover service")
	}

	handovers, err := svc.ListPendingForUser(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, handovers)
}
