package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

type admissionApi struct {
	svc *admission.Service
}

func registerAdmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *admission.Service) {
	api := admissionApi{svc: svc}

	ag := g.Group("/applications", jwt)
	ag.POST("", api.create)
	ag.GET("", api.query, staffMiddleware())
	ag.GET("/stats", api.stats)
	ag.GET("/export", api.export, staffMiddleware())
	ag.GET("/quota-check", api.quotaCheck)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/submit", api.submit)
	dg.POST("/documents", api.attachDocument)
	dg.GET("/parallels", api.availableParallels, staffMiddleware())

	// staff workflow endpoints
	sg := dg.Group("", staffMiddleware())
	sg.POST("/review", api.startReview)
	sg.POST("/request-correction", api.requestCorrection)
	sg.POST("/schedule-cursillo", api.scheduleCursillo)
	sg.POST("/cursillo-result", api.cursilloResult)
	sg.POST("/approve", api.approve)
	sg.POST("/reject", api.reject)
	sg.POST("/validate-payment", api.validatePayment)
	sg.POST("/assign", api.assignParallel)
	sg.POST("/assign-staff", api.assignStaff)
	sg.POST("/comments", api.addComment)
}

// request payloads

type (
	textRequest struct {
		Text string `json:"text"`
	}
	cursilloRequest struct {
		Date time.Time `json:"date"`
	}
	cursilloResultRequest struct {
		Passed bool `json:"passed"`
	}
	approveRequest struct {
		Notes string `json:"notes"`
	}
	rejectRequest struct {
		Reason string `json:"reason"`
	}
	assignRequest struct {
		Parallel string `json:"parallel"`
	}
	assignStaffRequest struct {
		StaffID string `json:"staff_id"`
	}
	documentRequest struct {
		Type     string `json:"document_type"`
		FileName string `json:"file_name"`
		FileURL  string `json:"file_url"`
		MimeType string `json:"mime_type"`
		FileSize int64  `json:"file_size"`
	}
)

// Handlers

func (api *admissionApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.Create(actor)
	if err != nil {
		return errors.Wrap(err, "creating application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *admissionApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var filter admission.QueryFilter
	if err := bindFilter(ctx, &filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	page, err := api.svc.Filter(filter, actor)
	if err != nil {
		return errors.Wrap(err, "filtering applications")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *admissionApi) stats(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var stats admission.Stats
	if actor.IsStaff() {
		stats, err = api.svc.GlobalStats(actor)
	} else {
		stats, err = api.svc.MyStats(actor)
	}
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *admissionApi) export(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	data, err := api.svc.ExportAdmittedCSV(actor)
	if err != nil {
		return errors.Wrap(err, "exporting admitted applications")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="admitidos.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (api *admissionApi) quotaCheck(ctx echo.Context) error {
	check, err := api.svc.CheckQuota(ctx.QueryParam("grade_level"), ctx.QueryParam("shift"))
	if err != nil {
		return errors.Wrap(err, "checking quota")
	}
	return ctx.JSON(http.StatusOK, check)
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.Get(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data admission.UpdateApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateApplication")
	}

	app, err := api.svc.Update(ctx.Param("id"), actor, data)
	if err != nil {
		return errors.Wrap(err, "updating application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Remove(ctx.Param("id"), actor); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *admissionApi) submit(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.Submit(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) attachDocument(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data documentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to documentRequest")
	}

	doc, err := api.svc.AttachDocument(ctx.Param("id"), actor, admission.Document{
		Type:     admission.DocumentType(data.Type),
		FileName: data.FileName,
		FileURL:  data.FileURL,
		MimeType: data.MimeType,
		FileSize: data.FileSize,
	})
	if err != nil {
		return errors.Wrap(err, "attaching document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *admissionApi) availableParallels(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	parallels, err := api.svc.AvailableParallels(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "listing available parallels")
	}
	return ctx.JSON(http.StatusOK, parallels)
}

func (api *admissionApi) startReview(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.SetUnderReview(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "starting review")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) requestCorrection(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data textRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to textRequest")
	}

	app, err := api.svc.RequestCorrection(ctx.Param("id"), actor, data.Text)
	if err != nil {
		return errors.Wrap(err, "requesting correction")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) scheduleCursillo(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data cursilloRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to cursilloRequest")
	}
	if data.Date.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}

	app, err := api.svc.ScheduleCursillo(ctx.Param("id"), actor, data.Date)
	if err != nil {
		return errors.Wrap(err, "scheduling cursillo")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) cursilloResult(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data cursilloResultRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to cursilloResultRequest")
	}

	app, err := api.svc.RecordCursilloResult(ctx.Param("id"), actor, data.Passed)
	if err != nil {
		return errors.Wrap(err, "recording cursillo result")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) approve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data approveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to approveRequest")
	}

	app, err := api.svc.Approve(ctx.Param("id"), actor, data.Notes)
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) reject(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data rejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rejectRequest")
	}

	app, err := api.svc.Reject(ctx.Param("id"), actor, data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) validatePayment(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.ValidatePayment(ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "validating payment")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) assignParallel(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data assignRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to assignRequest")
	}
	if data.Parallel == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "parallel", Error: "this field is required"})
	}

	app, err := api.svc.AssignParallel(ctx.Param("id"), data.Parallel, actor)
	if err != nil {
		return errors.Wrap(err, "assigning parallel")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) assignStaff(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data assignStaffRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to assignStaffRequest")
	}
	if data.StaffID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "staff_id", Error: "this field is required"})
	}

	app, err := api.svc.AssignToDirectivo(ctx.Param("id"), actor, data.StaffID)
	if err != nil {
		return errors.Wrap(err, "assigning reviewer")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) addComment(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data textRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to textRequest")
	}

	comment, err := api.svc.AddComment(ctx.Param("id"), actor, data.Text)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, comment)
}
