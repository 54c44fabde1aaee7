package handler

import (
	"errors"
	"net/http"

	"github.com/formcraft-io/formcraft/internal/middleware"
	"github.com/formcraft-io/formcraft/internal/modules/serializer"
	"github.com/formcraft-io/formcraft/internal/modules/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FormHandler struct {
	svc service.FormService
}

func NewFormHandler(s service.FormService) *FormHandler {
	return &FormHandler{svc: s}
}

// requireUser aborts with 401 when UserAuth did not run.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr(""))
	}
	return id, ok
}

func (h *FormHandler) formErr(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrFormNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("Form not found"))
	case errors.Is(err, service.ErrFormSlugTaken):
		c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, "Form id already in use", err))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr(msg, err))
	}
}

// GetStats godoc
//
//	@Summary	Form stats
//	@Tags		forms
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=service.FormStatsOutput}
//	@Router		/forms/stats [get]
func (h *FormHandler) GetStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		h.formErr(c, "Server Error", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(stats, "Form stats fetched successfully"))
}

type CreateFormReq struct {
	FormName   string                   `json:"formName" binding:"required,max=200" example:"Customer Feedback"`
	FormDomain string                   `json:"formDomain" binding:"max=200"`
	ClusterID  string                   `json:"clusterId" binding:"max=200"`
	FormID     string                   `json:"formId" binding:"omitempty,formslug"`
	FormFields []map[string]interface{} `json:"formFields"`
}

// CreateForm godoc
//
//	@Summary		Create form
//	@Description	Creates an unpublished form. formId is generated from formName when omitted.
//	@Tags			forms
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateFormReq	true	"Form"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=serializer.FormView}
//	@Router			/forms/create [post]
func (h *FormHandler) CreateForm(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	req := CreateFormReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	f, err := h.svc.Create(c.Request.Context(), service.CreateFormInput{
		UserID:     userID,
		FormName:   req.FormName,
		FormDomain: req.FormDomain,
		ClusterID:  req.ClusterID,
		Slug:       req.FormID,
		FormFields: req.FormFields,
	})
	if err != nil {
		h.formErr(c, "Failed to create form", err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Ok(serializer.NewFormView(f), "Form created successfully"))
}

func (h *FormHandler) ListForms(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	forms, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		h.formErr(c, "Failed to fetch forms", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(serializer.NewFormViews(forms), "Forms fetched successfully"))
}

type formSlugURI struct {
	Slug string `uri:"slug" binding:"required,formslug"`
}

func (h *FormHandler) GetFormBySlug(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	uri := formSlugURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid form id", err))
		return
	}
	f, err := h.svc.GetBySlug(c.Request.Context(), userID, uri.Slug)
	if err != nil {
		h.formErr(c, "Server Error", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(serializer.NewFormView(f), "Form fetched successfully"))
}

type formIDURI struct {
	FormID string `uri:"formId" binding:"required,formslug"`
}

// UpdateFormContent godoc
//
//	@Summary		Replace form fields
//	@Description	Body is the new JSON array of field definitions. Owner only.
//	@Tags			forms
//	@Accept			json
//	@Param			formId	path	string	true	"Form slug"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.FormView}
//	@Router			/forms/{formId} [put]
func (h *FormHandler) UpdateFormContent(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	uri := formIDURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid form id", err))
		return
	}
	var fields []map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("form fields must be a JSON array", err))
		return
	}
	if fields == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("form fields must be a JSON array", nil))
		return
	}

	f, err := h.svc.UpdateFields(c.Request.Context(), userID, uri.FormID, fields)
	if err != nil {
		h.formErr(c, "Failed to update form", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(serializer.NewFormView(f), "Form updated successfully"))
}

type PublishFormReq struct {
	Name          string `json:"name" binding:"required,max=200" example:"Jane Doe"`
	Email         string `json:"email" binding:"required,email" example:"jane@example.com"`
	PhoneNumber   string `json:"phoneNumber" binding:"max=32"`
	VehicleNumber string `json:"vehicleNumber" binding:"required,max=64"`
}

// PublishForm godoc
//
//	@Summary		Publish form
//	@Description	Assigns a coordinator, creating the account on first use, and marks the form published.
//	@Tags			forms
//	@Accept			json
//	@Param			formId	path	string					true	"Form slug"
//	@Param			payload	body	handler.PublishFormReq	true	"Coordinator"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.FormView}
//	@Router			/forms/{formId}/publish [put]
func (h *FormHandler) PublishForm(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	uri := formIDURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid form id", err))
		return
	}
	req := PublishFormReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	f, err := h.svc.Publish(c.Request.Context(), service.PublishFormInput{
		UserID: userID,
		Slug:   uri.FormID,
		Coordinator: service.CoordinatorInput{
			Name:          req.Name,
			Email:         req.Email,
			PhoneNumber:   req.PhoneNumber,
			VehicleNumber: req.VehicleNumber,
		},
	})
	if err != nil {
		h.formErr(c, "Failed to publish form", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(serializer.NewFormView(f), "Form published successfully"))
}

func (h *FormHandler) GetFormByURL(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	f, err := h.svc.GetByShareURL(c.Request.Context(), userID, c.Param("url"))
	if err != nil {
		h.formErr(c, "Server Error", err)
		return
	}
	c.JSON(http.StatusOK, serializer.Ok(serializer.NewFormView(f), "Form fetched successfully"))
}
