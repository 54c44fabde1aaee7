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

type SubmissionHandler struct {
	svc service.SubmissionService
}

func NewSubmissionHandler(s service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: s}
}

type SubmitFormReq struct {
	FormURL string                   `json:"formUrl" binding:"required" example:"3f1c8d1e-7b7a-4c36-9a55-2a0c3c5f9d10"`
	Content []map[string]interface{} `json:"content" binding:"required"`
}

type SubmitFormContentReq struct {
	Content []map[string]interface{} `json:"content" binding:"required"`
}

// Submit godoc
//
//	@Summary		Submit a form
//	@Description	Public endpoint. Stores the filled values against the form addressed by its share URL.
//	@Tags			form-submissions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		handler.SubmitFormReq	true	"Share URL and filled values"
//	@Success		201		{object}	serializer.Response{data=serializer.SubmissionView}
//	@Failure		404		{object}	serializer.Response
//	@Failure		429		{object}	serializer.Response
//	@Router			/form-submissions/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	req := SubmitFormReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("formUrl and content are required", err))
		return
	}
	h.submit(c, req.FormURL, req.Content)
}

// SubmitByPath is Submit with the share URL taken from the path.
//
//	@Router	/form-submissions/submit/{formUrl} [post]
func (h *SubmissionHandler) SubmitByPath(c *gin.Context) {
	req := SubmitFormContentReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("content is required", err))
		return
	}
	h.submit(c, c.Param("formUrl"), req.Content)
}

func (h *SubmissionHandler) submit(c *gin.Context, shareURL string, content []map[string]interface{}) {
	sub, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		ShareURL: shareURL,
		Content:  content,
	})
	if err != nil {
		if errors.Is(err, service.ErrFormNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("Form not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("Failed to submit form", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Ok(serializer.NewSubmissionView(sub), ""))
}

type ListSubmissionsReq struct {
	Limit  int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=200" example:"20"`
	Cursor string `form:"cursor" json:"cursor"`
}

// ListSubmissions godoc
//
//	@Summary		List form submissions
//	@Description	Returns an owned form with its submissions newest first. Without limit every submission is returned.
//	@Tags			form-submissions
//	@Produce		json
//	@Param			formId	path	string	true	"Form ID"	Format(uuid)
//	@Param			limit	query	integer	false	"Page size, 1 to 200"
//	@Param			cursor	query	string	false	"Cursor from a previous page"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.FormWithSubmissionsView}
//	@Router			/form-submissions/{formId} [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}

	formID, err := uuid.Parse(c.Param("formId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid form id", err))
		return
	}

	req := ListSubmissionsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListSubmissionsInput{
		FormID: formID,
		UserID: userID,
		Limit:  req.Limit,
		Cursor: req.Cursor,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFormNotFound):
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("Form not found"))
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid cursor", err))
		default:
			c.JSON(http.StatusInternalServerError, serializer.DBErr("Failed to fetch submissions", err))
		}
		return
	}

	view := serializer.NewFormWithSubmissionsView(out.Form, out.Submissions, out.NextCursor, out.HasMore)
	c.JSON(http.StatusOK, serializer.Ok(view, "Submissions fetched successfully"))
}

// GetSubmission returns one submission by id to any authenticated caller.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("submissionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid submission id", err))
		return
	}

	sub, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("Submission not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("Failed to fetch submission", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Ok(serializer.NewSubmissionView(sub), "Submission fetched successfully"))
}
