package serializer

import (
	"time"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/google/uuid"
)

// TimeLayout is ISO-8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

type SubmissionView struct {
	ID          uuid.UUID                `json:"id"`
	FormID      uuid.UUID                `json:"formId"`
	FormContent []map[string]interface{} `json:"formContent"`
	CreatedAt   string                   `json:"createdAt"`
	UpdatedAt   string                   `json:"updatedAt"`
}

func NewSubmissionView(s *model.FormSubmission) SubmissionView {
	content := s.FormContent.Data()
	if content == nil {
		content = []map[string]interface{}{}
	}
	return SubmissionView{
		ID:          s.ID,
		FormID:      s.FormID,
		FormContent: content,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

type FormView struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"userId"`
	FormName        string                   `json:"formName"`
	Slug            string                   `json:"formId"`
	FormDomain      string                   `json:"formDomain"`
	ClusterID       string                   `json:"clusterId"`
	UpdatedBy       string                   `json:"updatedBy"`
	ShareURL        string                   `json:"shareURL"`
	CoordinatorID   *uuid.UUID               `json:"coordinatorId"`
	Published       bool                     `json:"published"`
	FormFields      []map[string]interface{} `json:"formFields"`
	Visits          int64                    `json:"visits"`
	Submissions     int64                    `json:"submissions"`
	FormSubmissions []uuid.UUID              `json:"formSubmissions"`
	CreatedAt       string                   `json:"createdAt"`
	UpdatedAt       string                   `json:"updatedAt"`
}

func NewFormView(f *model.Form) FormView {
	fields := f.FormFields.Data()
	if fields == nil {
		fields = []map[string]interface{}{}
	}
	return FormView{
		ID:              f.ID,
		UserID:          f.UserID,
		FormName:        f.FormName,
		Slug:            f.Slug,
		FormDomain:      f.FormDomain,
		ClusterID:       f.ClusterID,
		UpdatedBy:       f.UpdatedBy,
		ShareURL:        f.ShareURL,
		CoordinatorID:   f.CoordinatorID,
		Published:       f.Published,
		FormFields:      fields,
		Visits:          f.Visits,
		Submissions:     f.Submissions,
		FormSubmissions: f.SubmissionIDs(),
		CreatedAt:       formatTime(f.CreatedAt),
		UpdatedAt:       formatTime(f.UpdatedAt),
	}
}

func NewFormViews(forms []model.Form) []FormView {
	out := make([]FormView, 0, len(forms))
	for i := range forms {
		out = append(out, NewFormView(&forms[i]))
	}
	return out
}

// FormWithSubmissionsView is a form whose reference list is expanded into the
// submissions themselves, newest first.
type FormWithSubmissionsView struct {
	FormView
	FormSubmissions []SubmissionView `json:"formSubmissions"`
	NextCursor      string           `json:"nextCursor,omitempty"`
	HasMore         bool             `json:"hasMore"`
}

func NewFormWithSubmissionsView(f *model.Form, subs []model.FormSubmission, nextCursor string, hasMore bool) FormWithSubmissionsView {
	views := make([]SubmissionView, 0, len(subs))
	for i := range subs {
		views = append(views, NewSubmissionView(&subs[i]))
	}
	return FormWithSubmissionsView{
		FormView:        NewFormView(f),
		FormSubmissions: views,
		NextCursor:      nextCursor,
		HasMore:         hasMore,
	}
}
