package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Fields is an ordered list of opaque JSON objects (field definitions or filled values).
type Fields = datatypes.JSONType[[]map[string]interface{}]

// NewFields wraps items, normalising nil to an empty list so the column never stores JSON null.
func NewFields(items []map[string]interface{}) Fields {
	if items == nil {
		items = []map[string]interface{}{}
	}
	return datatypes.NewJSONType(items)
}

type Form struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:ix_form_user_id" json:"userId"`

	FormName   string `gorm:"type:text;not null" json:"formName"`
	Slug       string `gorm:"type:text;not null;uniqueIndex:uq_form_slug" json:"formId"`
	FormDomain string `gorm:"type:text;not null;default:''" json:"formDomain"`
	ClusterID  string `gorm:"type:text;not null;default:''" json:"clusterId"`
	UpdatedBy  string `gorm:"type:text;not null;default:''" json:"updatedBy"`

	// ShareURL is the public submission token.
	ShareURL      string     `gorm:"type:text;not null;uniqueIndex:uq_form_share_url" json:"shareURL"`
	CoordinatorID *uuid.UUID `gorm:"type:uuid;index:ix_form_coordinator_id" json:"coordinatorId"`
	Published     bool       `gorm:"not null;default:false" json:"published"`

	FormFields Fields `gorm:"type:jsonb;not null" swaggertype:"array,object" json:"formFields"`

	Visits      int64 `gorm:"not null;default:0;check:chk_form_visits,visits >= 0" json:"visits"`
	Submissions int64 `gorm:"not null;default:0;check:chk_form_submissions,submissions >= 0" json:"submissions"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Form <-> User (owner)
	Owner *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Form <-> User (coordinator)
	Coordinator *User `gorm:"foreignKey:CoordinatorID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`

	// Form <-> FormSubmissionRef, ordered by Position
	SubmissionRefs []FormSubmissionRef `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Form <-> FormSubmission
	FormSubmissions []FormSubmission `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Form) TableName() string { return "forms" }

// SubmissionIDs returns the reference list in append order.
func (f *Form) SubmissionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.SubmissionRefs))
	for _, ref := range f.SubmissionRefs {
		ids = append(ids, ref.SubmissionID)
	}
	return ids
}

// FormSubmissionRef is one entry of a form's ordered submission list.
// Positions run 1..forms.submissions for each form.
type FormSubmissionRef struct {
	FormID       uuid.UUID `gorm:"type:uuid;primaryKey;uniqueIndex:uq_form_submission_ref_position,priority:1" json:"formId"`
	SubmissionID uuid.UUID `gorm:"type:uuid;primaryKey;uniqueIndex:uq_form_submission_ref_submission" json:"submissionId"`
	Position     int64     `gorm:"not null;uniqueIndex:uq_form_submission_ref_position,priority:2;check:chk_form_submission_ref_position,position > 0" json:"position"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`

	// FormSubmissionRef <-> FormSubmission
	Submission *FormSubmission `gorm:"foreignKey:SubmissionID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (FormSubmissionRef) TableName() string { return "form_submission_refs" }
