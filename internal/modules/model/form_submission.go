package model

import (
	"time"

	"github.com/google/uuid"
)

// FormSubmission is immutable once written; nothing updates it.
type FormSubmission struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FormID uuid.UUID `gorm:"type:uuid;not null;index:ix_form_submission_form_id;index:ix_form_submission_form_created,priority:1" json:"formId"`

	FormContent Fields `gorm:"type:jsonb;not null" swaggertype:"array,object" json:"formContent"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index:ix_form_submission_form_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// FormSubmission <-> Form
	Form *Form `gorm:"foreignKey:FormID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (FormSubmission) TableName() string { return "form_submissions" }
