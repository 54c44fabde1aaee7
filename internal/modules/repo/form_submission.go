package repo

import (
	"context"
	"time"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FormSubmissionRepo interface {
	Create(ctx context.Context, s *model.FormSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.FormSubmission, error)
	// ListByFormWithCursor returns the form's referenced submissions newest first.
	// A limit <= 0 returns every row after the cursor.
	ListByFormWithCursor(ctx context.Context, formID uuid.UUID, beforeCreatedAt time.Time, beforeID uuid.UUID, limit int) ([]model.FormSubmission, error)
}

type formSubmissionRepo struct{ db *gorm.DB }

func NewFormSubmissionRepo(db *gorm.DB) FormSubmissionRepo {
	return &formSubmissionRepo{db: db}
}

func (r *formSubmissionRepo) Create(ctx context.Context, s *model.FormSubmission) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *formSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.FormSubmission, error) {
	var s model.FormSubmission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *formSubmissionRepo) ListByFormWithCursor(ctx context.Context, formID uuid.UUID, beforeCreatedAt time.Time, beforeID uuid.UUID, limit int) ([]model.FormSubmission, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN form_submission_refs ON form_submission_refs.submission_id = form_submissions.id AND form_submission_refs.form_id = form_submissions.form_id").
		Where("form_submissions.form_id = ?", formID)

	if !beforeCreatedAt.IsZero() && beforeID != uuid.Nil {
		q = q.Where(
			"(form_submissions.created_at < ?) OR (form_submissions.created_at = ? AND form_submissions.id < ?)",
			beforeCreatedAt, beforeCreatedAt, beforeID,
		)
	}

	q = q.Order("form_submissions.created_at DESC, form_submissions.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var items []model.FormSubmission
	return items, q.Find(&items).Error
}
