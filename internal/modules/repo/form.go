package repo

import (
	"context"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FormRepo interface {
	Create(ctx context.Context, f *model.Form) error
	GetByShareURL(ctx context.Context, shareURL string) (*model.Form, error)
	GetOwnedByID(ctx context.Context, userID uuid.UUID, formID uuid.UUID) (*model.Form, error)
	GetOwnedByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error)
	GetAccessibleBySlug(ctx context.Context, userID uuid.UUID, slug string) (*model.Form, error)
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]model.Form, error)
	UpdateFields(ctx context.Context, userID uuid.UUID, slug string, fields []map[string]interface{}) (*model.Form, error)
	Publish(ctx context.Context, userID uuid.UUID, slug string, coordinatorID uuid.UUID) (*model.Form, error)
	AppendSubmission(ctx context.Context, formID uuid.UUID, submissionID uuid.UUID) (int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (*FormStats, error)
	FindCountDrift(ctx context.Context, limit int) ([]CountDrift, error)
}

type FormStats struct {
	TotalForms       int64 `json:"totalForms"`
	PublishedForms   int64 `json:"publishedForms"`
	TotalVisits      int64 `json:"totalVisits"`
	TotalSubmissions int64 `json:"totalSubmissions"`
}

// CountDrift is a form whose submissions counter disagrees with its reference list.
type CountDrift struct {
	FormID  uuid.UUID `json:"formId"`
	Counter int64     `json:"counter"`
	Refs    int64     `json:"refs"`
}

type formRepo struct{ db *gorm.DB }

func NewFormRepo(db *gorm.DB) FormRepo {
	return &formRepo{db: db}
}

func withRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("SubmissionRefs", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *formRepo) first(ctx context.Context, query string, args ...interface{}) (*model.Form, error) {
	var f model.Form
	if err := withRefs(r.db.WithContext(ctx)).Where(query, args...).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *formRepo) Create(ctx context.Context, f *model.Form) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *formRepo) GetByShareURL(ctx context.Context, shareURL string) (*model.Form, error) {
	var f model.Form
	if err := r.db.WithContext(ctx).Where("share_url = ?", shareURL).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *formRepo) GetOwnedByID(ctx context.Context, userID uuid.UUID, formID uuid.UUID) (*model.Form, error) {
	return r.first(ctx, "id = ? AND user_id = ?", formID, userID)
}

func (r *formRepo) GetOwnedByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error) {
	return r.first(ctx, "share_url = ? AND user_id = ?", shareURL, userID)
}

func (r *formRepo) GetAccessibleBySlug(ctx context.Context, userID uuid.UUID, slug string) (*model.Form, error) {
	return r.first(ctx, "slug = ? AND (user_id = ? OR coordinator_id = ?)", slug, userID, userID)
}

func (r *formRepo) ListAccessible(ctx context.Context, userID uuid.UUID) ([]model.Form, error) {
	var forms []model.Form
	err := withRefs(r.db.WithContext(ctx)).
		Where("user_id = ? OR coordinator_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&forms).Error
	return forms, err
}

func (r *formRepo) UpdateFields(ctx context.Context, userID uuid.UUID, slug string, fields []map[string]interface{}) (*model.Form, error) {
	res := r.db.WithContext(ctx).Model(&model.Form{}).
		Where("slug = ? AND user_id = ?", slug, userID).
		Updates(map[string]interface{}{
			"form_fields": model.NewFields(fields),
			"updated_by":  userID.String(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.first(ctx, "slug = ? AND user_id = ?", slug, userID)
}

func (r *formRepo) Publish(ctx context.Context, userID uuid.UUID, slug string, coordinatorID uuid.UUID) (*model.Form, error) {
	res := r.db.WithContext(ctx).Model(&model.Form{}).
		Where("slug = ? AND user_id = ?", slug, userID).
		Updates(map[string]interface{}{
			"published":      true,
			"coordinator_id": coordinatorID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.first(ctx, "slug = ? AND user_id = ?", slug, userID)
}

// AppendSubmission increments the form's counter and appends submissionID to its
// reference list, returning the new counter. The increment is a single UPDATE, so its
// row lock orders concurrent appenders until their transaction ends. It issues two
// statements and must run inside Store.Transaction.
func (r *formRepo) AppendSubmission(ctx context.Context, formID uuid.UUID, submissionID uuid.UUID) (int64, error) {
	var f model.Form
	res := r.db.WithContext(ctx).Model(&f).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "submissions"}}}).
		Where("id = ?", formID).
		Updates(map[string]interface{}{"submissions": gorm.Expr("submissions + 1")})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	ref := model.FormSubmissionRef{
		FormID:       formID,
		SubmissionID: submissionID,
		Position:     f.Submissions,
	}
	if err := r.db.WithContext(ctx).Create(&ref).Error; err != nil {
		return 0, err
	}
	return f.Submissions, nil
}

func (r *formRepo) Stats(ctx context.Context, userID uuid.UUID) (*FormStats, error) {
	var stats FormStats
	err := r.db.WithContext(ctx).Model(&model.Form{}).
		Select(`COUNT(*) AS total_forms,
			COUNT(*) FILTER (WHERE published) AS published_forms,
			COALESCE(SUM(visits), 0) AS total_visits,
			COALESCE(SUM(submissions), 0) AS total_submissions`).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *formRepo) FindCountDrift(ctx context.Context, limit int) ([]CountDrift, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []CountDrift
	err := r.db.WithContext(ctx).Raw(`
		SELECT f.id AS form_id, f.submissions AS counter, COUNT(r.submission_id) AS refs
		FROM forms f
		LEFT JOIN form_submission_refs r ON r.form_id = f.id
		GROUP BY f.id, f.submissions
		HAVING f.submissions <> COUNT(r.submission_id)
		ORDER BY f.id
		LIMIT ?`, limit).Scan(&out).Error
	return out, err
}
