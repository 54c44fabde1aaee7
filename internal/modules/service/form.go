package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/formcraft-io/formcraft/internal/pkg/utils/slug"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// slugAttempts bounds regeneration when a generated slug or share token collides.
const slugAttempts = 3

type FormService interface {
	Stats(ctx context.Context, userID uuid.UUID) (*FormStatsOutput, error)
	Create(ctx context.Context, in CreateFormInput) (*model.Form, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Form, error)
	GetBySlug(ctx context.Context, userID uuid.UUID, formSlug string) (*model.Form, error)
	UpdateFields(ctx context.Context, userID uuid.UUID, formSlug string, fields []map[string]interface{}) (*model.Form, error)
	Publish(ctx context.Context, in PublishFormInput) (*model.Form, error)
	GetByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error)
}

type formService struct {
	store repo.Store
	users UserService
	log   *zap.Logger
}

func NewFormService(store repo.Store, users UserService, log *zap.Logger) FormService {
	return &formService{store: store, users: users, log: log}
}

type FormStatsOutput struct {
	repo.FormStats
	// SubmissionRate is submissions per 100 visits, 0 when there are no visits.
	SubmissionRate float64 `json:"submissionRate"`
}

func (s *formService) Stats(ctx context.Context, userID uuid.UUID) (*FormStatsOutput, error) {
	st, err := s.store.Forms().Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &FormStatsOutput{FormStats: *st}
	if st.TotalVisits > 0 {
		rate := float64(st.TotalSubmissions) / float64(st.TotalVisits) * 100
		out.SubmissionRate = math.Round(rate*100) / 100
	}
	return out, nil
}

type CreateFormInput struct {
	UserID     uuid.UUID
	FormName   string
	FormDomain string
	ClusterID  string
	// Slug is generated from FormName when empty.
	Slug       string
	FormFields []map[string]interface{}
}

func (s *formService) Create(ctx context.Context, in CreateFormInput) (*model.Form, error) {
	if in.FormName == "" {
		return nil, fmt.Errorf("%w: formName is required", ErrInvalidInput)
	}

	for attempt := 1; ; attempt++ {
		formSlug := in.Slug
		if formSlug == "" {
			generated, err := slug.FromLabel(in.FormName)
			if err != nil {
				return nil, err
			}
			formSlug = generated
		}

		f := &model.Form{
			UserID:     in.UserID,
			FormName:   in.FormName,
			Slug:       formSlug,
			FormDomain: in.FormDomain,
			ClusterID:  in.ClusterID,
			UpdatedBy:  in.UserID.String(),
			ShareURL:   slug.ShareToken(),
			FormFields: model.NewFields(in.FormFields),
		}
		err := s.store.Forms().Create(ctx, f)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// a caller-chosen slug is never rewritten
		if in.Slug != "" || attempt == slugAttempts {
			return nil, ErrFormSlugTaken
		}
		s.log.Debug("form key collision, retrying", zap.String("slug", formSlug), zap.Int("attempt", attempt))
	}
}

func (s *formService) List(ctx context.Context, userID uuid.UUID) ([]model.Form, error) {
	forms, err := s.store.Forms().ListAccessible(ctx, userID)
	if err != nil {
		return nil, err
	}
	if forms == nil {
		forms = []model.Form{}
	}
	return forms, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrFormNotFound
	}
	return err
}

func (s *formService) GetBySlug(ctx context.Context, userID uuid.UUID, formSlug string) (*model.Form, error) {
	f, err := s.store.Forms().GetAccessibleBySlug(ctx, userID, formSlug)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// UpdateFields replaces the field definitions of a form owned by userID.
func (s *formService) UpdateFields(ctx context.Context, userID uuid.UUID, formSlug string, fields []map[string]interface{}) (*model.Form, error) {
	f, err := s.store.Forms().UpdateFields(ctx, userID, formSlug, fields)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

type PublishFormInput struct {
	UserID      uuid.UUID
	Slug        string
	Coordinator CoordinatorInput
}

// Publish assigns a coordinator, creating the account when the email is new, and
// marks the form published. Both writes share one transaction.
func (s *formService) Publish(ctx context.Context, in PublishFormInput) (*model.Form, error) {
	candidate, err := s.users.NewCoordinator(in.Coordinator)
	if err != nil {
		return nil, err
	}

	var published *model.Form
	err = s.store.Transaction(ctx, func(tx repo.Store) error {
		coordinator, created, err := tx.Users().GetOrCreateByEmail(ctx, candidate)
		if err != nil {
			return fmt.Errorf("resolve coordinator: %w", err)
		}
		if created {
			s.log.Info("coordinator account created", zap.String("user_id", coordinator.ID.String()))
		}

		published, err = tx.Forms().Publish(ctx, in.UserID, in.Slug, coordinator.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	return published, nil
}

func (s *formService) GetByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error) {
	f, err := s.store.Forms().GetOwnedByShareURL(ctx, userID, shareURL)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}
