package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/formcraft-io/formcraft/internal/pkg/paging"
	"github.com/formcraft-io/formcraft/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName string, routingKey string, body any) error
}

type SubmissionService interface {
	Submit(ctx context.Context, in SubmitInput) (*model.FormSubmission, error)
	List(ctx context.Context, in ListSubmissionsInput) (*ListSubmissionsOutput, error)
	Get(ctx context.Context, submissionID uuid.UUID) (*model.FormSubmission, error)
}

type submissionService struct {
	store repo.Store
	pub   EventPublisher
	log   *zap.Logger
	cfg   *config.Config
}

// NewSubmissionService builds the service. pub may be nil to disable events.
func NewSubmissionService(store repo.Store, pub EventPublisher, log *zap.Logger, cfg *config.Config) SubmissionService {
	return &submissionService{store: store, pub: pub, log: log, cfg: cfg}
}

type SubmitInput struct {
	ShareURL string
	Content  []map[string]interface{}
}

// SubmissionCreatedEvent is published after a submission commits.
type SubmissionCreatedEvent struct {
	Type         string    `json:"type"`
	FormID       uuid.UUID `json:"formId"`
	SubmissionID uuid.UUID `json:"submissionId"`
	Position     int64     `json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
}

const submissionCreatedEventType = "form.submission.created"

// Submit persists content against the form addressed by ShareURL. The submission row,
// the counter increment and the reference append commit together or not at all.
func (s *submissionService) Submit(ctx context.Context, in SubmitInput) (*model.FormSubmission, error) {
	if in.ShareURL == "" {
		return nil, ErrFormNotFound
	}

	form, err := s.store.Forms().GetByShareURL(ctx, in.ShareURL)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("%w: resolve form: %v", ErrTransactionAborted, err)
	}

	start := time.Now()
	sub := &model.FormSubmission{
		FormID:      form.ID,
		FormContent: model.NewFields(in.Content),
	}
	var position int64
	err = s.store.Transaction(ctx, func(tx repo.Store) error {
		if err := tx.Submissions().Create(ctx, sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		n, err := tx.Forms().AppendSubmission(ctx, form.ID, sub.ID)
		if err != nil {
			return fmt.Errorf("append submission: %w", err)
		}
		position = n
		return nil
	})
	if err != nil {
		reason := "store"
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// form deleted between resolve and commit
			reason = "form_gone"
		}
		telemetry.RecordSubmissionFailed(ctx, reason, time.Since(start))
		s.log.Error("submit form failed",
			zap.String("form_id", form.ID.String()),
			zap.String("reason", reason),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}

	telemetry.RecordSubmissionCreated(ctx, time.Since(start))
	s.log.Info("form submitted",
		zap.String("form_id", form.ID.String()),
		zap.String("submission_id", sub.ID.String()),
		zap.Int64("position", position))

	s.publishCreated(ctx, sub, position)
	return sub, nil
}

func (s *submissionService) publishCreated(ctx context.Context, sub *model.FormSubmission, position int64) {
	if s.pub == nil {
		return
	}
	ev := SubmissionCreatedEvent{
		Type:         submissionCreatedEventType,
		FormID:       sub.FormID,
		SubmissionID: sub.ID,
		Position:     position,
		CreatedAt:    sub.CreatedAt,
	}
	if err := s.pub.PublishJSON(ctx,
		s.cfg.RabbitMQ.ExchangeName.FormSubmission,
		s.cfg.RabbitMQ.RoutingKey.FormSubmissionCreated,
		ev,
	); err != nil {
		s.log.Warn("publish submission event failed",
			zap.String("submission_id", sub.ID.String()),
			zap.Error(err))
	}
}

type ListSubmissionsInput struct {
	FormID uuid.UUID
	UserID uuid.UUID
	// Limit <= 0 returns every submission.
	Limit  int
	Cursor string
}

type ListSubmissionsOutput struct {
	Form        *model.Form
	Submissions []model.FormSubmission
	NextCursor  string
	HasMore     bool
}

// List returns the submissions of a form owned by UserID, newest first. A form the
// user does not own is reported as ErrFormNotFound.
func (s *submissionService) List(ctx context.Context, in ListSubmissionsInput) (*ListSubmissionsOutput, error) {
	form, err := s.store.Forms().GetOwnedByID(ctx, in.UserID, in.FormID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}

	var afterT time.Time
	var afterID uuid.UUID
	if in.Cursor != "" {
		if afterT, afterID, err = paging.DecodeCursor(in.Cursor); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	fetch := 0
	if in.Limit > 0 {
		// one extra row tells us whether another page exists
		fetch = in.Limit + 1
	}
	items, err := s.store.Submissions().ListByFormWithCursor(ctx, form.ID, afterT, afterID, fetch)
	if err != nil {
		return nil, err
	}

	out := &ListSubmissionsOutput{Form: form, Submissions: items}
	if in.Limit > 0 && len(items) > in.Limit {
		out.Submissions = items[:in.Limit]
		last := out.Submissions[len(out.Submissions)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
		out.HasMore = true
	}
	if out.Submissions == nil {
		out.Submissions = []model.FormSubmission{}
	}
	return out, nil
}

// Get is a lookup by id without an ownership check.
func (s *submissionService) Get(ctx context.Context, submissionID uuid.UUID) (*model.FormSubmission, error) {
	sub, err := s.store.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}
