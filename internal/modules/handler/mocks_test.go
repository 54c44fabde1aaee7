package handler

import (
	"context"

	"github.com/formcraft-io/formcraft/internal/middleware"
	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/formcraft-io/formcraft/internal/modules/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

// asUser stands in for middleware.UserAuth.
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Next()
	}
}

// MockSubmissionService is a mock implementation of SubmissionService
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, in service.SubmitInput) (*model.FormSubmission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FormSubmission), args.Error(1)
}

func (m *MockSubmissionService) List(ctx context.Context, in service.ListSubmissionsInput) (*service.ListSubmissionsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListSubmissionsOutput), args.Error(1)
}

func (m *MockSubmissionService) Get(ctx context.Context, submissionID uuid.UUID) (*model.FormSubmission, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FormSubmission), args.Error(1)
}

// MockFormService is a mock implementation of FormService
type MockFormService struct {
	mock.Mock
}

func (m *MockFormService) Stats(ctx context.Context, userID uuid.UUID) (*service.FormStatsOutput, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FormStatsOutput), args.Error(1)
}

func (m *MockFormService) Create(ctx context.Context, in service.CreateFormInput) (*model.Form, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormService) List(ctx context.Context, userID uuid.UUID) ([]model.Form, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Form), args.Error(1)
}

func (m *MockFormService) GetBySlug(ctx context.Context, userID uuid.UUID, formSlug string) (*model.Form, error) {
	args := m.Called(ctx, userID, formSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormService) UpdateFields(ctx context.Context, userID uuid.UUID, formSlug string, fields []map[string]interface{}) (*model.Form, error) {
	args := m.Called(ctx, userID, formSlug, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormService) Publish(ctx context.Context, in service.PublishFormInput) (*model.Form, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormService) GetByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error) {
	args := m.Called(ctx, userID, shareURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) NewCoordinator(in service.CoordinatorInput) (*model.User, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
