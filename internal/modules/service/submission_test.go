package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/formcraft-io/formcraft/internal/pkg/paging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, exchangeName string, routingKey string, body any) error {
	args := m.Called(ctx, exchangeName, routingKey, body)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RabbitMQ.ExchangeName.FormSubmission = "formcraft.form_submission"
	cfg.RabbitMQ.RoutingKey.FormSubmissionCreated = "form_submission.created"
	return cfg
}

func newTestSubmissionService(pub EventPublisher) (SubmissionService, *fakeDB, *fakeStore) {
	store, db := newFakeStore()
	return NewSubmissionService(store, pub, zap.NewNop(), testConfig()), db, store
}

// assertConsistent checks that every form counter matches its reference list and
// that no submission exists without a reference.
func assertConsistent(t *testing.T, db *fakeDB) {
	t.Helper()
	st := db.snapshot()
	referenced := map[uuid.UUID]bool{}
	for id, f := range st.forms {
		refs := st.refs[id]
		assert.Equal(t, f.Submissions, int64(len(refs)), "form %s counter drifted", id)
		for i, ref := range refs {
			assert.Equal(t, int64(i+1), ref.Position)
			referenced[ref.SubmissionID] = true
		}
	}
	for id := range st.subs {
		assert.True(t, referenced[id], "orphan submission %s", id)
	}
}

func TestSubmissionService_Submit(t *testing.T) {
	content := []map[string]interface{}{{"q": "name", "a": "Alice"}}

	t.Run("successful submission", func(t *testing.T) {
		pub := &MockEventPublisher{}
		pub.On("PublishJSON", mock.Anything, "formcraft.form_submission", "form_submission.created",
			mock.MatchedBy(func(ev SubmissionCreatedEvent) bool {
				return ev.Type == "form.submission.created" && ev.Position == 1
			})).Return(nil).Once()

		svc, db, _ := newTestSubmissionService(pub)
		owner := uuid.New()
		form := seedForm(db, owner, "abc123")

		sub, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123", Content: content})
		require.NoError(t, err)
		assert.Equal(t, form.ID, sub.FormID)
		assert.NotEqual(t, uuid.Nil, sub.ID)
		assert.Equal(t, content, sub.FormContent.Data())

		st := db.snapshot()
		assert.Equal(t, int64(1), st.forms[form.ID].Submissions)
		require.Len(t, st.refs[form.ID], 1)
		assert.Equal(t, sub.ID, st.refs[form.ID][0].SubmissionID)

		out, err := svc.List(context.Background(), ListSubmissionsInput{FormID: form.ID, UserID: owner})
		require.NoError(t, err)
		require.Len(t, out.Submissions, 1)
		assert.Equal(t, content, out.Submissions[0].FormContent.Data())

		assert.Equal(t, int64(1), db.commits.Load())
		assertConsistent(t, db)
		pub.AssertExpectations(t)
	})

	t.Run("empty content is accepted", func(t *testing.T) {
		svc, db, _ := newTestSubmissionService(nil)
		seedForm(db, uuid.New(), "abc123")

		sub, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123"})
		require.NoError(t, err)
		assert.Empty(t, sub.FormContent.Data())
		assertConsistent(t, db)
	})

	t.Run("unknown share token", func(t *testing.T) {
		svc, db, _ := newTestSubmissionService(nil)
		seedForm(db, uuid.New(), "abc123")

		_, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "does-not-exist", Content: content})
		assert.ErrorIs(t, err, ErrFormNotFound)

		st := db.snapshot()
		assert.Empty(t, st.subs)
		assert.Zero(t, db.commits.Load())
		assert.Zero(t, db.rollbacks.Load(), "no transaction should be opened")
	})

	t.Run("empty share token", func(t *testing.T) {
		svc, _, _ := newTestSubmissionService(nil)
		_, err := svc.Submit(context.Background(), SubmitInput{})
		assert.ErrorIs(t, err, ErrFormNotFound)
	})

	t.Run("duplicate content is a new submission", func(t *testing.T) {
		svc, db, _ := newTestSubmissionService(nil)
		form := seedForm(db, uuid.New(), "abc123")

		first, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123", Content: content})
		require.NoError(t, err)
		second, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123", Content: content})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, int64(2), db.snapshot().forms[form.ID].Submissions)
		assertConsistent(t, db)
	})

	t.Run("publish failure does not fail the submission", func(t *testing.T) {
		pub := &MockEventPublisher{}
		pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("broker down")).Once()

		svc, db, _ := newTestSubmissionService(pub)
		seedForm(db, uuid.New(), "abc123")

		_, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123", Content: content})
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})
}

func TestSubmissionService_Submit_RollsBack(t *testing.T) {
	content := []map[string]interface{}{{"q": "name", "a": "Alice"}}

	tests := []struct {
		name    string
		inject  func(db *fakeDB)
		wantErr error
	}{
		{
			name:    "append fails",
			inject:  func(db *fakeDB) { db.failAppend = errors.New("connection reset") },
			wantErr: ErrTransactionAborted,
		},
		{
			name:    "submission insert fails",
			inject:  func(db *fakeDB) { db.failCreateSubmission = errors.New("disk full") },
			wantErr: ErrTransactionAborted,
		},
		{
			name:    "form removed before append",
			inject:  func(db *fakeDB) { db.dropFormOnAppend = true },
			wantErr: ErrTransactionAborted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &MockEventPublisher{}
			svc, db, _ := newTestSubmissionService(pub)
			form := seedForm(db, uuid.New(), "abc123")
			tt.inject(db)

			sub, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123", Content: content})
			assert.Nil(t, sub)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, ErrFormNotFound, "failures after the transaction opens are not lookups")

			st := db.snapshot()
			assert.Zero(t, st.forms[form.ID].Submissions)
			assert.Empty(t, st.refs[form.ID])
			assert.Empty(t, st.subs, "failed submit must not leave a submission behind")
			assert.Equal(t, int64(1), db.rollbacks.Load())
			assertConsistent(t, db)
			pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmissionService_Submit_PanicRollsBack(t *testing.T) {
	svc, db, _ := newTestSubmissionService(nil)
	form := seedForm(db, uuid.New(), "abc123")
	db.panicAppend = true

	assert.Panics(t, func() {
		_, _ = svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123"})
	})

	st := db.snapshot()
	assert.Zero(t, st.forms[form.ID].Submissions)
	assert.Empty(t, st.subs)
	assert.Equal(t, int64(1), db.rollbacks.Load())
}

func TestSubmissionService_Submit_CancelledContext(t *testing.T) {
	svc, db, _ := newTestSubmissionService(nil)
	seedForm(db, uuid.New(), "abc123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, SubmitInput{ShareURL: "abc123"})
	assert.ErrorIs(t, err, ErrTransactionAborted)
	assert.Empty(t, db.snapshot().subs)
}

func TestSubmissionService_Submit_Concurrent(t *testing.T) {
	const n = 50

	svc, db, _ := newTestSubmissionService(nil)
	owner := uuid.New()
	form := seedForm(db, owner, "abc123")

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := svc.Submit(context.Background(), SubmitInput{
				ShareURL: "abc123",
				Content:  []map[string]interface{}{{"i": i}},
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- sub.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("submit failed: %v", err)
	}

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate submission id")
		seen[id] = true

		got, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, form.ID, got.FormID)
	}
	assert.Len(t, seen, n)

	st := db.snapshot()
	assert.Equal(t, int64(n), st.forms[form.ID].Submissions)
	assert.Len(t, st.refs[form.ID], n)
	assertConsistent(t, db)
}

func TestSubmissionService_List(t *testing.T) {
	svc, db, store := newTestSubmissionService(nil)
	owner := uuid.New()
	form := seedForm(db, owner, "abc123")

	// db.now is strictly increasing, so t1 < t2 < t3
	var created []uuid.UUID
	for i := 0; i < 3; i++ {
		sub, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123"})
		require.NoError(t, err)
		created = append(created, sub.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		out, err := svc.List(context.Background(), ListSubmissionsInput{FormID: form.ID, UserID: owner})
		require.NoError(t, err)
		require.Len(t, out.Submissions, 3)
		assert.Equal(t, created[2], out.Submissions[0].ID)
		assert.Equal(t, created[1], out.Submissions[1].ID)
		assert.Equal(t, created[0], out.Submissions[2].ID)
		assert.False(t, out.HasMore)
		assert.Empty(t, out.NextCursor)
		assert.Equal(t, form.ID, out.Form.ID)
	})

	t.Run("not owner", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListSubmissionsInput{FormID: form.ID, UserID: uuid.New()})
		assert.ErrorIs(t, err, ErrFormNotFound)
	})

	t.Run("unknown form", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListSubmissionsInput{FormID: uuid.New(), UserID: owner})
		assert.ErrorIs(t, err, ErrFormNotFound)
	})

	t.Run("paged", func(t *testing.T) {
		page1, err := svc.List(context.Background(), ListSubmissionsInput{FormID: form.ID, UserID: owner, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page1.Submissions, 2)
		assert.True(t, page1.HasMore)
		require.NotEmpty(t, page1.NextCursor)

		page2, err := svc.List(context.Background(), ListSubmissionsInput{
			FormID: form.ID, UserID: owner, Limit: 2, Cursor: page1.NextCursor,
		})
		require.NoError(t, err)
		require.Len(t, page2.Submissions, 1)
		assert.False(t, page2.HasMore)
		assert.Equal(t, created[0], page2.Submissions[0].ID)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListSubmissionsInput{FormID: form.ID, UserID: owner, Cursor: "%%%"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty form lists nothing", func(t *testing.T) {
		other := seedForm(db, owner, "empty")
		out, err := svc.List(context.Background(), ListSubmissionsInput{FormID: other.ID, UserID: owner})
		require.NoError(t, err)
		assert.NotNil(t, out.Submissions)
		assert.Empty(t, out.Submissions)
	})

	t.Run("cursor from another position", func(t *testing.T) {
		last, err := store.Submissions().GetByID(context.Background(), created[1])
		require.NoError(t, err)
		out, err := svc.List(context.Background(), ListSubmissionsInput{
			FormID: form.ID, UserID: owner, Cursor: paging.EncodeCursor(last.CreatedAt, last.ID),
		})
		require.NoError(t, err)
		require.Len(t, out.Submissions, 1)
		assert.Equal(t, created[0], out.Submissions[0].ID)
	})
}

func TestSubmissionService_Get(t *testing.T) {
	svc, db, _ := newTestSubmissionService(nil)
	form := seedForm(db, uuid.New(), "abc123")
	sub, err := svc.Submit(context.Background(), SubmitInput{ShareURL: "abc123"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, form.ID, got.FormID)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}
