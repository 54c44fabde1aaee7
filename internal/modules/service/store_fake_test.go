package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/formcraft-io/formcraft/internal/modules/model"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memState is the committed content of the fake database.
type memState struct {
	forms map[uuid.UUID]model.Form
	refs  map[uuid.UUID][]model.FormSubmissionRef
	subs  map[uuid.UUID]model.FormSubmission
	users map[uuid.UUID]model.User
}

func newMemState() *memState {
	return &memState{
		forms: map[uuid.UUID]model.Form{},
		refs:  map[uuid.UUID][]model.FormSubmissionRef{},
		subs:  map[uuid.UUID]model.FormSubmission{},
		users: map[uuid.UUID]model.User{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.forms {
		c.forms[k] = v
	}
	for k, v := range s.refs {
		c.refs[k] = append([]model.FormSubmissionRef(nil), v...)
	}
	for k, v := range s.subs {
		c.subs[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// fakeDB behaves like a single postgres database: transactions see a private copy
// and are serialized, which is what the row lock on forms gives the real store.
type fakeDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state *memState

	base time.Time
	seq  atomic.Int64

	commits   atomic.Int64
	rollbacks atomic.Int64

	failCreateSubmission error
	failAppend           error
	panicAppend          bool
	// dropFormOnAppend deletes the form inside the transaction just before the increment
	dropFormOnAppend bool
	failCreateUser       error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		state: newMemState(),
		base:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// now returns strictly increasing timestamps, one millisecond apart.
func (db *fakeDB) now() time.Time {
	return db.base.Add(time.Duration(db.seq.Add(1)) * time.Millisecond)
}

func (db *fakeDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

type fakeStore struct {
	db *fakeDB
	tx *memState
}

func newFakeStore() (*fakeStore, *fakeDB) {
	db := newFakeDB()
	return &fakeStore{db: db}, db
}

var _ repo.Store = (*fakeStore)(nil)

func (s *fakeStore) view(fn func(st *memState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.state)
}

func (s *fakeStore) Forms() repo.FormRepo                 { return fakeForms{s} }
func (s *fakeStore) Submissions() repo.FormSubmissionRepo { return fakeSubmissions{s} }
func (s *fakeStore) Users() repo.UserRepo                 { return fakeUsers{s} }

// Transaction holds txMu for the whole callback, so concurrent transactions run one
// after another. Row locking and RETURNING under real concurrency are covered by the
// postgres tests in repo/store_test.go.
func (s *fakeStore) Transaction(ctx context.Context, fn func(tx repo.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	work := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.db.rollbacks.Add(1)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(&fakeStore{db: s.db, tx: work}); err != nil {
		return err
	}

	s.db.mu.Lock()
	s.db.state = work
	s.db.mu.Unlock()
	committed = true
	s.db.commits.Add(1)
	return nil
}

func (s *fakeStore) snapshot() *memState { return s.db.snapshot() }

type fakeForms struct{ s *fakeStore }

func withRefs(st *memState, f model.Form) *model.Form {
	f.SubmissionRefs = append([]model.FormSubmissionRef(nil), st.refs[f.ID]...)
	return &f
}

func (r fakeForms) find(match func(f model.Form) bool) (*model.Form, error) {
	var out *model.Form
	err := r.s.view(func(st *memState) error {
		for _, f := range st.forms {
			if match(f) {
				out = withRefs(st, f)
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func accessible(f model.Form, userID uuid.UUID) bool {
	return f.UserID == userID || (f.CoordinatorID != nil && *f.CoordinatorID == userID)
}

func (r fakeForms) Create(ctx context.Context, f *model.Form) error {
	return r.s.view(func(st *memState) error {
		for _, existing := range st.forms {
			if existing.Slug == f.Slug || existing.ShareURL == f.ShareURL {
				return gorm.ErrDuplicatedKey
			}
		}
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.CreatedAt = r.s.db.now()
		f.UpdatedAt = f.CreatedAt
		st.forms[f.ID] = *f
		return nil
	})
}

func (r fakeForms) GetByShareURL(ctx context.Context, shareURL string) (*model.Form, error) {
	return r.find(func(f model.Form) bool { return f.ShareURL == shareURL })
}

func (r fakeForms) GetOwnedByID(ctx context.Context, userID uuid.UUID, formID uuid.UUID) (*model.Form, error) {
	return r.find(func(f model.Form) bool { return f.ID == formID && f.UserID == userID })
}

func (r fakeForms) GetOwnedByShareURL(ctx context.Context, userID uuid.UUID, shareURL string) (*model.Form, error) {
	return r.find(func(f model.Form) bool { return f.ShareURL == shareURL && f.UserID == userID })
}

func (r fakeForms) GetAccessibleBySlug(ctx context.Context, userID uuid.UUID, slug string) (*model.Form, error) {
	return r.find(func(f model.Form) bool { return f.Slug == slug && accessible(f, userID) })
}

func (r fakeForms) ListAccessible(ctx context.Context, userID uuid.UUID) ([]model.Form, error) {
	var out []model.Form
	err := r.s.view(func(st *memState) error {
		for _, f := range st.forms {
			if accessible(f, userID) {
				out = append(out, *withRefs(st, f))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r fakeForms) update(userID uuid.UUID, slug string, apply func(f *model.Form)) (*model.Form, error) {
	var out *model.Form
	err := r.s.view(func(st *memState) error {
		for id, f := range st.forms {
			if f.Slug == slug && f.UserID == userID {
				apply(&f)
				f.UpdatedAt = r.s.db.now()
				st.forms[id] = f
				out = withRefs(st, f)
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r fakeForms) UpdateFields(ctx context.Context, userID uuid.UUID, slug string, fields []map[string]interface{}) (*model.Form, error) {
	return r.update(userID, slug, func(f *model.Form) {
		f.FormFields = model.NewFields(fields)
		f.UpdatedBy = userID.String()
	})
}

func (r fakeForms) Publish(ctx context.Context, userID uuid.UUID, slug string, coordinatorID uuid.UUID) (*model.Form, error) {
	return r.update(userID, slug, func(f *model.Form) {
		f.Published = true
		id := coordinatorID
		f.CoordinatorID = &id
	})
}

func (r fakeForms) AppendSubmission(ctx context.Context, formID uuid.UUID, submissionID uuid.UUID) (int64, error) {
	if r.s.db.panicAppend {
		panic("append exploded")
	}
	if r.s.db.failAppend != nil {
		return 0, r.s.db.failAppend
	}
	var n int64
	err := r.s.view(func(st *memState) error {
		if r.s.db.dropFormOnAppend {
			delete(st.forms, formID)
		}
		f, ok := st.forms[formID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		for _, refs := range st.refs {
			for _, ref := range refs {
				if ref.SubmissionID == submissionID {
					return gorm.ErrDuplicatedKey
				}
			}
		}
		f.Submissions++
		st.forms[formID] = f
		st.refs[formID] = append(st.refs[formID], model.FormSubmissionRef{
			FormID:       formID,
			SubmissionID: submissionID,
			Position:     f.Submissions,
			CreatedAt:    r.s.db.now(),
		})
		n = f.Submissions
		return nil
	})
	return n, err
}

func (r fakeForms) Stats(ctx context.Context, userID uuid.UUID) (*repo.FormStats, error) {
	out := &repo.FormStats{}
	err := r.s.view(func(st *memState) error {
		for _, f := range st.forms {
			if f.UserID != userID {
				continue
			}
			out.TotalForms++
			if f.Published {
				out.PublishedForms++
			}
			out.TotalVisits += f.Visits
			out.TotalSubmissions += f.Submissions
		}
		return nil
	})
	return out, err
}

func (r fakeForms) FindCountDrift(ctx context.Context, limit int) ([]repo.CountDrift, error) {
	var out []repo.CountDrift
	err := r.s.view(func(st *memState) error {
		for id, f := range st.forms {
			if n := int64(len(st.refs[id])); n != f.Submissions {
				out = append(out, repo.CountDrift{FormID: id, Counter: f.Submissions, Refs: n})
			}
		}
		return nil
	})
	return out, err
}

type fakeSubmissions struct{ s *fakeStore }

func (r fakeSubmissions) Create(ctx context.Context, sub *model.FormSubmission) error {
	if r.s.db.failCreateSubmission != nil {
		return r.s.db.failCreateSubmission
	}
	return r.s.view(func(st *memState) error {
		if _, ok := st.forms[sub.FormID]; !ok {
			// foreign key violation
			return gorm.ErrForeignKeyViolated
		}
		if sub.ID == uuid.Nil {
			sub.ID = uuid.New()
		}
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = r.s.db.now()
		}
		sub.UpdatedAt = sub.CreatedAt
		st.subs[sub.ID] = *sub
		return nil
	})
}

func (r fakeSubmissions) GetByID(ctx context.Context, id uuid.UUID) (*model.FormSubmission, error) {
	var out *model.FormSubmission
	err := r.s.view(func(st *memState) error {
		sub, ok := st.subs[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &sub
		return nil
	})
	return out, err
}

func (r fakeSubmissions) ListByFormWithCursor(ctx context.Context, formID uuid.UUID, beforeCreatedAt time.Time, beforeID uuid.UUID, limit int) ([]model.FormSubmission, error) {
	var out []model.FormSubmission
	err := r.s.view(func(st *memState) error {
		for _, ref := range st.refs[formID] {
			out = append(out, st.subs[ref.SubmissionID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if !beforeCreatedAt.IsZero() && beforeID != uuid.Nil {
		kept := out[:0]
		for _, sub := range out {
			if sub.CreatedAt.Before(beforeCreatedAt) ||
				(sub.CreatedAt.Equal(beforeCreatedAt) && sub.ID.String() < beforeID.String()) {
				kept = append(kept, sub)
			}
		}
		out = kept
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUsers struct{ s *fakeStore }

func (r fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.s.view(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.s.view(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				out = &u
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r fakeUsers) GetOrCreateByEmail(ctx context.Context, u *model.User) (*model.User, bool, error) {
	if r.s.db.failCreateUser != nil {
		return nil, false, r.s.db.failCreateUser
	}
	if existing, err := r.GetByEmail(ctx, u.Email); err == nil {
		return existing, false, nil
	}
	err := r.s.view(func(st *memState) error {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.CreatedAt = r.s.db.now()
		u.UpdatedAt = u.CreatedAt
		st.users[u.ID] = *u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// seedForm stores a form directly in the committed state.
func seedForm(db *fakeDB, owner uuid.UUID, shareURL string) model.Form {
	f := model.Form{
		ID:         uuid.New(),
		UserID:     owner,
		FormName:   "Feedback",
		Slug:       "feedback-" + shareURL,
		ShareURL:   shareURL,
		FormFields: model.NewFields(nil),
		CreatedAt:  db.now(),
	}
	db.mu.Lock()
	db.state.forms[f.ID] = f
	db.mu.Unlock()
	return f
}
