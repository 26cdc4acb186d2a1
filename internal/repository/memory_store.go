package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
)

// MemoryStore keeps users, activities and participations in process memory.
// It backs STORAGE_DRIVER=memory and the service tests. Every transaction and
// every read holds the store mutex, so transactions are fully serialised and
// reads always see a committed state.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	users          map[string]models.User
	activities     map[string]models.Activity
	participations map[string]models.Participation
}

func (s memoryState) clone() memoryState {
	next := memoryState{
		users:          make(map[string]models.User, len(s.users)),
		activities:     make(map[string]models.Activity, len(s.activities)),
		participations: make(map[string]models.Participation, len(s.participations)),
	}
	for k, v := range s.users {
		next.users[k] = v
	}
	for k, v := range s.activities {
		next.activities[k] = cloneActivity(v)
	}
	for k, v := range s.participations {
		next.participations[k] = v
	}
	return next
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		users:          map[string]models.User{},
		activities:     map[string]models.Activity{},
		participations: map[string]models.Participation{},
	}}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{store: s} }

// Activities returns the activity repository view of the store.
func (s *MemoryStore) Activities() *MemoryActivityRepository {
	return &MemoryActivityRepository{store: s}
}

// Participations returns the participation repository view of the store.
func (s *MemoryStore) Participations() *MemoryParticipationRepository {
	return &MemoryParticipationRepository{store: s}
}

func cloneActivity(a models.Activity) models.Activity {
	a.Days = append([]string(nil), a.Days...)
	a.Tags = append([]string(nil), a.Tags...)
	return a
}

// MemoryUserRepository serves user lookups and writes from a MemoryStore.
type MemoryUserRepository struct{ store *MemoryStore }

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.state.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.state.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.state.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.state.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.store.state.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) UpdateFlags(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.state.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	user.UpdatedAt = time.Now().UTC()
	current.IsMember = user.IsMember
	current.IsClubMember = user.IsClubMember
	current.IsAdmin = user.IsAdmin
	current.UpdatedAt = user.UpdatedAt
	r.store.state.users[user.ID] = current
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	users := make([]models.User, 0, len(r.store.state.users))
	for _, u := range r.store.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// MemoryActivityRepository serves activity lookups and writes from a MemoryStore.
type MemoryActivityRepository struct{ store *MemoryStore }

func (r *MemoryActivityRepository) FindByID(_ context.Context, id string) (*models.Activity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.state.activities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a = cloneActivity(a)
	return &a, nil
}

func (r *MemoryActivityRepository) FindByTitle(_ context.Context, title string) (*models.Activity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.state.activities {
		if a.Title == title {
			a = cloneActivity(a)
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryActivityRepository) Create(_ context.Context, activity *models.Activity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.state.activities {
		if a.Title == activity.Title {
			return ErrDuplicate
		}
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	r.store.state.activities[activity.ID] = cloneActivity(*activity)
	return nil
}

func (r *MemoryActivityRepository) IncrementSessions(_ context.Context, id string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.state.activities[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	a.RecordSession()
	a.UpdatedAt = time.Now().UTC()
	r.store.state.activities[id] = a
	return a.Sessions, nil
}

func (r *MemoryActivityRepository) List(_ context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	r.store.mu.Lock()
	matched := []models.Activity{}
	for _, a := range r.store.state.activities {
		if matchesActivityFilter(a, filter) {
			matched = append(matched, cloneActivity(a))
		}
	}
	r.store.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.After(matched[j].StartDate)
		}
		return matched[i].Title < matched[j].Title
	})

	page, size := normalizePage(filter.Page, filter.PageSize)
	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []models.Activity{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesActivityFilter(a models.Activity, f models.ActivityFilter) bool {
	if f.Semester != 0 && a.Semester != f.Semester {
		return false
	}
	if f.ActivityType != "" && a.ActivityType != f.ActivityType {
		return false
	}
	if f.Available != nil && a.Available != *f.Available {
		return false
	}
	if f.LeaderID != "" && a.LeaderID != f.LeaderID {
		return false
	}
	if f.Tag != "" && !containsString(a.Tags, f.Tag) {
		return false
	}
	if search := strings.TrimSpace(f.Search); search != "" &&
		!strings.Contains(strings.ToLower(a.Title), strings.ToLower(search)) {
		return false
	}
	return true
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// MemoryParticipationRepository runs participation transactions against a MemoryStore.
type MemoryParticipationRepository struct{ store *MemoryStore }

// InTx runs fn against a private copy of the store and publishes the copy
// only when fn succeeds.
func (r *MemoryParticipationRepository) InTx(ctx context.Context, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &memoryTx{state: r.store.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	r.store.state = tx.state
	return nil
}

func (r *MemoryParticipationRepository) FindByID(_ context.Context, id string) (*models.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.state.participations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r *MemoryParticipationRepository) FindByPair(_ context.Context, userID, activityID string) (*models.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p, ok := r.store.state.findPair(userID, activityID); ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryParticipationRepository) ListPending(_ context.Context, activityID string) ([]dto.PendingRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	requests := []dto.PendingRequest{}
	activity, ok := r.store.state.activities[activityID]
	if !ok {
		return requests, nil
	}
	for _, p := range r.store.state.participations {
		if p.ActivityID != activityID || p.Approved {
			continue
		}
		u := r.store.state.users[p.UserID]
		requests = append(requests, dto.PendingRequest{
			ParticipationID: p.ID,
			ActivityID:      p.ActivityID,
			ActivityTitle:   activity.Title,
			UserID:          p.UserID,
			Username:        u.Username,
			Major:           u.Major,
			Reason:          p.Reason,
			RequestedAt:     p.CreatedAt,
		})
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].RequestedAt.Equal(requests[j].RequestedAt) {
			return requests[i].RequestedAt.Before(requests[j].RequestedAt)
		}
		return requests[i].ParticipationID < requests[j].ParticipationID
	})
	return requests, nil
}

func (r *MemoryParticipationRepository) HourRecords(_ context.Context, userID string) (*models.HourRecords, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	records := &models.HourRecords{Participating: []models.ParticipatingActivity{}, Led: []models.Activity{}}
	for _, p := range r.store.state.participations {
		if p.UserID != userID {
			continue
		}
		a, ok := r.store.state.activities[p.ActivityID]
		if !ok {
			continue
		}
		records.Participating = append(records.Participating, models.ParticipatingActivity{Activity: cloneActivity(a), Approved: p.Approved})
	}
	for _, a := range r.store.state.activities {
		if a.LeaderID == userID {
			records.Led = append(records.Led, cloneActivity(a))
		}
	}
	sort.Slice(records.Participating, func(i, j int) bool {
		return records.Participating[i].StartDate.Before(records.Participating[j].StartDate)
	})
	sort.Slice(records.Led, func(i, j int) bool { return records.Led[i].StartDate.Before(records.Led[j].StartDate) })
	return records, nil
}

func (s memoryState) findPair(userID, activityID string) (models.Participation, bool) {
	for _, p := range s.participations {
		if p.UserID == userID && p.ActivityID == activityID {
			return p, true
		}
	}
	return models.Participation{}, false
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) LockActivity(_ context.Context, activityID string) (*models.Activity, error) {
	a, ok := t.state.activities[activityID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a = cloneActivity(a)
	return &a, nil
}

func (t *memoryTx) SaveActivityCapacity(_ context.Context, activity *models.Activity) error {
	current, ok := t.state.activities[activity.ID]
	if !ok {
		return sql.ErrNoRows
	}
	activity.UpdatedAt = time.Now().UTC()
	current.ParticipantCount = activity.ParticipantCount
	current.Available = activity.Available
	current.UpdatedAt = activity.UpdatedAt
	t.state.activities[activity.ID] = current
	return nil
}

func (t *memoryTx) DeleteActivity(_ context.Context, activityID string) error {
	if _, ok := t.state.activities[activityID]; !ok {
		return sql.ErrNoRows
	}
	delete(t.state.activities, activityID)
	for id, p := range t.state.participations {
		if p.ActivityID == activityID {
			delete(t.state.participations, id)
		}
	}
	return nil
}

func (t *memoryTx) FindUser(_ context.Context, userID string) (*models.User, error) {
	u, ok := t.state.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (t *memoryTx) LockUser(ctx context.Context, userID string) (*models.User, error) {
	return t.FindUser(ctx, userID)
}

func (t *memoryTx) UpdateUserFlags(_ context.Context, user *models.User) error {
	current, ok := t.state.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	user.UpdatedAt = time.Now().UTC()
	current.IsMember = user.IsMember
	current.IsClubMember = user.IsClubMember
	current.IsAdmin = user.IsAdmin
	current.UpdatedAt = user.UpdatedAt
	t.state.users[user.ID] = current
	return nil
}

func (t *memoryTx) DeleteUser(_ context.Context, userID string) error {
	if _, ok := t.state.users[userID]; !ok {
		return sql.ErrNoRows
	}
	delete(t.state.users, userID)
	led := map[string]struct{}{}
	for id, a := range t.state.activities {
		if a.LeaderID == userID {
			led[id] = struct{}{}
			delete(t.state.activities, id)
		}
	}
	for id, p := range t.state.participations {
		if _, ok := led[p.ActivityID]; ok || p.UserID == userID {
			delete(t.state.participations, id)
		}
	}
	return nil
}

func (t *memoryTx) FindParticipation(_ context.Context, id string) (*models.Participation, error) {
	p, ok := t.state.participations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (t *memoryTx) ParticipationExists(_ context.Context, userID, activityID string) (bool, error) {
	_, ok := t.state.findPair(userID, activityID)
	return ok, nil
}

func (t *memoryTx) CreateParticipation(_ context.Context, p *models.Participation) error {
	if _, ok := t.state.findPair(p.UserID, p.ActivityID); ok {
		return ErrDuplicate
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	t.state.participations[p.ID] = *p
	return nil
}

func (t *memoryTx) ApproveParticipation(_ context.Context, id string, approvedAt time.Time) error {
	p, ok := t.state.participations[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Approved = true
	p.ApprovedAt = &approvedAt
	t.state.participations[id] = p
	return nil
}

func (t *memoryTx) DeleteParticipation(_ context.Context, id string) error {
	if _, ok := t.state.participations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(t.state.participations, id)
	return nil
}

func (t *memoryTx) ListUserParticipations(_ context.Context, userID string) ([]models.Participation, error) {
	participations := []models.Participation{}
	for _, p := range t.state.participations {
		if p.UserID == userID {
			participations = append(participations, p)
		}
	}
	sort.Slice(participations, func(i, j int) bool { return participations[i].ActivityID < participations[j].ActivityID })
	return participations, nil
}
