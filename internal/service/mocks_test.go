package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/domain"
)

// In-memory repository doubles. They mirror the Postgres implementations'
// contracts (ErrNotFound on missing rows, newest-first live sessions) so the
// services under test see the same behavior.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetByMobile(_ context.Context, mobile string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Mobile != nil && *user.Mobile == mobile {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func (r *memUserRepo) VerifyEmail(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.IsEmailVerified = true
	return nil
}

func (r *memUserRepo) LinkSocialAccount(_ context.Context, id uuid.UUID, provider, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.Provider = &provider
	user.ProviderID = &providerID
	return nil
}

func (r *memUserRepo) SoftDeactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.IsActive = false
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshTokenHash == tokenHash {
			cp := *session
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSessionRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var live []*domain.Session
	now := time.Now()
	for _, session := range r.sessions {
		if session.UserID == userID && session.ExpiresAt.After(now) {
			cp := *session
			live = append(live, &cp)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return live, nil
}

func (r *memSessionRepo) Update(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.RefreshTokenHash == tokenHash {
			delete(r.sessions, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memSessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	now := time.Now()
	for id, session := range r.sessions {
		if !session.ExpiresAt.After(now) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type memCompanyRepo struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*domain.Company
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{companies: make(map[uuid.UUID]*domain.Company)}
}

func (r *memCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *company
	r.companies[company.ID] = &cp
	return nil
}

func (r *memCompanyRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, company := range r.companies {
		if company.UserID == userID {
			cp := *company
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memEmployerRepo struct {
	mu        sync.Mutex
	employers map[uuid.UUID]*domain.Employer
}

func newMemEmployerRepo() *memEmployerRepo {
	return &memEmployerRepo{employers: make(map[uuid.UUID]*domain.Employer)}
}

func (r *memEmployerRepo) Create(_ context.Context, employer *domain.Employer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *employer
	r.employers[employer.ID] = &cp
	return nil
}

func (r *memEmployerRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, employer := range r.employers {
		if employer.UserID == userID {
			cp := *employer
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memEmployerRepo) LinkCompany(_ context.Context, employerID, companyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	employer, ok := r.employers[employerID]
	if !ok {
		return domain.ErrNotFound
	}
	cid := companyID
	employer.CompanyID = &cid
	return nil
}

// recordingNotifier captures delivered codes so tests can assert on them.
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: make(map[string]string)}
}

func (n *recordingNotifier) SendCode(_ context.Context, destination, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[destination] = code
	return nil
}

func (n *recordingNotifier) SendWelcome(_ context.Context, _, _ string) error {
	return nil
}

func (n *recordingNotifier) lastCode(destination string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[destination]
}
