package fakeuserrepo

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/sade-booster/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. Emails are matched case-insensitively.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[emailKey(user.Email)] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	userID, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return users.ErrNotFound
	}
	delete(ur.emailIds, emailKey(email))
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u.Clone(), nil
}
