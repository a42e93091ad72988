package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/rbac"
	"github.com/sokoerp/sokoerp/internal/shared"
)

type memoryRepo struct {
	users  map[uuid.UUID]User
	audits []audit.Entry
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]User)}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (t *memoryTx) Create(_ context.Context, u User) (User, error) {
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	for _, existing := range t.repo.users {
		if existing.Username == u.Username {
			return User{}, fmt.Errorf("%w: username %q taken", shared.ErrConflict, u.Username)
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	t.repo.users[u.ID] = u
	return u, nil
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := t.repo.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return u, nil
}

func (t *memoryTx) Update(_ context.Context, u User) error {
	if _, ok := t.repo.users[u.ID]; !ok {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, u.ID)
	}
	t.repo.users[u.ID] = u
	return nil
}

func (t *memoryTx) RecordAudit(_ context.Context, entry audit.Entry) error {
	t.repo.audits = append(t.repo.audits, entry)
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return u, nil
}

func (r *memoryRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("%w: user %q", shared.ErrNotFound, username)
}

func (r *memoryRepo) List(_ context.Context) ([]User, error) {
	var list []User
	for _, u := range r.users {
		list = append(list, u)
	}
	return list, nil
}

func TestCreateHashesPasswordAndAudits(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), Input{
		Username: "wanjiru",
		FullName: "Wanjiru Kamau",
		Role:     rbac.RoleCashier,
		Password: "s3cret-pass",
		IsActive: true,
		ActorID:  actor,
	})
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-pass")))

	require.Len(t, repo.audits, 1)
	require.Equal(t, audit.ActionCreate, repo.audits[0].Action)
	require.Equal(t, "User", repo.audits[0].EntityType)
	require.Equal(t, actor, repo.audits[0].ActorID)
}

func TestCreateRequiresPassword(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{
		Username: "wanjiru",
		FullName: "Wanjiru Kamau",
		Role:     rbac.RoleCashier,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	svc := NewService(newMemoryRepo())
	input := Input{
		Username: "otieno",
		FullName: "Otieno Odhiambo",
		Role:     rbac.RoleManager,
		Password: "longenough",
		IsActive: true,
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{
		Username: "achieng",
		FullName: "Achieng Owuor",
		Role:     rbac.RoleStorekeeper,
		Password: "correct-horse",
		IsActive: true,
	})
	require.NoError(t, err)

	u, err := svc.VerifyPassword(context.Background(), "achieng", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "achieng", u.Username)

	_, err = svc.VerifyPassword(context.Background(), "achieng", "wrong")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLookupMapsRoleToCapabilities(t *testing.T) {
	svc := NewService(newMemoryRepo())
	created, err := svc.Create(context.Background(), Input{
		Username: "kiprono",
		FullName: "Kiprono Sang",
		Role:     rbac.RoleCashier,
		Password: "longenough",
		IsActive: true,
	})
	require.NoError(t, err)

	principal, err := svc.Lookup(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, principal.UserID)
	require.True(t, principal.HasCapability(rbac.CapSalesWrite))
	require.False(t, principal.HasCapability(rbac.CapUsersManage))
}

func TestLookupRejectsInactiveUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Input{
		Username: "njeri",
		FullName: "Njeri Mwangi",
		Role:     rbac.RoleAdmin,
		Password: "longenough",
		IsActive: true,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, Input{
		Username: "njeri",
		FullName: "Njeri Mwangi",
		Role:     rbac.RoleAdmin,
		IsActive: false,
	})
	require.NoError(t, err)

	_, err = svc.Lookup(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSetPasswordRotatesHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Input{
		Username: "baraka",
		FullName: "Baraka Juma",
		Role:     rbac.RoleManager,
		Password: "first-pass-1",
		IsActive: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(context.Background(), created.ID, "second-pass-2", uuid.New()))

	_, err = svc.VerifyPassword(context.Background(), "baraka", "first-pass-1")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.VerifyPassword(context.Background(), "baraka", "second-pass-2")
	require.NoError(t, err)
}
