package person

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/dbtest"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/password"
)

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	db := dbtest.Open(t)

	hasher, err := password.New(password.SHA256, "test-key")
	require.NoError(t, err)

	store, err := New(db, hasher)
	require.NoError(t, err)

	return store, db
}

func TestCreateHashesPassword(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	p, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)
	assert.Empty(t, p.Password, "the digest must not leave the store")

	var stored models.Person
	require.NoError(t, db.First(&stored, "id = ?", "dcd:persons:alice").Error)
	assert.NotEmpty(t, stored.Password)
	assert.NotEqual(t, "longenough1", stored.Password)
}

func TestCreateDuplicate(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)

	testCases := []struct {
		name  string
		id    string
		email string
	}{
		{"same email", "dcd:persons:alice2", "alice@x.com"},
		{"same id", "dcd:persons:alice", "other@x.com"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, tc.id, tc.email, "Alice", "longenough1")
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.DuplicateIdentity), "got %v", err)
		})
	}
}

func TestConcurrentCreateHasOneWinner(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	const attempts = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := store.Create(ctx, fmt.Sprintf("dcd:persons:racer%d", i), "race@x.com", "Racer", "longenough1")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case apperror.Is(err, apperror.DuplicateIdentity):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
}

func TestGetByID(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)

	p, err := store.GetByID(ctx, "dcd:persons:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", p.Email)
	assert.Equal(t, "Alice", p.Name)
	assert.Empty(t, p.Password)

	_, err = store.GetByID(ctx, "dcd:persons:nobody")
	require.ErrorIs(t, err, ErrPersonNotFound)
}

func TestCheckCredentials(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)

	testCases := []struct {
		name      string
		emailOrID string
		password  string
		want      string
	}{
		{"by email", "alice@x.com", "longenough1", "dcd:persons:alice"},
		{"by id", "dcd:persons:alice", "longenough1", "dcd:persons:alice"},
		{"wrong password", "alice@x.com", "longenough2", ""},
		{"unknown email", "bob@x.com", "longenough1", ""},
		{"unknown id", "dcd:persons:bob", "longenough1", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := store.CheckCredentials(ctx, tc.emailOrID, tc.password)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestExists(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)

	ok, err := store.ExistsByID(ctx, "dcd:persons:alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ExistsByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ExistsByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEdit(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "dcd:persons:bob", "bob@x.com", "Bob", "longenough1")
	require.NoError(t, err)

	p, err := store.Edit(ctx, "dcd:persons:alice", "Alice L.", "alice@lab.org")
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", p.Name)
	assert.Equal(t, "alice@lab.org", p.Email)

	// password is untouched by an edit
	id, err := store.CheckCredentials(ctx, "alice@lab.org", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "dcd:persons:alice", id)

	_, err = store.Edit(ctx, "dcd:persons:alice", "Alice", "bob@x.com")
	assert.True(t, apperror.Is(err, apperror.DuplicateIdentity))

	_, err = store.Edit(ctx, "dcd:persons:nobody", "X", "x@x.com")
	require.ErrorIs(t, err, ErrPersonNotFound)
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "dcd:persons:alice", "alice@x.com", "Alice", "longenough1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "dcd:persons:alice"))
	require.ErrorIs(t, store.Delete(ctx, "dcd:persons:alice"), ErrPersonNotFound)
}

func TestNewNilDB(t *testing.T) {
	hasher, err := password.New(password.SHA256, "k")
	require.NoError(t, err)

	_, err = New(nil, hasher)
	require.ErrorIs(t, err, ErrDBNil)
}
