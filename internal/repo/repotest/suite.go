// Package repotest holds behaviour tests shared by every repository backend.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-api/internal/model"
	"github.com/BuzzLyutic/todo-api/internal/repo"
)

// Factory returns fresh, empty repositories for one subtest.
type Factory func(t *testing.T) (repo.UserRepository, repo.TaskRepository)

func Run(t *testing.T, newRepos Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepos) })
	t.Run("create and get", func(t *testing.T) { testCreateGet(t, newRepos) })
	t.Run("ownership isolation", func(t *testing.T) { testOwnership(t, newRepos) })
	t.Run("pagination", func(t *testing.T) { testPagination(t, newRepos) })
	t.Run("partial update", func(t *testing.T) { testPartialUpdate(t, newRepos) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newRepos) })
	t.Run("idempotency keys", func(t *testing.T) { testIdempotencyKeys(t, newRepos) })
	t.Run("idempotency key rebind", func(t *testing.T) { testIdempotencyKeyRebind(t, newRepos) })
	t.Run("purge idempotency keys", func(t *testing.T) { testPurgeIdempotencyKeys(t, newRepos) })
	t.Run("concurrent creates", func(t *testing.T) { testConcurrentCreates(t, newRepos) })
}

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, users repo.UserRepository, email string) model.User {
	t.Helper()
	u, err := users.Create(context.Background(), email, "hash-"+email)
	require.NoError(t, err)
	return u
}

func testUsers(t *testing.T, newRepos Factory) {
	users, _ := newRepos(t)
	ctx := context.Background()

	created, err := users.Create(ctx, "a@x.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, "hash", created.PasswordHash)

	byEmail, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created, byEmail)

	byID, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	_, err = users.Create(ctx, "a@x.com", "other")
	assert.ErrorIs(t, err, repo.ErrorConflict)

	// email is case-sensitive as stored
	_, err = users.GetByEmail(ctx, "A@X.COM")
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	_, err = users.GetByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testCreateGet(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "owner@x.com")

	due := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	created, err := tasks.Create(ctx, model.TaskDraft{
		Title:       "Buy milk",
		Description: strPtr("2 litres"),
		DueDate:     &due,
	}, owner.ID)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "2 litres", *created.Description)
	require.NotNil(t, created.DueDate)
	assert.True(t, due.Equal(*created.DueDate))
	assert.False(t, created.Done)
	assert.Equal(t, owner.ID, created.OwnerID)

	fetched, err := tasks.Get(ctx, created.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.True(t, due.Equal(*fetched.DueDate))

	bare, err := tasks.Create(ctx, model.TaskDraft{Title: "No extras"}, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, bare.Description)
	assert.Nil(t, bare.DueDate)

	_, err = tasks.Get(ctx, 999999, owner.ID)
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testOwnership(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice@x.com")
	bob := mustUser(t, users, "bob@x.com")

	task, err := tasks.Create(ctx, model.TaskDraft{Title: "secret"}, alice.ID)
	require.NoError(t, err)

	_, err = tasks.Get(ctx, task.ID, bob.ID)
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	title := "hijacked"
	_, err = tasks.Update(ctx, task.ID, bob.ID, model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	_, err = tasks.Update(ctx, task.ID, bob.ID, model.TaskPatch{})
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	_, err = tasks.Delete(ctx, task.ID, bob.ID)
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	bobs, err := tasks.List(ctx, bob.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	// alice's task is untouched
	still, err := tasks.Get(ctx, task.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", still.Title)
}

func testPagination(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "pager@x.com")
	other := mustUser(t, users, "other@x.com")

	var ids []int64
	for i := 0; i < 15; i++ {
		created, err := tasks.Create(ctx, model.TaskDraft{Title: fmt.Sprintf("Task %d", i+1)}, owner.ID)
		require.NoError(t, err)
		ids = append(ids, created.ID)

		_, err = tasks.Create(ctx, model.TaskDraft{Title: "noise"}, other.ID)
		require.NoError(t, err)
	}

	page1, err := tasks.List(ctx, owner.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page1, 10)

	page2, err := tasks.List(ctx, owner.ID, 10, 10)
	require.NoError(t, err)
	require.Len(t, page2, 5)

	page3, err := tasks.List(ctx, owner.ID, 20, 10)
	require.NoError(t, err)
	assert.NotNil(t, page3)
	assert.Empty(t, page3)

	var got []int64
	for _, task := range append(page1, page2...) {
		assert.Equal(t, owner.ID, task.OwnerID)
		got = append(got, task.ID)
	}
	assert.Equal(t, ids, got, "pages should follow creation order")
}

func testPartialUpdate(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "patch@x.com")

	due := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	task, err := tasks.Create(ctx, model.TaskDraft{
		Title:       "Original",
		Description: strPtr("desc"),
		DueDate:     &due,
	}, owner.ID)
	require.NoError(t, err)

	done := true
	updated, err := tasks.Update(ctx, task.ID, owner.ID, model.TaskPatch{Done: &done})
	require.NoError(t, err)
	assert.True(t, updated.Done)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, "desc", *updated.Description)
	assert.True(t, due.Equal(*updated.DueDate))

	title := "Renamed"
	updated, err = tasks.Update(ctx, task.ID, owner.ID, model.TaskPatch{
		Title:       &title,
		Description: model.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Nil(t, updated.Description)
	assert.True(t, updated.Done, "done must survive an update that omits it")
	assert.NotNil(t, updated.DueDate)

	unchanged, err := tasks.Update(ctx, task.ID, owner.ID, model.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)

	fetched, err := tasks.Get(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Title)

	_, err = tasks.Update(ctx, 999999, owner.ID, model.TaskPatch{Done: &done})
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testDelete(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "del@x.com")

	task, err := tasks.Create(ctx, model.TaskDraft{Title: "To Delete"}, owner.ID)
	require.NoError(t, err)

	deleted, err := tasks.Delete(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, task, deleted)

	_, err = tasks.Get(ctx, task.ID, owner.ID)
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	_, err = tasks.Delete(ctx, task.ID, owner.ID)
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testIdempotencyKeys(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	alice := mustUser(t, users, "alice@x.com")
	bob := mustUser(t, users, "bob@x.com")

	first, err := tasks.Create(ctx, model.TaskDraft{Title: "first"}, alice.ID)
	require.NoError(t, err)
	second, err := tasks.Create(ctx, model.TaskDraft{Title: "second"}, alice.ID)
	require.NoError(t, err)

	_, err = tasks.GetIdempotencyKey(ctx, alice.ID, "k1")
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	require.NoError(t, tasks.SaveIdempotencyKey(ctx, alice.ID, "k1", first.ID))
	// пока задача жива, повторное сохранение не перезаписывает ключ
	require.NoError(t, tasks.SaveIdempotencyKey(ctx, alice.ID, "k1", second.ID))

	id, err := tasks.GetIdempotencyKey(ctx, alice.ID, "k1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	// keys are scoped per owner
	_, err = tasks.GetIdempotencyKey(ctx, bob.ID, "k1")
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testIdempotencyKeyRebind(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "rebind@x.com")

	old, err := tasks.Create(ctx, model.TaskDraft{Title: "old"}, owner.ID)
	require.NoError(t, err)
	require.NoError(t, tasks.SaveIdempotencyKey(ctx, owner.ID, "k1", old.ID))

	_, err = tasks.Delete(ctx, old.ID, owner.ID)
	require.NoError(t, err)

	fresh, err := tasks.Create(ctx, model.TaskDraft{Title: "fresh"}, owner.ID)
	require.NoError(t, err)
	require.NoError(t, tasks.SaveIdempotencyKey(ctx, owner.ID, "k1", fresh.ID))

	id, err := tasks.GetIdempotencyKey(ctx, owner.ID, "k1")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, id, "key left on a deleted task must follow the new one")

	newer, err := tasks.Create(ctx, model.TaskDraft{Title: "newer"}, owner.ID)
	require.NoError(t, err)
	require.NoError(t, tasks.SaveIdempotencyKey(ctx, owner.ID, "k1", newer.ID))

	id, err = tasks.GetIdempotencyKey(ctx, owner.ID, "k1")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, id)
}

type keyPurger interface {
	PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error)
}

func testPurgeIdempotencyKeys(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "keys@x.com")

	purger, ok := tasks.(keyPurger)
	require.True(t, ok, "task repository must support purging keys")

	require.NoError(t, tasks.SaveIdempotencyKey(ctx, owner.ID, "k1", 1))
	require.NoError(t, tasks.SaveIdempotencyKey(ctx, owner.ID, "k2", 2))

	n, err := purger.PurgeIdempotencyKeys(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "fresh keys survive")

	n, err = purger.PurgeIdempotencyKeys(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = tasks.GetIdempotencyKey(ctx, owner.ID, "k1")
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func testConcurrentCreates(t *testing.T, newRepos Factory) {
	users, tasks := newRepos(t)
	ctx := context.Background()
	owner := mustUser(t, users, "busy@x.com")

	const goroutines = 10
	var wg sync.WaitGroup
	ids := make([]int64, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			created, err := tasks.Create(ctx, model.TaskDraft{Title: fmt.Sprintf("Concurrent %d", idx)}, owner.ID)
			ids[idx], errs[idx] = created.ID, err
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for i, err := range errs {
		require.NoError(t, err, "request %d should not error", i)
		assert.False(t, seen[ids[i]], "ids must be unique")
		seen[ids[i]] = true
	}

	all, err := tasks.List(ctx, owner.ID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, goroutines)
}
