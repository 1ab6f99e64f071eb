// Package contracttest はFavoriteRepositoryの全実装が満たすべき振る舞いを検証する共通テストを提供する。
package contracttest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/trainboard/internal/model"
	"github.com/hitoshi/trainboard/internal/repository"
)

type CleanupFunc = func()

type FavoriteRepoFactory func(t *testing.T) (repository.FavoriteRepository, CleanupFunc)

// RunFavoriteRepo は共通の契約テストを実行する。
// 外部ストアを共有しても衝突しないよう、ユーザーIDはテストごとに生成する。
func RunFavoriteRepo(t *testing.T, newRepo FavoriteRepoFactory) {
	t.Helper()

	t.Run("CreateAssignsIDAndTimestamp", func(t *testing.T) {
		repo := setup(t, newRepo)
		ctx := context.Background()
		uid := newUID()

		in := &model.Favorite{TrainNumber: "12345", TrainName: "Rajdhani Express", From: "Delhi", To: "Mumbai"}
		got, err := repo.Create(ctx, uid, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.ID == "" {
			t.Fatalf("expected store-assigned id")
		}
		if got.CreatedAt.IsZero() {
			t.Fatalf("expected store-assigned createdAt")
		}
		if got.TrainNumber != "12345" || got.TrainName != "Rajdhani Express" || got.From != "Delhi" || got.To != "Mumbai" {
			t.Fatalf("unexpected favorite: %+v", got)
		}
		if in.ID != "" {
			t.Fatalf("input must not be mutated: %+v", in)
		}

		favs, err := repo.ListByUser(ctx, uid)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 1 || favs[0].ID != got.ID || !favs[0].CreatedAt.Equal(got.CreatedAt) {
			t.Fatalf("stored favorite %+v does not match created %+v", favs, got)
		}
	})

	t.Run("ListByUserReturnsCreationOrder", func(t *testing.T) {
		repo := setup(t, newRepo)
		ctx := context.Background()
		uid := newUID()

		first := mustCreate(t, repo, uid, "12345")
		second := mustCreate(t, repo, uid, "22691")

		favs, err := repo.ListByUser(ctx, uid)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 2 {
			t.Fatalf("len = %d, want 2", len(favs))
		}
		if favs[0].ID != first.ID || favs[1].ID != second.ID {
			t.Fatalf("unexpected order: %+v", favs)
		}
	})

	t.Run("ListByUserEmpty", func(t *testing.T) {
		repo := setup(t, newRepo)

		favs, err := repo.ListByUser(context.Background(), newUID())
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 0 {
			t.Fatalf("expected empty list, got %+v", favs)
		}
	})

	t.Run("UsersAreIsolated", func(t *testing.T) {
		repo := setup(t, newRepo)
		ctx := context.Background()
		alice, bob := newUID(), newUID()

		fav := mustCreate(t, repo, alice, "12345")
		mustCreate(t, repo, bob, "12951")

		favs, err := repo.ListByUser(ctx, bob)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 1 || favs[0].TrainNumber != "12951" {
			t.Fatalf("bob sees %+v", favs)
		}

		// 他ユーザーのIDを指定した削除は効果を持たない
		if err := repo.Delete(ctx, bob, fav.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		favs, err = repo.ListByUser(ctx, alice)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 1 {
			t.Fatalf("alice's favorite must remain, got %+v", favs)
		}
	})

	t.Run("DeleteRemovesAndIsIdempotent", func(t *testing.T) {
		repo := setup(t, newRepo)
		ctx := context.Background()
		uid := newUID()

		keep := mustCreate(t, repo, uid, "12345")
		drop := mustCreate(t, repo, uid, "22691")

		if err := repo.Delete(ctx, uid, drop.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := repo.Delete(ctx, uid, drop.ID); err != nil {
			t.Fatalf("Delete of a missing id must succeed: %v", err)
		}
		if err := repo.Delete(ctx, uid, "does-not-exist"); err != nil {
			t.Fatalf("Delete of an unknown id must succeed: %v", err)
		}

		favs, err := repo.ListByUser(ctx, uid)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(favs) != 1 || favs[0].ID != keep.ID {
			t.Fatalf("unexpected favorites after delete: %+v", favs)
		}
	})

	t.Run("RejectsInvalidUID", func(t *testing.T) {
		repo := setup(t, newRepo)
		ctx := context.Background()

		for _, uid := range []string{"", "a/b"} {
			if _, err := repo.Create(ctx, uid, &model.Favorite{TrainNumber: "1"}); !errors.Is(err, repository.ErrInvalidKey) {
				t.Fatalf("Create(%q) err = %v, want ErrInvalidKey", uid, err)
			}
			if _, err := repo.ListByUser(ctx, uid); !errors.Is(err, repository.ErrInvalidKey) {
				t.Fatalf("ListByUser(%q) err = %v, want ErrInvalidKey", uid, err)
			}
		}
	})
}

func setup(t *testing.T, newRepo FavoriteRepoFactory) repository.FavoriteRepository {
	t.Helper()
	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return repo
}

func mustCreate(t *testing.T, repo repository.FavoriteRepository, uid, trainNumber string) *model.Favorite {
	t.Helper()
	fav, err := repo.Create(context.Background(), uid, &model.Favorite{
		TrainNumber: trainNumber,
		TrainName:   "Train " + trainNumber,
		From:        "New Delhi",
		To:          "Mumbai Central",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return fav
}

func newUID() string {
	return "uid-" + uuid.NewString()
}
