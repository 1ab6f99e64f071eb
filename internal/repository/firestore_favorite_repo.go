package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	usersCollection     = "users"
	favoritesCollection = "favorites"
)

// firestoreFavorite はusers/{uid}/favorites配下のドキュメント形式。
type firestoreFavorite struct {
	TrainNumber string    `firestore:"trainNumber"`
	TrainName   string    `firestore:"trainName"`
	From        string    `firestore:"from"`
	To          string    `firestore:"to"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

// FirestoreFavoriteRepo はCloud Firestoreを使用したお気に入りリポジトリ。
type FirestoreFavoriteRepo struct {
	client *firestore.Client
}

// NewFirestoreFavoriteRepo はFirestoreFavoriteRepoを生成する。
func NewFirestoreFavoriteRepo(client *firestore.Client) *FirestoreFavoriteRepo {
	return &FirestoreFavoriteRepo{client: client}
}

func (r *FirestoreFavoriteRepo) favorites(uid string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(favoritesCollection)
}

// Create はお気に入りドキュメントを追加する。IDはFirestoreが採番し、createdAtはサーバー時刻になる。
// 返り値の作成日時には書き込みのコミット時刻を使う。
func (r *FirestoreFavoriteRepo) Create(ctx context.Context, uid string, fav *model.Favorite) (*model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}

	doc := firestoreFavorite{
		TrainNumber: fav.TrainNumber,
		TrainName:   fav.TrainName,
		From:        fav.From,
		To:          fav.To,
	}
	ref, wr, err := r.favorites(uid).Add(ctx, doc)
	if err != nil {
		return nil, wrapFirestoreError("お気に入りの作成に失敗しました", err)
	}
	return createdFavorite(ref.ID, doc, wr), nil
}

// ListByUser はユーザーのお気に入りをcreatedAtの昇順で返す。
func (r *FirestoreFavoriteRepo) ListByUser(ctx context.Context, uid string) ([]model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}

	iter := r.favorites(uid).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	favs := []model.Favorite{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapFirestoreError("お気に入り一覧の取得に失敗しました", err)
		}
		fav, err := toFavorite(snap)
		if err != nil {
			return nil, err
		}
		favs = append(favs, *fav)
	}
	return favs, nil
}

// Delete は指定IDのドキュメントを削除する。存在しないドキュメントの削除は成功扱いになる。
func (r *FirestoreFavoriteRepo) Delete(ctx context.Context, uid, id string) error {
	if err := validateKey(uid); err != nil {
		return err
	}
	if validateKey(id) != nil {
		return nil
	}

	if _, err := r.favorites(uid).Doc(id).Delete(ctx); err != nil {
		return wrapFirestoreError("お気に入りの削除に失敗しました", err)
	}
	return nil
}

// wrapFirestoreError はアクセス拒否をErrPermissionDeniedに変換してラップする。
func wrapFirestoreError(msg string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w", msg, ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// createdFavorite は追加した内容とWriteResultから作成結果を組み立てる。
// serverTimestampはコミット時刻で解決されるため、UpdateTimeと一致する。
func createdFavorite(id string, doc firestoreFavorite, wr *firestore.WriteResult) *model.Favorite {
	var createdAt time.Time
	if wr != nil {
		createdAt = wr.UpdateTime.UTC()
	}
	return &model.Favorite{
		ID:          id,
		TrainNumber: doc.TrainNumber,
		TrainName:   doc.TrainName,
		From:        doc.From,
		To:          doc.To,
		CreatedAt:   createdAt,
	}
}

func toFavorite(snap *firestore.DocumentSnapshot) (*model.Favorite, error) {
	var doc firestoreFavorite
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("お気に入りドキュメントの変換に失敗しました: %w", err)
	}
	return &model.Favorite{
		ID:          snap.Ref.ID,
		TrainNumber: doc.TrainNumber,
		TrainName:   doc.TrainName,
		From:        doc.From,
		To:          doc.To,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

// compile-time interface check
var _ FavoriteRepository = (*FirestoreFavoriteRepo)(nil)
