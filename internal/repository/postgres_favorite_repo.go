package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/trainboard/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Create はお気に入りを作成する。IDと作成日時はデータベースのデフォルト値で採番される。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, uid string, fav *model.Favorite) (*model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}

	created := *fav
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO favorites (user_id, train_number, train_name, from_station, to_station)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		uid, fav.TrainNumber, fav.TrainName, fav.From, fav.To,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}

	return &created, nil
}

// ListByUser はユーザーのお気に入りを作成日時の昇順で返す。
func (r *PostgresFavoriteRepo) ListByUser(ctx context.Context, uid string) ([]model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, train_number, train_name, from_station, to_station, created_at
		 FROM favorites WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	favs := []model.Favorite{}
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.ID, &f.TrainNumber, &f.TrainName, &f.From, &f.To, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("お気に入りのスキャンに失敗しました: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の読み取りに失敗しました: %w", err)
	}

	return favs, nil
}

// Delete は指定IDのお気に入りを削除する。UUIDでないIDは存在しないものとして扱う。
func (r *PostgresFavoriteRepo) Delete(ctx context.Context, uid, id string) error {
	if err := validateKey(uid); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND id = $2`,
		uid, id,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
