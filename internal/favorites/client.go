// Package favorites はサインイン中のユーザーに紐づくお気に入り列車の追加・一覧・削除を提供する。
package favorites

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/trainboard/internal/metrics"
	"github.com/hitoshi/trainboard/internal/model"
	"github.com/hitoshi/trainboard/internal/repository"
)

// 操作名。メトリクスのラベルにも使う。
const (
	opAdd    = "add"
	opList   = "list"
	opRemove = "remove"
)

// ErrLoginRequired は未サインインでお気に入りを追加しようとしたことを表す。
var ErrLoginRequired = model.NewLoginRequiredError("Please login to add favorites")

// IdentitySource は現在のサインイン状態を提供する。
type IdentitySource interface {
	Current() *model.Identity
}

// Client はお気に入りストアへの操作を現在のユーザーにスコープして行う。
type Client struct {
	repo     repository.FavoriteRepository
	identity IdentitySource
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewClient はClientを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewClient(repo repository.FavoriteRepository, identity IdentitySource, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		repo:     repo,
		identity: identity,
		logger:   logger,
		metrics:  collector,
	}
}

// Add は列車をお気に入りに追加する。未サインインの場合はストアに書き込まずErrLoginRequiredを返す。
func (c *Client) Add(ctx context.Context, train model.TrainSummary) error {
	id := c.identity.Current()
	if id == nil {
		return ErrLoginRequired
	}

	fav, err := c.repo.Create(ctx, id.UID, model.NewFavoriteFromTrain(train))
	c.metrics.RecordFavoriteOperation(opAdd, err == nil)
	if err != nil {
		c.logger.Error("お気に入りの追加に失敗しました",
			slog.String("uid", id.UID),
			slog.String("train_number", train.Number),
			slog.String("error", err.Error()),
		)
		return model.NewFavoriteAddError(reason(err))
	}

	c.logger.Info("お気に入りを追加しました",
		slog.String("uid", id.UID),
		slog.String("favorite_id", fav.ID),
	)
	return nil
}

// List は現在のユーザーのお気に入りを返す。
// 未サインインの場合、またはストアの読み取りに失敗した場合は空の一覧を返す（失敗はログに記録する）。
func (c *Client) List(ctx context.Context) []model.Favorite {
	id := c.identity.Current()
	if id == nil {
		return []model.Favorite{}
	}

	favs, err := c.repo.ListByUser(ctx, id.UID)
	c.metrics.RecordFavoriteOperation(opList, err == nil)
	if err != nil {
		c.logger.Error("お気に入り一覧の取得に失敗しました",
			slog.String("uid", id.UID),
			slog.String("error", err.Error()),
		)
		return []model.Favorite{}
	}
	if favs == nil {
		favs = []model.Favorite{}
	}
	return favs
}

// Remove は指定IDのお気に入りを削除する。未サインインの場合は何もしない。
func (c *Client) Remove(ctx context.Context, favoriteID string) error {
	id := c.identity.Current()
	if id == nil {
		return nil
	}

	err := c.repo.Delete(ctx, id.UID, favoriteID)
	c.metrics.RecordFavoriteOperation(opRemove, err == nil)
	if err != nil {
		c.logger.Error("お気に入りの削除に失敗しました",
			slog.String("uid", id.UID),
			slog.String("favorite_id", favoriteID),
			slog.String("error", err.Error()),
		)
		return model.NewFavoriteRemoveError(reason(err))
	}
	return nil
}

// reason はラップされたエラーの最も内側のメッセージを返す。
func reason(err error) string {
	if errors.Is(err, repository.ErrPermissionDenied) {
		return repository.ErrPermissionDenied.Error()
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}
