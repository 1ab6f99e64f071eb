// Package model はドメインモデルを定義する。
package model

import "time"

// Favorite はユーザーが保存した列車を表す。
// IDと作成日時はストア側で採番される。
type Favorite struct {
	ID          string    `json:"id" yaml:"id"`
	TrainNumber string    `json:"trainNumber" yaml:"train_number"`
	TrainName   string    `json:"trainName" yaml:"train_name"`
	From        string    `json:"from" yaml:"from"`
	To          string    `json:"to" yaml:"to"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

// NewFavoriteFromTrain は検索結果の列車からお気に入りの下書きを作成する。
func NewFavoriteFromTrain(train TrainSummary) *Favorite {
	return &Favorite{
		TrainNumber: train.Number,
		TrainName:   train.Name,
		From:        train.From,
		To:          train.To,
	}
}
