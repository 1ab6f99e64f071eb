// Package model はドメインモデルを定義する。
package model

// TrainSummary は列車検索結果の1件を表す。
type TrainSummary struct {
	Number    string `json:"number" yaml:"number"`
	Name      string `json:"name" yaml:"name"`
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Departure string `json:"departure" yaml:"departure"`
	Arrival   string `json:"arrival" yaml:"arrival"`
	Duration  string `json:"duration" yaml:"duration"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
}

// PNRStatus はPNR照会結果を表す。座席は確定時のみ返される。
type PNRStatus struct {
	PNR         string  `json:"pnr" yaml:"pnr"`
	TrainNumber string  `json:"train_number" yaml:"train_number"`
	TrainName   string  `json:"train_name" yaml:"train_name"`
	Date        string  `json:"date" yaml:"date"`
	From        string  `json:"from" yaml:"from"`
	To          string  `json:"to" yaml:"to"`
	Class       string  `json:"class" yaml:"class"`
	Status      string  `json:"status" yaml:"status"`
	Seat        *string `json:"seat" yaml:"seat,omitempty"`
}

// LiveStatus は列車の運行状況を表す。
type LiveStatus struct {
	TrainNumber      string `json:"train_number" yaml:"train_number"`
	TrainName        string `json:"train_name" yaml:"train_name"`
	LastUpdated      string `json:"last_updated" yaml:"last_updated"`
	CurrentStation   string `json:"current_station" yaml:"current_station"`
	NextStation      string `json:"next_station" yaml:"next_station"`
	ScheduledArrival string `json:"scheduled_arrival" yaml:"scheduled_arrival"`
	ExpectedArrival  string `json:"expected_arrival" yaml:"expected_arrival"`
	Status           string `json:"status" yaml:"status"`
}

// FareInfo は等級ごとの運賃を表す。
type FareInfo struct {
	TrainNumber string         `json:"train_number" yaml:"train_number"`
	Fares       map[string]int `json:"fares" yaml:"fares"`
	Currency    string         `json:"currency" yaml:"currency"`
}

// ClassAvailability は1等級分の空席数とキャンセル待ち数。
type ClassAvailability struct {
	Available int `json:"available" yaml:"available"`
	Waiting   int `json:"waiting" yaml:"waiting"`
}

// SeatAvailability は等級ごとの空席状況を表す。
type SeatAvailability struct {
	TrainNumber  string                       `json:"train_number" yaml:"train_number"`
	Date         string                       `json:"date" yaml:"date"`
	Availability map[string]ClassAvailability `json:"availability" yaml:"availability"`
}
