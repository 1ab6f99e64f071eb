// Package railstub は開発用・テスト用の列車情報モックバックエンドを提供する。
// 検索、PNR照会、運行状況、運賃、空席状況の各エンドポイントをモックデータで応答する。
package railstub

import "github.com/hitoshi/trainboard/internal/model"

// mockTrains は全エンドポイントで共通に使う列車一覧。
var mockTrains = []model.TrainSummary{
	{Number: "12345", Name: "Rajdhani Express", Departure: "06:00", Arrival: "14:30", Duration: "8h 30m"},
	{Number: "22691", Name: "Shatabdi Express", Departure: "07:15", Arrival: "12:45", Duration: "5h 30m"},
	{Number: "12002", Name: "New Delhi Shatabdi", Departure: "08:00", Arrival: "13:15", Duration: "5h 15m"},
	{Number: "12951", Name: "Mumbai Rajdhani", Departure: "16:55", Arrival: "08:35", Duration: "15h 40m"},
	{Number: "12626", Name: "Kerala Express", Departure: "11:45", Arrival: "04:15", Duration: "16h 30m"},
}

// pnrStatuses はPNR照会で返す予約状況の候補。
var pnrStatuses = []string{"Confirmed", "RAC 25", "WL 45", "Cancelled", "Chart Prepared"}

// liveStatuses は運行状況の候補。
var liveStatuses = []string{"On Time", "Running Late by 15 mins", "Running Late by 45 mins", "Cancelled", "Departed"}

// currentStations は運行状況の現在駅の候補。
var currentStations = []string{"New Delhi", "Ghaziabad", "Aligarh", "Kanpur", "Allahabad", "Varanasi"}

const (
	pnrFrom       = "New Delhi"
	pnrTo         = "Mumbai Central"
	pnrClass      = "3A"
	confirmedPNR  = "Confirmed"
	confirmedSeat = "S1/25"

	nextStation      = "Lucknow Junction"
	scheduledArrival = "14:30"
	expectedArrival  = "14:45"

	currencyINR = "INR"

	dateLayout        = "2006-01-02"
	lastUpdatedLayout = "2006-01-02 15:04:05"
)

// intRange は乱数の閉区間 [min, max]。
type intRange struct {
	min, max int
}

// fareRanges は等級ごとの運賃の範囲。
var fareRanges = map[string]intRange{
	"SL": {200, 500},
	"3A": {600, 1200},
	"2A": {1000, 2000},
	"1A": {1800, 3500},
}

// availabilityRanges は等級ごとの空席数とキャンセル待ち数の範囲。
var availabilityRanges = map[string]struct {
	available intRange
	waiting   intRange
}{
	"SL": {intRange{0, 50}, intRange{0, 100}},
	"3A": {intRange{0, 20}, intRange{0, 50}},
	"2A": {intRange{0, 15}, intRange{0, 30}},
	"1A": {intRange{0, 10}, intRange{0, 20}},
}

// classOrder は乱数を引く等級の順序。マップ走査順に依存させない。
var classOrder = []string{"SL", "3A", "2A", "1A"}

// findTrain は列車番号に一致する列車を返す。見つからない場合は先頭の列車を返す。
func findTrain(number string) model.TrainSummary {
	for _, t := range mockTrains {
		if t.Number == number {
			return t
		}
	}
	return mockTrains[0]
}
