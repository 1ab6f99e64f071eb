package railstub

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/trainboard/internal/middleware"
	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgStationsRequired = "Both from and to stations are required"
	msgPNRRequired      = "PNR number is required"
	msgPNRLength        = "PNR must be 10 digits"
	msgTrainRequired    = "Train number is required"
)

// Handler はモックバックエンドのHTTPハンドラー。
type Handler struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewHandler はHandlerを生成する。
// rngがnilの場合は現在時刻をシードとした乱数源を使う。nowがnilの場合はtime.Nowを使う。
func NewHandler(rng *rand.Rand, now func() time.Time) *Handler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Handler{rng: rng, now: now}
}

// searchResponse は/search_trainsのレスポンス。
type searchResponse struct {
	Trains []model.TrainSummary `json:"trains"`
}

// SearchTrains は出発駅と到着駅に対するモック列車一覧を返す。
// GET /search_trains?from=&to=
func (h *Handler) SearchTrains(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, msgStationsRequired)
		return
	}

	date := h.now().Format(dateLayout)
	trains := make([]model.TrainSummary, 0, len(mockTrains))
	for _, t := range mockTrains {
		t.From = from
		t.To = to
		t.Date = date
		trains = append(trains, t)
	}

	writeJSON(w, searchResponse{Trains: trains})
}

// PNRStatus はPNR番号のモック予約状況を返す。座席は確定時のみ設定する。
// GET /pnr_status?pnr=
func (h *Handler) PNRStatus(w http.ResponseWriter, r *http.Request) {
	pnr := strings.TrimSpace(r.URL.Query().Get("pnr"))
	if pnr == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, msgPNRRequired)
		return
	}
	if utf8.RuneCountInString(pnr) != 10 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, msgPNRLength)
		return
	}

	h.mu.Lock()
	status := pnrStatuses[h.rng.Intn(len(pnrStatuses))]
	train := mockTrains[h.rng.Intn(len(mockTrains))]
	h.mu.Unlock()

	resp := model.PNRStatus{
		PNR:         pnr,
		TrainNumber: train.Number,
		TrainName:   train.Name,
		Date:        h.now().Format(dateLayout),
		From:        pnrFrom,
		To:          pnrTo,
		Class:       pnrClass,
		Status:      status,
	}
	if status == confirmedPNR {
		seat := confirmedSeat
		resp.Seat = &seat
	}

	writeJSON(w, resp)
}

// LiveStatus は列車番号のモック運行状況を返す。
// 未知の列車番号は先頭の列車名で応答し、列車番号は入力値をそのまま返す。
// GET /live_status?train=
func (h *Handler) LiveStatus(w http.ResponseWriter, r *http.Request) {
	number, ok := trainParam(w, r)
	if !ok {
		return
	}
	train := findTrain(number)

	h.mu.Lock()
	status := liveStatuses[h.rng.Intn(len(liveStatuses))]
	current := currentStations[h.rng.Intn(len(currentStations))]
	h.mu.Unlock()

	writeJSON(w, model.LiveStatus{
		TrainNumber:      number,
		TrainName:        train.Name,
		Status:           status,
		CurrentStation:   current,
		LastUpdated:      h.now().Format(lastUpdatedLayout),
		NextStation:      nextStation,
		ScheduledArrival: scheduledArrival,
		ExpectedArrival:  expectedArrival,
	})
}

// FareInfo は列車番号の等級別モック運賃を返す。
// GET /fare_info?train=
func (h *Handler) FareInfo(w http.ResponseWriter, r *http.Request) {
	number, ok := trainParam(w, r)
	if !ok {
		return
	}

	fares := make(map[string]int, len(classOrder))
	h.mu.Lock()
	for _, class := range classOrder {
		fares[class] = h.between(fareRanges[class])
	}
	h.mu.Unlock()

	writeJSON(w, model.FareInfo{
		TrainNumber: number,
		Fares:       fares,
		Currency:    currencyINR,
	})
}

// SeatAvailability は列車番号の等級別モック空席状況を返す。
// GET /seat_availability?train=
func (h *Handler) SeatAvailability(w http.ResponseWriter, r *http.Request) {
	number, ok := trainParam(w, r)
	if !ok {
		return
	}

	availability := make(map[string]model.ClassAvailability, len(classOrder))
	h.mu.Lock()
	for _, class := range classOrder {
		rg := availabilityRanges[class]
		availability[class] = model.ClassAvailability{
			Available: h.between(rg.available),
			Waiting:   h.between(rg.waiting),
		}
	}
	h.mu.Unlock()

	writeJSON(w, model.SeatAvailability{
		TrainNumber:  number,
		Date:         h.now().Format(dateLayout),
		Availability: availability,
	})
}

// Health はヘルスチェック応答を返す。
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// between は閉区間 [min, max] の乱数を返す。h.muを保持した状態で呼ぶこと。
func (h *Handler) between(rg intRange) int {
	return rg.min + h.rng.Intn(rg.max-rg.min+1)
}

// trainParam はtrainクエリパラメータを取り出す。空の場合は400を書き込みfalseを返す。
func trainParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	number := strings.TrimSpace(r.URL.Query().Get("train"))
	if number == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, msgTrainRequired)
		return "", false
	}
	return number, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
