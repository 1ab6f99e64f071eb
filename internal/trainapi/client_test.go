package trainapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/trainboard/internal/metrics"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(t *testing.T, server *httptest.Server, buf *bytes.Buffer) *Client {
	t.Helper()
	return NewClient(server.Client(), newTestLogger(buf), ClientConfig{BaseURL: server.URL})
}

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), ClientConfig{})
	if c.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, defaultBaseURL)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), ClientConfig{BaseURL: "http://rail.test/"})
	if c.baseURL != "http://rail.test" {
		t.Errorf("baseURL = %q, want %q", c.baseURL, "http://rail.test")
	}
}

func TestClient_SearchTrains_Success(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if r.URL.Path != "/search_trains" {
			t.Errorf("path = %s, want /search_trains", r.URL.Path)
		}
		if got := r.URL.Query().Get("from"); got != "Delhi" {
			t.Errorf("from = %q, want Delhi", got)
		}
		if got := r.URL.Query().Get("to"); got != "Mumbai" {
			t.Errorf("to = %q, want Mumbai", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"trains":[{"number":"12345","name":"Rajdhani","from":"Delhi","to":"Mumbai","departure":"16:00","arrival":"08:00","duration":"16h"}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	trains, err := c.SearchTrains(context.Background(), "Delhi", "Mumbai")
	if err != nil {
		t.Fatalf("SearchTrains がエラーを返した: %v", err)
	}
	if calls != 1 {
		t.Errorf("リクエスト回数 = %d, want 1", calls)
	}
	if len(trains) != 1 {
		t.Fatalf("len(trains) = %d, want 1", len(trains))
	}
	if trains[0].Number != "12345" || trains[0].Name != "Rajdhani" || trains[0].Duration != "16h" {
		t.Errorf("unexpected train: %+v", trains[0])
	}
}

func TestClient_SearchTrains_EncodesQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 空白・&・非ASCII文字がパーセントエンコードされていること
		if strings.Contains(r.URL.RawQuery, " ") {
			t.Errorf("raw query should be encoded: %q", r.URL.RawQuery)
		}
		if got := r.URL.Query().Get("from"); got != "New Delhi & Co" {
			t.Errorf("from = %q, want %q", got, "New Delhi & Co")
		}
		if got := r.URL.Query().Get("to"); got != "मुंबई" {
			t.Errorf("to = %q, want %q", got, "मुंबई")
		}
		w.Write([]byte(`{"trains":[]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	if _, err := c.SearchTrains(context.Background(), "New Delhi & Co", "मुंबई"); err != nil {
		t.Fatalf("SearchTrains がエラーを返した: %v", err)
	}
}

func TestClient_SearchTrains_MissingTrainsFieldReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	trains, err := c.SearchTrains(context.Background(), "A", "B")
	if err != nil {
		t.Fatalf("SearchTrains がエラーを返した: %v", err)
	}
	if trains == nil || len(trains) != 0 {
		t.Errorf("trains = %#v, want empty non-nil slice", trains)
	}
}

func TestClient_SearchTrains_ErrorPayloadIsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Both from and to stations are required"})
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	_, err := c.SearchTrains(context.Background(), "A", "")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("ServiceError であるべき: got %T %v", err, err)
	}
	if svcErr.Message != "Both from and to stations are required" {
		t.Errorf("message = %q", svcErr.Message)
	}
}

func TestClient_ErrorPayloadWith200IsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Train not running today"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	_, err := c.GetLiveStatus(context.Background(), "12345")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("ServiceError であるべき: got %T %v", err, err)
	}
	if err.Error() != "Train not running today" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClient_TransportFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "不正なJSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>oops</html>"))
			},
		},
		{
			name: "エラーペイロードのない500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "ボディなしの502",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var buf bytes.Buffer
			c := newTestClient(t, server, &buf)

			_, err := c.GetPNRStatus(context.Background(), "1234567890")
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("FetchError であるべき: got %T %v", err, err)
			}
			if err.Error() != "Failed to get PNR status" {
				t.Errorf("Error() = %q, want %q", err.Error(), "Failed to get PNR status")
			}
			if fetchErr.Unwrap() == nil {
				t.Error("原因エラーが保持されるべき")
			}
		})
	}
}

func TestClient_NetworkErrorIsGeneric(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close() // 接続拒否を発生させる

	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), ClientConfig{BaseURL: baseURL})

	_, err := c.SearchTrains(context.Background(), "Delhi", "Mumbai")
	if err == nil {
		t.Fatal("接続失敗時にエラーが返されるべき")
	}
	if err.Error() != "Failed to search trains" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Failed to search trains")
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("通信失敗時にERRORレベルのログが記録されるべき: %s", buf.String())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetLiveStatus(ctx, "12345")
	if err == nil {
		t.Fatal("キャンセルされたコンテキストでエラーが返されるべき")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled エラーであるべき: got %v", err)
	}
	if err.Error() != "Failed to get live status" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClient_GetPNRStatus_DecodesNullableSeat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pnr"); got != "1234567890" {
			t.Errorf("pnr = %q", got)
		}
		w.Write([]byte(`{"pnr":"1234567890","status":"WL 45","train_number":"22691","train_name":"Shatabdi Express","date":"2026-10-17","from":"New Delhi","to":"Mumbai Central","class":"3A","seat":null}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	res, err := c.GetPNRStatus(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("GetPNRStatus がエラーを返した: %v", err)
	}
	if res.Seat != nil {
		t.Errorf("Seat = %v, want nil", *res.Seat)
	}
	if res.TrainName != "Shatabdi Express" || res.Class != "3A" || res.Status != "WL 45" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestClient_GetLiveStatus_UsesTrainParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/live_status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("train"); got != "12951" {
			t.Errorf("train = %q", got)
		}
		w.Write([]byte(`{"train_number":"12951","train_name":"Mumbai Rajdhani","status":"On Time","current_station":"Kanpur","last_updated":"2026-10-17 10:00:00","next_station":"Lucknow Junction","scheduled_arrival":"14:30","expected_arrival":"14:45"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	res, err := c.GetLiveStatus(context.Background(), "12951")
	if err != nil {
		t.Fatalf("GetLiveStatus がエラーを返した: %v", err)
	}
	if res.CurrentStation != "Kanpur" || res.ExpectedArrival != "14:45" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestClient_GetFareInfoAndAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fare_info":
			w.Write([]byte(`{"train_number":"12345","fares":{"SL":300,"3A":900},"currency":"INR"}`))
		case "/seat_availability":
			w.Write([]byte(`{"train_number":"12345","date":"2026-10-17","availability":{"SL":{"available":12,"waiting":3}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	fare, err := c.GetFareInfo(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetFareInfo がエラーを返した: %v", err)
	}
	if fare.Fares["3A"] != 900 || fare.Currency != "INR" {
		t.Errorf("unexpected fare: %+v", fare)
	}

	avail, err := c.GetSeatAvailability(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetSeatAvailability がエラーを返した: %v", err)
	}
	if avail.Availability["SL"].Available != 12 || avail.Availability["SL"].Waiting != 3 {
		t.Errorf("unexpected availability: %+v", avail)
	}
}

func TestClient_RecordsMetricsPerOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pnr") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"PNR must be 10 digits"}`))
			return
		}
		w.Write([]byte(`{"pnr":"1234567890","status":"Confirmed"}`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL, Metrics: collector})

	_, _ = c.GetPNRStatus(context.Background(), "1234567890")
	_, _ = c.GetPNRStatus(context.Background(), "bad")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "trainboard_queries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" {
					got[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	if got[metrics.OutcomeSuccess] != 1 {
		t.Errorf("success = %v, want 1", got[metrics.OutcomeSuccess])
	}
	if got[metrics.OutcomeServiceError] != 1 {
		t.Errorf("service_error = %v, want 1", got[metrics.OutcomeServiceError])
	}
}
