// Package trainapi は列車情報バックエンド（検索・PNR照会・運行状況）のHTTPクライアントを提供する。
// すべての照会は1回のリクエスト/レスポンスで完結し、リトライやキャッシュは行わない。
package trainapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/trainboard/internal/metrics"
	"github.com/hitoshi/trainboard/internal/model"
)

const (
	// defaultBaseURL はバックエンドの既定URL。
	defaultBaseURL = "http://localhost:5000"
	// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
	maxResponseSize = 1 << 20
)

// エンドポイント名。メトリクスのラベルにも使う。
const (
	EndpointSearchTrains     = "search_trains"
	EndpointPNRStatus        = "pnr_status"
	EndpointLiveStatus       = "live_status"
	EndpointFareInfo         = "fare_info"
	EndpointSeatAvailability = "seat_availability"
)

// 通信失敗時に利用者へ提示する汎用メッセージ。
const (
	msgSearchFailed       = "Failed to search trains"
	msgPNRFailed          = "Failed to get PNR status"
	msgLiveStatusFailed   = "Failed to get live status"
	msgFareFailed         = "Failed to get fare info"
	msgAvailabilityFailed = "Failed to get seat availability"
)

// ServiceError はバックエンドがエラーペイロード（{"error": "..."}）を返したことを表す。
// メッセージは加工せずそのまま利用者に提示する。
type ServiceError struct {
	Endpoint string
	Message  string
}

// Error はerrorインターフェースを実装する。
func (e *ServiceError) Error() string {
	return e.Message
}

// FetchError は通信レベルの失敗（ネットワークエラー、JSON以外の応答、エラーペイロードのない非2xx）を表す。
// タイムアウト、4xx、5xxは区別せず、汎用メッセージに変換する。原因はUnwrapで取得できる。
type FetchError struct {
	Endpoint string
	Message  string
	Err      error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	return e.Message
}

// Unwrap は原因となったエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL string
	Metrics metrics.MetricsCollector
}

// Client は列車情報バックエンドのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		metrics:    config.Metrics,
	}
}

// searchResponse は/search_trainsの成功レスポンス。
type searchResponse struct {
	Trains []model.TrainSummary `json:"trains"`
}

// SearchTrains は出発駅と到着駅で列車を検索する。
// 入力の検証は呼び出し元で行う。該当なしの場合は空スライスを返す。
func (c *Client) SearchTrains(ctx context.Context, from, to string) ([]model.TrainSummary, error) {
	var resp searchResponse
	params := url.Values{"from": {from}, "to": {to}}
	if err := c.getJSON(ctx, EndpointSearchTrains, params, msgSearchFailed, &resp); err != nil {
		return nil, err
	}
	if resp.Trains == nil {
		return []model.TrainSummary{}, nil
	}
	return resp.Trains, nil
}

// GetPNRStatus はPNR番号の予約状況を取得する。
// 10桁であることの検証は呼び出し元で行う。
func (c *Client) GetPNRStatus(ctx context.Context, pnr string) (*model.PNRStatus, error) {
	var resp model.PNRStatus
	if err := c.getJSON(ctx, EndpointPNRStatus, url.Values{"pnr": {pnr}}, msgPNRFailed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLiveStatus は列車番号の運行状況を取得する。
func (c *Client) GetLiveStatus(ctx context.Context, trainNumber string) (*model.LiveStatus, error) {
	var resp model.LiveStatus
	if err := c.getJSON(ctx, EndpointLiveStatus, url.Values{"train": {trainNumber}}, msgLiveStatusFailed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetFareInfo は列車番号の等級別運賃を取得する。
func (c *Client) GetFareInfo(ctx context.Context, trainNumber string) (*model.FareInfo, error) {
	var resp model.FareInfo
	if err := c.getJSON(ctx, EndpointFareInfo, url.Values{"train": {trainNumber}}, msgFareFailed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSeatAvailability は列車番号の等級別空席状況を取得する。
func (c *Client) GetSeatAvailability(ctx context.Context, trainNumber string) (*model.SeatAvailability, error) {
	var resp model.SeatAvailability
	if err := c.getJSON(ctx, EndpointSeatAvailability, url.Values{"train": {trainNumber}}, msgAvailabilityFailed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// errorEnvelope はエラーペイロードの判定用。
type errorEnvelope struct {
	Error string `json:"error"`
}

// getJSON はGETリクエストを1回発行し、レスポンスJSONをoutにデコードする。
// エラーペイロードはServiceError、それ以外の失敗はFetchErrorとして返す。
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, failMsg string, out any) error {
	start := time.Now()
	err := c.doGetJSON(ctx, endpoint, params, failMsg, out)
	c.metrics.RecordQueryLatency(endpoint, time.Since(start))

	var svcErr *ServiceError
	switch {
	case err == nil:
		c.metrics.RecordQuery(endpoint, metrics.OutcomeSuccess)
	case errors.As(err, &svcErr):
		c.metrics.RecordQuery(endpoint, metrics.OutcomeServiceError)
	default:
		c.metrics.RecordQuery(endpoint, metrics.OutcomeFetchFailed)
	}
	return err
}

func (c *Client) doGetJSON(ctx context.Context, endpoint string, params url.Values, failMsg string, out any) error {
	fail := func(cause error) error {
		c.logger.Error("列車情報APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", cause.Error()),
		)
		return &FetchError{Endpoint: endpoint, Message: failMsg, Err: cause}
	}

	// リクエストURL構築（クエリパラメータはパーセントエンコードする）
	reqURL, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return fail(fmt.Errorf("ベースURLのパースに失敗しました: %w", err))
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fail(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Trainboard/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fail(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}

	// バックエンドはエラー時も4xxとJSONペイロードを返すため、ステータスより先にペイロードを確認する
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fail(fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err))
	}
	if envelope.Error != "" {
		c.logger.Warn("列車情報APIがエラーを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", envelope.Error),
		)
		return &ServiceError{Endpoint: endpoint, Message: envelope.Error}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("列車情報APIがステータス %d を返しました", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fail(fmt.Errorf("レスポンスJSONのデコードに失敗しました: %w", err))
	}

	return nil
}
