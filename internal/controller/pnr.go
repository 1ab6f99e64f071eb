package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgPNRRequired = "Please enter PNR number"
	msgPNRLength   = "PNR number must be 10 digits"
	msgPNRFailed   = "Failed to get PNR status"

	pnrLength = 10
)

// PNRState はPNR照会画面の状態スナップショット。
type PNRState struct {
	PNR    string           `json:"pnr" yaml:"pnr"`
	Phase  Phase            `json:"phase" yaml:"phase"`
	Result *model.PNRStatus `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// StatusClass は予約状態の表示クラスを返す。結果がない場合は空文字。
func (s PNRState) StatusClass() string {
	if s.Result == nil {
		return ""
	}
	return PNRStatusClass(s.Result.Status)
}

// PNRController はPNR番号による予約状況の照会を管理する。
type PNRController struct {
	client PNRChecker

	mu    sync.Mutex
	state PNRState
	seq   requestSeq
	subs  observers[PNRState]
}

// NewPNRController はPNRControllerを生成する。
func NewPNRController(client PNRChecker) *PNRController {
	return &PNRController{
		client: client,
		state:  PNRState{Phase: PhaseIdle},
	}
}

// State は現在の状態のコピーを返す。
func (c *PNRController) State() PNRState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe は状態変更の通知先を登録する。
func (c *PNRController) Subscribe(fn func(PNRState)) (unsubscribe func()) {
	return c.subs.subscribe(fn)
}

// SetPNR はPNR番号を設定する。
func (c *PNRController) SetPNR(pnr string) {
	c.mu.Lock()
	c.state.PNR = pnr
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

// Submit は入力を検証してPNR照会を実行する。桁数は入力そのままの文字数で判定する。
func (c *PNRController) Submit(ctx context.Context) {
	c.mu.Lock()
	token := c.seq.next()
	pnr := c.state.PNR
	if msg := validatePNR(pnr); msg != "" {
		c.state.Phase = PhaseError
		c.state.Error = msg
		c.state.Result = nil
		c.subs.enqueue(c.snapshotLocked())
		c.mu.Unlock()
		c.subs.flush()
		return
	}
	c.state.Phase = PhaseLoading
	c.state.Error = ""
	c.state.Result = nil
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()

	result, err := c.client.GetPNRStatus(ctx, pnr)

	c.mu.Lock()
	if !c.seq.isLatest(token) {
		c.mu.Unlock()
		slog.Debug("古いPNR照会結果を破棄しました", slog.Uint64("token", token))
		return
	}
	if err != nil {
		c.state.Phase = PhaseError
		c.state.Error = userMessage(err, msgPNRFailed)
	} else {
		c.state.Phase = PhaseSuccess
		c.state.Result = result
	}
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

func validatePNR(pnr string) string {
	if strings.TrimSpace(pnr) == "" {
		return msgPNRRequired
	}
	if utf8.RuneCountInString(pnr) != pnrLength {
		return msgPNRLength
	}
	return ""
}

func (c *PNRController) snapshotLocked() PNRState {
	snap := c.state
	if c.state.Result != nil {
		r := *c.state.Result
		snap.Result = &r
	}
	return snap
}
