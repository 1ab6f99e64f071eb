package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultLoopbackAddr = "127.0.0.1:0"
	callbackPath        = "/callback"
	defaultFlowTimeout  = 3 * time.Minute
)

// GoogleFlowConfig はGoogleサインイン（ループバックOAuthフロー）の設定。
type GoogleFlowConfig struct {
	ClientID     string
	ClientSecret string

	// Opener は同意画面のURLを利用者に提示する（ブラウザ起動など）。
	Opener func(authURL string) error

	// テスト用にオーバーライド可能な値
	Endpoint   oauth2.Endpoint
	ListenAddr string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GoogleFlow はOAuth 2.0認可コードフローでGoogleのIDトークンを取得する。
// 127.0.0.1でコールバックを待ち受け、stateとPKCEで応答を検証する。
type GoogleFlow struct {
	config GoogleFlowConfig
	logger *slog.Logger
}

// NewGoogleFlow はGoogleFlowを生成する。
func NewGoogleFlow(logger *slog.Logger, config GoogleFlowConfig) *GoogleFlow {
	if config.Endpoint.AuthURL == "" {
		config.Endpoint = google.Endpoint
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaultLoopbackAddr
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultFlowTimeout
	}
	return &GoogleFlow{config: config, logger: logger}
}

type callbackResult struct {
	code string
	err  error
}

// IDToken は同意画面を開き、コールバックで受け取った認可コードをIDトークンに交換する。
func (f *GoogleFlow) IDToken(ctx context.Context) (string, error) {
	if f.config.ClientID == "" {
		return "", errors.New("google sign-in is not configured")
	}
	if f.config.Opener == nil {
		return "", errors.New("no opener for the consent page")
	}

	ln, err := net.Listen("tcp", f.config.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("failed to listen for callback: %w", err)
	}

	state, err := generateState()
	if err != nil {
		ln.Close()
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	oauthConfig := &oauth2.Config{
		ClientID:     f.config.ClientID,
		ClientSecret: f.config.ClientSecret,
		Endpoint:     f.config.Endpoint,
		RedirectURL:  "http://" + ln.Addr().String() + callbackPath,
		Scopes:       []string{"openid", "email", "profile"},
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := readCallback(r, state)
		select {
		case results <- res:
		default:
		}
		if res.err != nil {
			http.Error(w, "Login failed. You can close this window.", http.StatusBadRequest)
			return
		}
		w.Write([]byte("Login complete. You can close this window."))
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("コールバックサーバーが異常終了しました", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	if err := f.config.Opener(authURL); err != nil {
		return "", fmt.Errorf("failed to open consent page: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return "", fmt.Errorf("sign-in was not completed: %w", waitCtx.Err())
	}
	if res.err != nil {
		return "", res.err
	}

	if f.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.config.HTTPClient)
	}
	token, err := oauthConfig.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return "", errors.New("empty id_token in response")
	}
	return idToken, nil
}

// readCallback はコールバックのクエリを検証し、認可コードを取り出す。
func readCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: fmt.Errorf("authorization denied: %s", e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: errors.New("invalid oauth state")}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("missing authorization code")}
	}
	return callbackResult{code: code}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
