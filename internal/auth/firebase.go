package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1/token"
	defaultIdpRequestURI      = "http://localhost"

	providerPassword = "password"
	providerGoogle   = "google.com"
)

// FirebaseConfig はFirebase Authentication REST APIの設定。
type FirebaseConfig struct {
	APIKey string

	// テスト用にオーバーライド可能なURL
	IdentityToolkitURL string
	SecureTokenURL     string
	RequestURI         string
}

// FirebaseProvider はFirebase Authentication REST APIによる認証を提供する。
type FirebaseProvider struct {
	httpClient *http.Client
	config     FirebaseConfig
	now        func() time.Time
}

// NewFirebaseProvider はFirebaseProviderを生成する。
func NewFirebaseProvider(httpClient *http.Client, config FirebaseConfig) *FirebaseProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if config.IdentityToolkitURL == "" {
		config.IdentityToolkitURL = defaultIdentityToolkitURL
	}
	if config.SecureTokenURL == "" {
		config.SecureTokenURL = defaultSecureTokenURL
	}
	if config.RequestURI == "" {
		config.RequestURI = defaultIdpRequestURI
	}
	return &FirebaseProvider{
		httpClient: httpClient,
		config:     config,
		now:        time.Now,
	}
}

// identityToolkitResponse はaccounts:*エンドポイントの共通レスポンス。
type identityToolkitResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	ProviderID   string `json:"providerId"`
}

// secureTokenResponse はトークン更新エンドポイントのレスポンス。
type secureTokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// firebaseErrorResponse はFirebaseのエラーレスポンス。
type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword はaccounts:signInWithPasswordを呼び出す。
func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp identityToolkitResponse
	if err := p.postAccounts(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign in with password: %w", err)
	}
	return p.credentialFrom(&resp, providerPassword)
}

// SignUpWithPassword はaccounts:signUpを呼び出す。
func (p *FirebaseProvider) SignUpWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp identityToolkitResponse
	if err := p.postAccounts(ctx, "accounts:signUp", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	if resp.Email == "" {
		resp.Email = email
	}
	return p.credentialFrom(&resp, providerPassword)
}

// SignInWithGoogleIDToken はaccounts:signInWithIdpでGoogleのIDトークンを交換する。
func (p *FirebaseProvider) SignInWithGoogleIDToken(ctx context.Context, idToken string) (*model.Credential, error) {
	postBody := url.Values{
		"id_token":   {idToken},
		"providerId": {providerGoogle},
	}
	body := map[string]interface{}{
		"postBody":            postBody.Encode(),
		"requestUri":          p.config.RequestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	}
	var resp identityToolkitResponse
	if err := p.postAccounts(ctx, "accounts:signInWithIdp", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign in with google: %w", err)
	}
	return p.credentialFrom(&resp, providerGoogle)
}

// Refresh はリフレッシュトークンでIDトークンを更新する。
// トークン更新APIはプロフィールを返さないため、Identityは元の資格情報から引き継ぐ。
func (p *FirebaseProvider) Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, &ProviderError{Code: "MISSING_REFRESH_TOKEN", Err: ErrTokenExpired}
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
	}
	endpoint := p.config.SecureTokenURL + "?key=" + url.QueryEscape(p.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp secureTokenResponse
	if err := p.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	identity := cred.Identity
	if resp.UserID != "" {
		identity.UID = resp.UserID
	}
	return &model.Credential{
		Identity:     identity,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiresAt(resp.ExpiresIn),
	}, nil
}

// SignOut はFirebase側のセッションを終了する。
// REST APIにはクライアント向けの失効エンドポイントがないため、ローカル資格情報の破棄で完結する。
func (p *FirebaseProvider) SignOut(ctx context.Context, cred *model.Credential) error {
	return ctx.Err()
}

// postAccounts はIdentity ToolkitのエンドポイントにJSONをPOSTする。
func (p *FirebaseProvider) postAccounts(ctx context.Context, method string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.config.IdentityToolkitURL, method, url.QueryEscape(p.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, out)
}

// do はリクエストを送信し、エラーレスポンスをProviderErrorに変換する。
func (p *FirebaseProvider) do(req *http.Request, out interface{}) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp firebaseErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return parseProviderError(errResp.Error.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseProviderError はFirebaseのエラーメッセージ（"CODE : 詳細"形式）を解析する。
func parseProviderError(message string) *ProviderError {
	code, detail, _ := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)

	pe := &ProviderError{Code: code, Message: strings.TrimSpace(detail)}
	switch code {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		pe.Err = ErrAccountNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		pe.Err = ErrInvalidCredentials
	case "EMAIL_EXISTS":
		pe.Err = ErrEmailExists
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_DISABLED":
		pe.Err = ErrTokenExpired
	}
	if pe.Message == "" && pe.Err == nil {
		pe.Message = code
	}
	return pe
}

// credentialFrom はIdentity Toolkitのレスポンスを資格情報に変換する。
func (p *FirebaseProvider) credentialFrom(resp *identityToolkitResponse, defaultProvider string) (*model.Credential, error) {
	if resp.LocalID == "" || resp.IDToken == "" {
		return nil, fmt.Errorf("incomplete sign-in response")
	}
	provider := resp.ProviderID
	if provider == "" {
		provider = defaultProvider
	}
	return &model.Credential{
		Identity: model.Identity{
			UID:         resp.LocalID,
			DisplayName: resp.DisplayName,
			Email:       resp.Email,
			Provider:    provider,
		},
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiresAt(resp.ExpiresIn),
	}, nil
}

// expiresAt は秒数文字列から有効期限を算出する。解析できない場合は1時間とする。
func (p *FirebaseProvider) expiresAt(expiresIn string) time.Time {
	sec, err := strconv.Atoi(expiresIn)
	if err != nil || sec <= 0 {
		sec = 3600
	}
	return p.now().Add(time.Duration(sec) * time.Second)
}

// compile-time interface check
var _ Provider = (*FirebaseProvider)(nil)
