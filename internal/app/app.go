// Package app はtrainboard CLIの依存関係を組み立て、サブコマンドを実行する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/trainboard/internal/auth"
	"github.com/hitoshi/trainboard/internal/config"
	"github.com/hitoshi/trainboard/internal/database"
	"github.com/hitoshi/trainboard/internal/favorites"
	"github.com/hitoshi/trainboard/internal/logger"
	"github.com/hitoshi/trainboard/internal/metrics"
	"github.com/hitoshi/trainboard/internal/repository"
	"github.com/hitoshi/trainboard/internal/session"
	"github.com/hitoshi/trainboard/internal/trainapi"
)

// ErrReported はエラー内容を既に出力済みであることを表す。終了コードだけを非0にする。
var ErrReported = errors.New("error already reported")

// Options はCLIの入出力と外部連携の差し替え口。
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Opener はGoogleサインインの同意画面URLを利用者に提示する。nilの場合はStderrにURLを出力する。
	Opener func(authURL string) error

	// HTTPClient はFirebaseとOAuthのトークン交換に使う。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
}

// App は1回のコマンド実行で共有する設定と依存関係を保持する。
// 依存関係は必要になった時点で生成し、Closeでまとめて解放する。
type App struct {
	opts   Options
	cfg    *config.Config
	logger *slog.Logger

	registry  *prometheus.Registry
	collector *metrics.Collector

	store   *session.Store
	repo    repository.FavoriteRepository
	closers []func() error
}

// newApp は設定を読み込み、ログとメトリクスを初期化したAppを返す。
func newApp(opts Options, envFile string) (*App, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l := logger.SetupDefault(opts.Stderr, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	return &App{
		opts:      opts,
		cfg:       cfg,
		logger:    l,
		registry:  reg,
		collector: metrics.NewCollector(reg),
	}, nil
}

// Close は生成済みの依存関係を逆順に解放する。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// QueryClient は列車情報バックエンドへの照会を行う。
func (a *App) QueryClient() *trainapi.Client {
	return trainapi.NewClient(
		&http.Client{Timeout: a.cfg.TrainAPITimeout},
		a.logger,
		trainapi.ClientConfig{
			BaseURL: a.cfg.TrainAPIBaseURL,
			Metrics: a.collector,
		},
	)
}

// Session はサインイン状態のStoreを返す。初回呼び出し時に資格情報キャッシュを開き、
// 保存済みの資格情報からIdentityを解決する。
func (a *App) Session(ctx context.Context) (*session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	cache, err := auth.OpenCredentialCache(a.cfg.CredentialCachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential cache: %w", err)
	}
	a.closers = append(a.closers, cache.Close)

	var google session.GoogleSignIn
	if a.cfg.GoogleClientID != "" {
		google = auth.NewGoogleFlow(a.logger, auth.GoogleFlowConfig{
			ClientID:     a.cfg.GoogleClientID,
			ClientSecret: a.cfg.GoogleClientSecret,
			Opener:       a.opener(),
			HTTPClient:   a.opts.HTTPClient,
		})
	}

	a.store = session.NewStore(a.authProvider(), google, cache)
	a.store.Resolve(ctx)
	return a.store, nil
}

// authProvider はFirebase Authenticationのプロバイダーを生成する。
// FIREBASE_AUTH_EMULATOR_HOSTが設定されている場合はエミュレーターに接続する。
func (a *App) authProvider() auth.Provider {
	fc := auth.FirebaseConfig{APIKey: a.cfg.FirebaseAPIKey}
	if host := a.cfg.FirebaseAuthEmulatorHost; host != "" {
		base := "http://" + strings.TrimSuffix(host, "/")
		fc.IdentityToolkitURL = base + "/identitytoolkit.googleapis.com/v1"
		fc.SecureTokenURL = base + "/securetoken.googleapis.com/v1/token"
	}
	return auth.NewFirebaseProvider(a.opts.HTTPClient, fc)
}

func (a *App) opener() func(string) error {
	if a.opts.Opener != nil {
		return a.opts.Opener
	}
	return func(authURL string) error {
		_, err := fmt.Fprintf(a.opts.Stderr, "Open the following URL in your browser to sign in:\n\n  %s\n\n", authURL)
		return err
	}
}

// FavoriteRepository は設定されたバックエンドのお気に入りリポジトリを返す。
func (a *App) FavoriteRepository(ctx context.Context) (repository.FavoriteRepository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	if err := a.cfg.ValidateFavorites(); err != nil {
		return nil, err
	}

	switch a.cfg.FavoritesBackend {
	case config.BackendPostgres:
		db, err := database.OpenAndPing(ctx, a.cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.repo = repository.NewPostgresFavoriteRepo(db)
	case config.BackendFirestore:
		client, err := database.OpenFirestore(ctx, database.FirestoreConfig{
			ProjectID:       a.cfg.FirebaseProjectID,
			CredentialsFile: a.cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.repo = repository.NewFirestoreFavoriteRepo(client)
	default:
		a.repo = repository.NewMemoryFavoriteRepo()
	}

	a.logger.Debug("お気に入りストアを初期化しました", slog.String("backend", a.cfg.FavoritesBackend))
	return a.repo, nil
}

// Favorites は現在のユーザーにスコープしたお気に入りClientを返す。
func (a *App) Favorites(ctx context.Context) (*favorites.Client, *session.Store, error) {
	store, err := a.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo, err := a.FavoriteRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return favorites.NewClient(repo, store, a.logger, a.collector), store, nil
}

// WriteMetrics はこの実行で記録したメトリクスをPrometheusのテキスト形式でファイルに書き出す。
func (a *App) WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
