package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreConfig はFirestore接続の設定。
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string // 空の場合はApplication Default Credentialsを使う
}

// OpenFirestore はFirestoreクライアントを生成する。
// FIRESTORE_EMULATOR_HOSTが設定されている場合はエミュレーターに接続する。
func OpenFirestore(ctx context.Context, cfg FirestoreConfig) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}
