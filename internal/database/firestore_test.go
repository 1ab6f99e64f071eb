package database

import (
	"context"
	"testing"
)

func TestOpenFirestore_RequiresProjectID(t *testing.T) {
	if _, err := OpenFirestore(context.Background(), FirestoreConfig{}); err == nil {
		t.Fatal("プロジェクトIDが空の場合はエラーになるべき")
	}
}
