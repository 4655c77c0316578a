package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
)

// TestSQLiteMigrateAndInsert 测试 SQLite 连接、迁移与写入.
func TestSQLiteMigrateAndInsert(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.DBConfig{Type: configs.SQLite, Database: filepath.Join(t.TempDir(), "activity")}

	client, err := db.New(ctx, cfg)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	row := model.Activity{ID: "01HZX0000000000000000000AA", Action: model.ActionUpload, ObjectKey: "images/a.png", Success: true, CreatedAt: time.Now()}
	if err := client.WithContext(ctx).Create(&row).Error; err != nil {
		t.Fatalf("Create: %v", err)
	}

	var count int64
	if err := client.Model(&model.Activity{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("Count = %d, %v", count, err)
	}
}

// TestUnsupportedType 测试未注册的数据库类型.
func TestUnsupportedType(t *testing.T) {
	if _, err := db.New(context.Background(), &configs.DBConfig{Type: "oracle", Database: "x"}); err == nil {
		t.Fatal("expected error")
	}

	found := false

	for _, tp := range db.GetRegisteredDBTypes() {
		if tp == configs.MariaDB {
			found = true
		}
	}

	if !found {
		t.Errorf("mariadb alias not registered: %v", db.GetRegisteredDBTypes())
	}
}
