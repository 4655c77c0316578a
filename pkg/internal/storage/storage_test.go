package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/storage"
)

// TestInitLocal 测试默认本地配置下的初始化.
func TestInitLocal(t *testing.T) {
	dir := t.TempDir()

	cfg := &configs.AppConfig{}
	cfg.Storage.Backend = configs.BackendLocal
	cfg.Storage.Local.Root = filepath.Join(dir, "uploads")
	cfg.KV.Type = "memory"
	cfg.DB = configs.DBConfig{Enabled: true, Type: configs.SQLite, Database: filepath.Join(dir, "activity")}
	cfg.Events.Enabled = true
	cfg.MQ.Type = configs.MQTypeGoChannel

	mgr, err := storage.Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer mgr.Close()

	if mgr.GetBackend().Name() != "local" || mgr.GetBackend().Remote() {
		t.Errorf("backend = %s", mgr.GetBackend().Name())
	}

	if mgr.GetDBClient() == nil || mgr.GetMQClient() == nil || mgr.GetKVClient() == nil {
		t.Errorf("manager incomplete: %+v", mgr)
	}
}

// TestInitUnknownBackend 测试未知后端.
func TestInitUnknownBackend(t *testing.T) {
	cfg := &configs.AppConfig{}
	cfg.Storage.Backend = "ftp"

	if _, err := storage.Init(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

// TestNilManager 测试 nil 接收者安全.
func TestNilManager(t *testing.T) {
	var m *storage.Manager

	if m.GetBackend() != nil || m.GetDBClient() != nil {
		t.Fatal("nil manager should return nil clients")
	}
}
