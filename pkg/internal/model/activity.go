package model

import "time"

// 操作类型.
const (
	ActionUpload = "upload"
	ActionDelete = "delete"
	ActionRename = "rename"
	ActionLogin  = "login"
)

// Activity 管理操作日志，记录上传、删除、占位文件迁移和登录.
type Activity struct {
	// ULID，按时间有序
	ID        string `gorm:"primaryKey;size:26"      json:"id"`
	Action    string `gorm:"size:16;index"           json:"action"`
	Category  string `gorm:"size:16;index"           json:"category"`
	ObjectKey string `gorm:"size:1024"               json:"object_key"`
	Size      int64  `                               json:"size"`
	Actor     string `gorm:"size:128"                json:"actor"`
	Success   bool   `gorm:"index"                   json:"success"`
	Message   string `gorm:"size:512"                json:"message"`
	// 请求来源 IP
	ClientIP  string    `gorm:"size:64"  json:"client_ip"`
	CreatedAt time.Time `gorm:"index"    json:"created_at"`
}

// TableName 表名.
func (Activity) TableName() string {
	return "activities"
}

// All 返回需要自动迁移的模型.
func All() []any {
	return []any{&Activity{}}
}
