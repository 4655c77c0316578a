package types

// ActionResult 上传/删除等操作的结果，失败时 Message 为面向用户的提示.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// DeleteRequest 删除请求，支持 JSON 与表单.
type DeleteRequest struct {
	FileName string `json:"fileName" form:"fileName" rule:"required"`
	Type     string `json:"type"     form:"type"     rule:"required,media_folder"`
}

// LoginRequest 登录请求.
type LoginRequest struct {
	Username string `json:"username" form:"username" rule:"required,max=128"`
	Password string `json:"password" form:"password" rule:"required,max=256"`
}

// SessionResponse 当前会话状态.
type SessionResponse struct {
	Admin   bool   `json:"admin"`
	Subject string `json:"subject,omitempty"`
}

// RenameOp 占位文件重命名迁移中的一次操作.
type RenameOp struct {
	Category Category `json:"category"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Applied  bool     `json:"applied"`
	Error    string   `json:"error,omitempty"`
}

// ActivityView 操作日志对外展示结构.
type ActivityView struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Category  string `json:"category"`
	Key       string `json:"key"`
	Size      int64  `json:"size,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"createdAt"`
}
