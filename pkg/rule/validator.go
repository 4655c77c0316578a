// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
//
// 校验标签统一为 `rule`，并在初始化时注册画廊相关的自定义规则:
//
//	media_folder  合法的媒体分类（images/videos/documents/audios 及其单数形式）
//	no_path_sep   不包含路径分隔符与 NUL
package rule

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// mediaFolders 可接受的分类写法，统一转小写后比较.
var mediaFolders = map[string]struct{}{
	"images": {}, "image": {}, "photos": {}, "photo": {},
	"videos": {}, "video": {},
	"documents": {}, "document": {}, "docs": {},
	"audios": {}, "audio": {},
}

// initValidator 尝试复用 gin 的 validator 引擎；若不可用则新建.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")

	_ = inst.RegisterValidation("media_folder", isMediaFolder)
	_ = inst.RegisterValidation("no_path_sep", hasNoPathSep)
}

func isMediaFolder(fl validator.FieldLevel) bool {
	_, ok := mediaFolders[strings.ToLower(strings.TrimSpace(fl.Field().String()))]

	return ok
}

func hasNoPathSep(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "/\\\x00")
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidationErrors 是格式化后的验证错误字典，键为字段名，值为可读错误信息.
type ValidationErrors map[string]string

// Errors 将 validator 错误解析为 ValidationErrors；非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(ValidationErrors, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			out[fe.Field()] = fmt.Sprintf("failed on '%s=%s'", fe.Tag(), fe.Param())
		} else {
			out[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
		}
	}

	return out
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Errors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("images", "required,media_folder").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}
