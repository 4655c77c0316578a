// Package main 启动 mediavault 画廊服务与管理命令.
package main

import (
	"os"

	"github.com/yeisme/mediavault/pkg/cmd"
)

//	@title			MediaVault API
//	@version		1.0
//	@description	MediaVault 是一个自托管的媒体画廊，提供分类浏览、存储代理以及管理员上传与删除.

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

func main() {
	os.Exit(cmd.Main())
}
