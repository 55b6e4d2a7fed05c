package config

import "fmt"

// AppName 程序名，也是远端存储的默认根目录
const AppName = "photogram"

// 构建时通过 -ldflags "-X" 注入
var (
	Version    string = "dev"
	CommitHash string = ""
)

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// VersionString 版本号和提交哈希，用于日志和健康检查
func VersionString() string {
	if CommitHash == "" {
		return fmt.Sprintf("%s %s", AppName, Version)
	}
	return fmt.Sprintf("%s %s (%s)", AppName, Version, CommitHash)
}
