package version

const (
	// AppName 是应用程序的名称
	AppName = "vision-bridge"
	// Version 是当前版本
	Version = "0.3.0"
	// Author 是应用程序的作者
	Author = "PhiFever"
)

// GetFullName 返回带版本的完整名称
func GetFullName() string {
	return AppName + " v" + Version
}
