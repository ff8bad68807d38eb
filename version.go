// Package device_laser 只保存服务版本号，构建时通过
// -ldflags "-X github.com/linjuya-lu/device_laser_go.Version=x.y.z" 注入。
package device_laser

// Version 服务版本号
var Version = "0.0.0"
