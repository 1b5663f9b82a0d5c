package pipeline

import "errors"

var (
	// ErrBadDateRange 日期解析失败或起止颠倒（输入错误，不重试）
	ErrBadDateRange = errors.New("无效的日期范围，日期格式应为 YYYY-MM-DD")

	// ErrMainFileNotFound 在解压目录中无法定位主 .tex 文件
	ErrMainFileNotFound = errors.New("未能在压缩包中定位主 .tex 文件")

	// ErrNotAList 模型应返回列表却返回了其他形状（标准模式下致命）
	ErrNotAList = errors.New("模型返回的内容不是合法的文本列表")
)
