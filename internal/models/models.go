package models

import "time"

// Config 结构体定义了编辑器后端的所有配置参数
type Config struct {
	DBPath         string        `json:"db_path"`         // 草稿数据库(BadgerDB)目录
	IndicatorsPath string        `json:"indicators_path"` // 已选指标列表的JSON文件路径
	SessionID      string        `json:"session_id"`      // 编辑会话ID, 为空时自动生成
	LogConfig      LogConfig     `json:"log"`             // 日志配置
	Server         ServerConfig  `json:"server"`          // 实时预览服务配置
	Backend        BackendConfig `json:"backend"`         // 策略执行后端配置
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// ServerConfig 定义了实时预览 WebSocket 服务的配置
type ServerConfig struct {
	Addr              string `json:"addr"`                // 监听地址, e.g. ":8090"
	WriteTimeoutSec   int    `json:"write_timeout_sec"`   // 单条消息写超时(秒)
	MaxMessageBytes   int64  `json:"max_message_bytes"`   // 入站消息大小上限
	AllowedOriginHost string `json:"allowed_origin_host"` // 为空时允许任意来源
}

// BackendConfig 定义了策略提交后端的配置
type BackendConfig struct {
	BaseURL    string `json:"base_url"`    // 执行后端REST地址
	APIToken   string `json:"api_token"`   // Bearer token (通常由环境变量覆盖)
	TimeoutSec int    `json:"timeout_sec"` // 单次请求超时(秒)
	Name       string `json:"name"`        // 提交时使用的策略名称
	Symbol     string `json:"symbol"`      // 交易对, e.g. "BTCUSDT"
}

// Timeout returns the request timeout with a 10s default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutSec) * time.Second
}

// SelectedIndicator 是用户在编辑器中选中的一个指标实例 (由外部协作者提供, 只读)
type SelectedIndicator struct {
	ID        string    `json:"id"`        // 指标实例ID, ValueRef.IndicatorID 指向它
	Type      string    `json:"type"`      // 指标类型, e.g. "macd"
	Name      string    `json:"name"`      // 显示名称, 为空时使用类型名
	Timeframe string    `json:"timeframe"` // 默认周期
	Params    []float64 `json:"params"`    // 参数, e.g. [12, 26, 9]
}
