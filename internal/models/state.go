package models

import "time"

// Draft 定义了编辑会话需要本地暂存的全部数据
type Draft struct {
	SessionID      string    `json:"session_id"`       // 编辑会话的唯一标识符
	Version        int       `json:"version"`          // 草稿模型的版本号，用于未来迁移
	Revision       int64     `json:"revision"`         // 每次成功编辑后递增
	Tree           Tree      `json:"tree"`             // 【核心】可编辑的条件树
	LastUpdateTime time.Time `json:"last_update_time"` // 草稿最后更新的时间戳
}

// DraftVersion is the current Draft schema version.
const DraftVersion = 1
