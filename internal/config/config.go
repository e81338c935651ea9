package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"strategy-logic-go/internal/models"
)

// 可覆盖配置文件的环境变量
const (
	EnvBackendToken = "STRATEGY_BACKEND_TOKEN"
	EnvBackendURL   = "STRATEGY_BACKEND_URL"
)

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中
// 环境变量中的后端地址与token优先于文件中的值
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	config := &models.Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	applyEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyEnv(cfg *models.Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendToken)); v != "" {
		cfg.Backend.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
}

func applyDefaults(cfg *models.Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		cfg.Server.WriteTimeoutSec = 5
	}
	if cfg.Server.MaxMessageBytes <= 0 {
		cfg.Server.MaxMessageBytes = 1 << 20
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "console"
	}
}

// LoadSelectedIndicators 读取编辑器导出的已选指标列表
func LoadSelectedIndicators(path string) ([]models.SelectedIndicator, error) {
	if path == "" {
		return []models.SelectedIndicator{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var selected []models.SelectedIndicator
	if err := json.Unmarshal(raw, &selected); err != nil {
		return nil, fmt.Errorf("decode selected indicators %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if s.ID == "" {
			return nil, fmt.Errorf("selected indicator of type %q has no id", s.Type)
		}
		if _, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("selected indicator %q is listed twice", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return selected, nil
}
