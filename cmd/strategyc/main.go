package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"strategy-logic-go/internal/compiler"
	"strategy-logic-go/internal/condition"
	"strategy-logic-go/internal/config"
	"strategy-logic-go/internal/liveserver"
	"strategy-logic-go/internal/logger"
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/persistence"
	"strategy-logic-go/internal/preview"
	"strategy-logic-go/internal/session"
	"strategy-logic-go/internal/submit"
	"strategy-logic-go/internal/valueref"
)

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "compile", "running mode: compile, decompile, preview, serve or submit")
	inPath := flag.String("in", "-", "input file (tree JSON, or config JSON for decompile); - reads stdin")
	tradePath := flag.String("trade", "", "trade config JSON passed through on submit")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	flag.Parse()

	// 单次命令的 stdout 输出 JSON, 日志先写到 stderr
	logger.InitLogger(models.LogConfig{Level: "info", Output: "stderr"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Debug("未找到 .env 文件，将从系统环境变量中读取。")
	} else {
		logger.S().Info("成功从 .env 文件加载配置。")
	}

	// --- 加载 JSON 配置 ---
	cfg, err := loadConfig(*configPath, *mode)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	if *mode != "serve" && cfg.LogConfig.Output != "file" {
		cfg.LogConfig.Output = "stderr"
	}
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	selected, err := config.LoadSelectedIndicators(cfg.IndicatorsPath)
	if err != nil {
		logger.S().Fatalf("无法加载已选指标: %v", err)
	}
	resolver := valueref.NewResolver(selected, nil)

	switch *mode {
	case "compile":
		err = runCompile(*inPath, resolver, *pretty)
	case "decompile":
		err = runDecompile(*inPath, *pretty)
	case "preview":
		err = runPreview(*inPath, resolver)
	case "submit":
		err = runSubmit(cfg, *inPath, *tradePath, resolver)
	case "serve":
		err = runServe(cfg, selected)
	default:
		err = fmt.Errorf("未知的运行模式: %s", *mode)
	}
	if err != nil {
		logger.S().Fatal(err)
	}
}

// loadConfig 读取配置文件; 单次命令在没有配置文件时使用默认配置
func loadConfig(path, mode string) (*models.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && mode != "serve" && mode != "submit" {
		logger.S().Debugf("配置文件 %s 不存在, 使用默认配置", path)
		return &models.Config{LogConfig: models.LogConfig{Level: "info", Output: "stderr"}}, nil
	}
	return nil, err
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func readTree(path string) (models.Tree, error) {
	raw, err := readInput(path)
	if err != nil {
		return models.Tree{}, err
	}
	tree := models.NewTree()
	if err := json.Unmarshal(raw, &tree); err != nil {
		return models.Tree{}, fmt.Errorf("decode tree: %w", err)
	}
	if tree.Values == nil {
		tree.Values = map[string]models.ValueRef{}
	}
	for _, err := range condition.Validate(tree) {
		logger.S().Warnf("tree: %v", err)
	}
	return tree, nil
}

func reportIssues(report compiler.Report) {
	for _, is := range report.Issues {
		logger.S().Warnf("[%s] %s: %s", is.Kind, is.Path, is.Detail)
	}
}

func writeJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func runCompile(in string, resolver *valueref.Resolver, pretty bool) error {
	tree, err := readTree(in)
	if err != nil {
		return err
	}
	cfg, report := compiler.New(logger.L()).Compile(tree, resolver)
	reportIssues(report)

	var out string
	if pretty {
		out, err = preview.LogicJSONIndent(cfg)
	} else {
		out, err = preview.LogicJSON(cfg)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func runDecompile(in string, pretty bool) error {
	raw, err := readInput(in)
	if err != nil {
		return err
	}
	var cfg models.StrategyLogicConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode logic config: %w", err)
	}
	return writeJSON(compiler.Decompile(cfg), pretty)
}

func runPreview(in string, resolver *valueref.Resolver) error {
	tree, err := readTree(in)
	if err != nil {
		return err
	}
	_, report := compiler.New(logger.L()).Compile(tree, resolver)
	reportIssues(report)

	fmt.Fprintln(os.Stdout, preview.RenderSummary(preview.LogicSummary(tree, resolver)))
	if used := valueref.UsedOutputs(tree); len(used) == 0 {
		fmt.Fprintln(os.Stdout, "警告: 没有任何启用的条件引用指标")
	}
	for _, id := range valueref.UnusedValues(tree) {
		fmt.Fprintf(os.Stdout, "未使用的数值: %s\n", id)
	}
	return nil
}

func newSubmitter(cfg *models.Config, tradePath string) (*submit.StrategySubmitter, error) {
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url 未配置 (或设置 %s)", config.EnvBackendURL)
	}
	var trade json.RawMessage
	if tradePath != "" {
		raw, err := os.ReadFile(tradePath)
		if err != nil {
			return nil, err
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("trade config %s is not valid JSON", tradePath)
		}
		trade = raw
	}
	return &submit.StrategySubmitter{
		Client:      submit.NewClient(cfg.Backend, logger.L()),
		Name:        cfg.Backend.Name,
		Symbol:      cfg.Backend.Symbol,
		TradeConfig: trade,
	}, nil
}

func runSubmit(cfg *models.Config, in, tradePath string, resolver *valueref.Resolver) error {
	tree, err := readTree(in)
	if err != nil {
		return err
	}
	sub, err := newSubmitter(cfg, tradePath)
	if err != nil {
		return err
	}
	logic, report := compiler.New(logger.L()).Compile(tree, resolver)
	reportIssues(report)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	resp, err := sub.Client.Submit(ctx, submit.Request{
		Name:        sub.Name,
		Symbol:      sub.Symbol,
		LogicConfig: logic,
		TradeConfig: sub.TradeConfig,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "submitted %s\n", resp.ID)
	return nil
}

// runServe 启动实时预览服务, 直到收到退出信号
func runServe(cfg *models.Config, selected []models.SelectedIndicator) error {
	logger.S().Info("--- 启动实时预览服务 ---")

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var sub session.Submitter
	if s, err := newSubmitter(cfg, ""); err != nil {
		logger.S().Warnf("提交功能不可用: %v", err)
	} else {
		sub = s
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	manager := session.NewManager(sessionID, selected, repo, sub, logger.L())
	if found, err := manager.Hydrate(); err != nil {
		logger.S().Warnf("无法恢复草稿, 从空白策略开始: %v", err)
	} else if found {
		logger.S().Infof("已恢复会话 %s 的草稿", sessionID)
	}
	manager.Start()
	defer manager.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return liveserver.New(manager, cfg.Server, logger.L()).ListenAndServe(ctx)
}
