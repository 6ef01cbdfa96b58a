// =============================================================================
// CoordFlow 主入口
// =============================================================================
// 层级任务协调引擎的命令行入口：单回合查询、会话记忆摘要、版本信息
//
// 使用方法:
//
//	coordflow query --thread t1 "your question"    # 执行一个协调回合
//	coordflow query --stream "your question"       # 流式输出节点事件
//	coordflow summary --thread t1                  # 查看线程记忆摘要
//	coordflow version                              # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/coordflow/agent"
	"github.com/BaSui01/coordflow/config"
	"github.com/BaSui01/coordflow/graph"
	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/internal/telemetry"
	"github.com/BaSui01/coordflow/llm"
	"github.com/BaSui01/coordflow/rag"
	"github.com/BaSui01/coordflow/session"
	"github.com/BaSui01/coordflow/supervisor"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "query":
		runQuery(os.Args[2:])
	case "summary":
		runSummary(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 💬 query 命令
// =============================================================================

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	threadID := fs.String("thread", "default", "Session thread id")
	stream := fs.Bool("stream", false, "Stream node events")
	fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "query text is required")
		os.Exit(1)
	}

	cfg, logger, otelProviders := mustBootstrap(*configPath)
	defer logger.Sync()
	defer otelProviders.Shutdown(context.Background())

	exec, store := mustBuildExecutor(cfg, logger)
	defer store.Close()

	ctx := context.Background()

	if *stream {
		_, events, err := exec.ProcessQuery(ctx, query, *threadID, true)
		if err != nil {
			logger.Fatal("query failed", zap.Error(err))
		}
		for ev := range events {
			switch ev.Type {
			case graph.EventNodeStart, graph.EventNodeComplete:
				fmt.Printf("[%s] %s\n", ev.Type, ev.Node)
			case graph.EventNodeError:
				fmt.Fprintf(os.Stderr, "[%s] %s: %v\n", ev.Type, ev.Node, ev.Error)
				os.Exit(1)
			case graph.EventDone:
				printReply(ev.State.Messages[len(ev.State.Messages)-1].Content)
			}
		}
		return
	}

	state, _, err := exec.ProcessQuery(ctx, query, *threadID, false)
	if err != nil {
		logger.Fatal("query failed", zap.Error(err))
	}
	printReply(state.Messages[len(state.Messages)-1].Content)
}

func printReply(content string) {
	fmt.Println(content)
}

// =============================================================================
// 🧠 summary 命令
// =============================================================================

func runSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	threadID := fs.String("thread", "default", "Session thread id")
	fs.Parse(args)

	cfg, logger, otelProviders := mustBootstrap(*configPath)
	defer logger.Sync()
	defer otelProviders.Shutdown(context.Background())

	exec, store := mustBuildExecutor(cfg, logger)
	defer store.Close()

	summary := exec.MemorySummary(context.Background(), *threadID)
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode summary", zap.Error(err))
	}
	fmt.Println(string(out))
}

// =============================================================================
// 🔧 初始化
// =============================================================================

// mustBootstrap 加载并验证配置，初始化日志与遥测
func mustBootstrap(configPath string) (*config.Config, *zap.Logger, *telemetry.Providers) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	logger.Debug("Starting CoordFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	return cfg, logger, otelProviders
}

// mustBuildExecutor 按配置组装执行器：provider → 监督者/工作者 → 状态机 → 存储
func mustBuildExecutor(cfg *config.Config, logger *zap.Logger) (*graph.Executor, session.Store) {
	var collector *metrics.Collector
	if cfg.Coordination.MetricsEnabled {
		collector = metrics.NewCollector(cfg.Coordination.MetricsNamespace, logger)
	}

	provider := buildProvider(cfg.LLM, collector, logger)

	var monitorOpts []supervisor.MonitorOption
	if cfg.Coordination.DelegatedSatisfies {
		monitorOpts = append(monitorOpts, supervisor.WithDelegatedSatisfies())
	}
	if cfg.Coordination.Parallel {
		monitorOpts = append(monitorOpts, supervisor.WithParallel())
	}
	sup := supervisor.New(provider, cfg.LLM.Model, logger, monitorOpts...)

	retriever := buildRetriever(cfg.Coordination, logger)
	var workerOpts []agent.WorkerOption
	if cfg.Coordination.ContextTopK > 0 {
		workerOpts = append(workerOpts, agent.WithContextTopK(cfg.Coordination.ContextTopK))
	}

	registry := agent.NewRegistry()
	registry.Register(agent.NewGeneralWorker(provider, cfg.LLM.Model, retriever, logger, workerOpts...))
	registry.Register(agent.NewAnalystWorker(provider, cfg.LLM.Model, retriever, logger, workerOpts...))

	store, err := session.Open(session.StoreConfig{
		Backend: session.Backend(cfg.Session.Backend),
		Redis: session.RedisConfig{
			Addr:      cfg.Session.Redis.Addr,
			Password:  cfg.Session.Redis.Password,
			DB:        cfg.Session.Redis.DB,
			KeyPrefix: cfg.Session.Redis.KeyPrefix,
			TTL:       cfg.Session.Redis.TTL,
		},
		Database: session.DatabaseConfig{DSN: cfg.Session.Database.DSN},
	}, logger)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}

	g := graph.New(sup, registry, logger)
	exec := graph.NewExecutor(g, store, logger,
		graph.WithMetrics(collector, cfg.Session.Backend),
	)
	return exec, store
}

// buildRetriever 按配置索引上下文文档，构建关键词检索器
// 未配置任何文档时返回 nil，工作者退化为无检索模式。
func buildRetriever(cfg config.CoordinationConfig, logger *zap.Logger) rag.Retriever {
	if len(cfg.ContextDocs) == 0 {
		return nil
	}
	kr := rag.NewKeywordRetriever(logger)
	for _, path := range cfg.ContextDocs {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("failed to read context doc",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		kr.AddDocument(string(data))
	}
	return kr
}

// buildProvider 构建 LLM provider；限流与超时统一由节流装饰器承担
func buildProvider(cfg config.LLMConfig, collector *metrics.Collector, logger *zap.Logger) llm.Provider {
	var inner llm.Provider
	switch cfg.Provider {
	case "echo", "":
		inner = llm.NewEchoProvider()
	default:
		fmt.Fprintf(os.Stderr, "Unknown llm provider: %s\n", cfg.Provider)
		os.Exit(1)
	}

	opts := []llm.ThrottleOption{llm.WithTimeout(cfg.Timeout)}
	if collector != nil {
		opts = append(opts, llm.WithObserver(func(provider, status string) {
			collector.RecordLLMRequest(provider, status, 0)
		}))
	}
	return llm.NewThrottledProvider(inner, cfg.RequestsPerSecond, logger, opts...)
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("CoordFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`CoordFlow - Hierarchical Task Coordination Engine

Usage:
  coordflow <command> [options]

Commands:
  query     Run one coordination turn for a query
  summary   Show the memory summary of a session thread
  version   Show version information
  help      Show this help message

Options for 'query':
  --config <path>   Path to configuration file (YAML)
  --thread <id>     Session thread id (default "default")
  --stream          Stream node events while the turn runs

Options for 'summary':
  --config <path>   Path to configuration file (YAML)
  --thread <id>     Session thread id (default "default")

Examples:
  coordflow query --thread t1 "Show me the total revenue trend for 2012"
  coordflow query --stream "What is our best selling product?"
  coordflow summary --thread t1
  coordflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
