// Phase 11 - CLI 根命令
// 文件: internal/interfaces/cli/root.go
// 功能定位: longdoc 命令行入口，负责全局 Flag、配置加载、日志初始化与子命令挂载
// 核心实现:
//   - RootOptions: --config / --log-level / --output / --timeout / --server / --api-key
//   - CLIContext: 配置、日志、按需构建的本地流水线与 API 客户端
//   - segment / process 未指定 --server 时在本地运行流水线，否则调用远端 API
//   - submit / status 始终调用远端 API
//   - 输出: json 或 text（表格）
// 依赖: cobra、internal/config、logging、longdoc、pkg/client
// 被依赖: cmd/longdoc/main.go
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/longdoc"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/client"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	outputJSON = "json"
	outputText = "text"

	defaultServer = "http://localhost:8080"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
	ServerAddr   string
	APIKey       string
}

// PipelineFactory builds the local pipeline.  It runs at most once per
// invocation and only for commands that need it.
type PipelineFactory func(cfg *config.Config, log logging.Logger) (longdoc.Service, error)

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	serverAddr string
	apiKey     string
	factory    PipelineFactory

	pipelineOnce sync.Once
	pipeline     longdoc.Service
	pipelineErr  error
}

// Remote reports whether --server was given.
func (c *CLIContext) Remote() bool { return c.serverAddr != "" }

// Pipeline returns the local pipeline, building it on first use.
func (c *CLIContext) Pipeline() (longdoc.Service, error) {
	c.pipelineOnce.Do(func() {
		c.pipeline, c.pipelineErr = c.factory(c.Config, c.Logger)
	})
	return c.pipeline, c.pipelineErr
}

// Client returns an API client for --server, or the local default.
func (c *CLIContext) Client() (*client.Client, error) {
	addr := c.serverAddr
	if addr == "" {
		addr = defaultServer
	}
	return client.NewClient(addr,
		client.WithAPIKey(c.apiKey),
		client.WithTimeout(c.Timeout),
		client.WithUserAgent("longdoc-cli/"+Version))
}

// withTimeout applies --timeout to ctx.
func (c *CLIContext) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// CommandOption customises NewRootCommand.
type CommandOption func(*commandSettings)

type commandSettings struct {
	factory PipelineFactory
}

// WithPipelineFactory replaces the OpenAI-backed local pipeline.
func WithPipelineFactory(f PipelineFactory) CommandOption {
	return func(s *commandSettings) { s.factory = f }
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand(options ...CommandOption) *cobra.Command {
	settings := commandSettings{factory: defaultPipeline}
	for _, o := range options {
		o(&settings)
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "longdoc",
		Short: "Segment and analyse long patent documents",
		Long: "longdoc splits long patent Office Actions into token-bounded segments,\n" +
			"analyses each segment with an LLM and merges the results.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, settings)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./longdoc.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", outputText, "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "overall operation timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address; segment and process run locally when empty")
	pf.StringVar(&opts.APIKey, "api-key", os.Getenv("LONGDOC_API_KEY"), "API key for --server")

	cmd.AddCommand(
		newSegmentCmd(),
		newProcessCmd(),
		newSubmitCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, settings commandSettings) error {
	switch strings.ToLower(opts.OutputFormat) {
	case outputJSON, outputText:
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q; expected json or text", opts.OutputFormat))
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       strings.ToLower(opts.LogLevel),
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
		serverAddr:   opts.ServerAddr,
		apiKey:       opts.APIKey,
		factory:      settings.factory,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads --config, else the first file found on the search path,
// else environment variables and defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./longdoc.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".longdoc", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/longdoc/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

func defaultPipeline(cfg *config.Config, log logging.Logger) (longdoc.Service, error) {
	completer, err := llm.NewFromConfig(cfg.LLM, llm.Deps{Logger: log})
	if err != nil {
		return nil, err
	}
	return longdoc.NewService(completer, longdoc.SettingsFromConfig(cfg.Segmentation), longdoc.WithLogger(log))
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the CLI and prints any error to stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// texter is implemented by results with a human-readable rendering.
type texter interface {
	Text() string
}

// PrintResult outputs data in the format chosen by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == outputJSON {
		return printJSON(cmd, data)
	}
	if t, ok := data.(texter); ok {
		_, err := fmt.Fprint(cmd.OutOrStdout(), t.Text())
		return err
	}
	return printJSON(cmd, data)
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
