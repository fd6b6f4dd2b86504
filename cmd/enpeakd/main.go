package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"EnPeak/internal/config"
)

const defaultConfigPath = "configs/enpeak.yaml"

// main 是 EnPeak 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "enpeakd 运行失败: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "enpeakd",
		Short:         "EnPeak conversational practice backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (JSON 或 YAML)，默认读取 ENPEAK_CONFIG 或 "+defaultConfigPath)

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}
	root.AddCommand(newServeCommand(load), newScenariosCommand(load), newMigrateCommand(load))
	return root
}

// loadConfig 依次尝试命令行参数、ENPEAK_CONFIG 与默认路径，都不存在时仅使用环境变量。
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("ENPEAK_CONFIG")
	}
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return config.Load(defaultConfigPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FromEnv(filepath.Clean(wd))
}
