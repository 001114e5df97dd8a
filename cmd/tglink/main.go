package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tglink/internal/shared/config"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:          "tglink",
		Short:        "tglink - Telegram deep-link resolver and proxy settings service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "configdir", "configs", "Path to config directory")

	rootCmd.AddCommand(
		newServeCommand(),
		newResolveCommand(),
		newClassifyCommand(),
		newProxyLinkCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func iniPath() string {
	return filepath.Join(configDir, "tglink.ini")
}

// loadConfig 加载 .ini 行为配置并初始化日志系统。
// 文件不存在时使用默认配置。
func loadConfig() (*types.Config, error) {
	cfg := new(types.Config)
	path := iniPath()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadIni(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", path, err)
		}
	} else {
		config.ApplyDefaults(cfg)
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
