package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"tglink/internal/shared/types"
)

const (
	defaultSettingsFile   = "proxy_settings.json"
	defaultDirectoryTTL   = 600
	defaultTimeout        = 10
	defaultPreviewTimeout = 15
	defaultProbeTarget    = "149.154.167.51:443"
	defaultProbeWorkers   = 5
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// LoadIni 加载 tglink.ini 行为配置文件。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	return mapIni(cfg, iniFile)
}

// LoadIniContent 从字符串加载配置, 供移动端使用 (无文件 I/O)。
func LoadIniContent(cfg *types.Config, content string) error {
	iniFile, err := ini.Load([]byte(content))
	if err != nil {
		return fmt.Errorf("failed to parse ini content: %w", err)
	}
	return mapIni(cfg, iniFile)
}

func mapIni(cfg *types.Config, iniFile *ini.File) error {
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map ini content to config struct: %w", err)
	}
	overrideFromEnvInt(&cfg.WebConf.Port, "TGLINK_WEB_PORT")
	overrideFromEnvString(&cfg.DirectoryConf.RedisAddr, "TGLINK_REDIS_ADDR")
	overrideFromEnvString(&cfg.DirectoryConf.Endpoint, "TGLINK_DIRECTORY_ENDPOINT")
	ApplyDefaults(cfg)
	return nil
}

// ApplyDefaults fills zero values with the built-in defaults.
func ApplyDefaults(cfg *types.Config) {
	if cfg.CommonConf.Mode == "" {
		cfg.CommonConf.Mode = "local"
	}
	if cfg.CommonConf.Settings == "" {
		cfg.CommonConf.Settings = defaultSettingsFile
	}
	if cfg.DirectoryConf.Timeout <= 0 {
		cfg.DirectoryConf.Timeout = defaultTimeout
	}
	if cfg.DirectoryConf.CacheTTL <= 0 {
		cfg.DirectoryConf.CacheTTL = defaultDirectoryTTL
	}
	if cfg.PreviewConf.Timeout <= 0 {
		cfg.PreviewConf.Timeout = defaultPreviewTimeout
	}
	if cfg.PreviewConf.UserAgent == "" {
		cfg.PreviewConf.UserAgent = defaultUserAgent
	}
	if cfg.ProbeConf.Target == "" {
		cfg.ProbeConf.Target = defaultProbeTarget
	}
	if cfg.ProbeConf.Timeout <= 0 {
		cfg.ProbeConf.Timeout = defaultTimeout
	}
	if cfg.ProbeConf.Concurrency <= 0 {
		cfg.ProbeConf.Concurrency = defaultProbeWorkers
	}
}

// LoadDirectorySeed 加载 directory.json: 一个 name -> peer id 的静态表。
// 文件不存在时返回空表而不是错误。
func LoadDirectorySeed(fileName string) (map[string]types.PeerID, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.PeerID{}, nil
		}
		return nil, fmt.Errorf("failed to read directory seed file: %w", err)
	}
	return ParseDirectorySeed(data)
}

// ParseDirectorySeed decodes a seed table. Names are matched case-insensitively,
// so keys are lowered here.
func ParseDirectorySeed(data []byte) (map[string]types.PeerID, error) {
	raw := map[string]types.PeerID{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory seed: %w", err)
	}
	seed := make(map[string]types.PeerID, len(raw))
	for name, id := range raw {
		seed[strings.ToLower(name)] = id
	}
	return seed, nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
