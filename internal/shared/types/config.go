package types

// CommonConf 包含共有的配置
type CommonConf struct {
	Mode     string `ini:"mode"`     // "local" (文件持久化) 或 "mobile" (纯内存)
	DataDir  string `ini:"data_dir"` // proxy_settings.json 和 directory.json 所在目录
	Settings string `ini:"settings"` // 代理设置文件名
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// WebConf 包含 HTTP API 的配置
type WebConf struct {
	Port     int    `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
}

// DirectoryConf configures the name -> peer id lookup chain.
type DirectoryConf struct {
	Endpoint  string `ini:"endpoint"`   // HTTP directory base URL, empty disables it
	SeedFile  string `ini:"seed_file"`  // static name table (JSON)
	Timeout   int    `ini:"timeout"`    // seconds
	RedisAddr string `ini:"redis_addr"` // empty disables the cache
	RedisDB   int    `ini:"redis_db"`
	CacheTTL  int    `ini:"cache_ttl"` // seconds
}

// PreviewConf configures the telegra.ph page-preview fetcher.
type PreviewConf struct {
	Timeout   int    `ini:"timeout"` // seconds
	UserAgent string `ini:"user_agent"`
}

// ProbeConf configures proxy availability checks.
type ProbeConf struct {
	Target      string `ini:"target"`      // host:port dialled through each proxy
	Timeout     int    `ini:"timeout"`     // seconds
	Concurrency int    `ini:"concurrency"` // parallel probes
	Interval    int    `ini:"interval"`    // seconds between rounds, 0 disables the loop
}

// Config 是项目的统一配置结构体
type Config struct {
	CommonConf    `ini:"common"`
	LogConf       `ini:"log"`
	WebConf       `ini:"web"`
	DirectoryConf `ini:"directory"`
	PreviewConf   `ini:"preview"`
	ProbeConf     `ini:"probe"`
}
