package config

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBURL             string `mapstructure:"db_url"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// JWT 配置
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTAlgorithm  string        `mapstructure:"jwt_algorithm"`
	JWTAccessTTL  time.Duration `mapstructure:"jwt_access_ttl"`
	JWTRefreshTTL time.Duration `mapstructure:"jwt_refresh_ttl"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheUserTTL       time.Duration `mapstructure:"cache_user_ttl"`

	// 媒体存储配置
	MediaBackend    string        `mapstructure:"media_backend"`
	MediaRootFolder string        `mapstructure:"media_root_folder"`
	MediaTimeout    time.Duration `mapstructure:"media_timeout"`
	MediaRetries    int           `mapstructure:"media_retries"`
	MediaWorkers    int           `mapstructure:"media_workers"`
	MediaQueueSize  int           `mapstructure:"media_queue_size"`

	// Cloudinary
	CloudinaryName      string `mapstructure:"cld_name"`
	CloudinaryAPIKey    string `mapstructure:"cld_api_key"`
	CloudinaryAPISecret string `mapstructure:"cld_api_secret"`

	// MinIO
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`

	// 本地存储
	LocalStoragePath string `mapstructure:"local_storage_path"`

	// WebDAV
	WebDAVURL      string `mapstructure:"webdav_url"`
	WebDAVUsername string `mapstructure:"webdav_username"`
	WebDAVPassword string `mapstructure:"webdav_password"`
	WebDAVRootPath string `mapstructure:"webdav_root_path"`

	// 限流配置
	RateLimitApiRPS         float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst       int           `mapstructure:"rate_limit_api_burst"`
	RateLimitAuthRPS        float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst      int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitCommentTimes   int           `mapstructure:"rate_limit_comment_times"`
	RateLimitCommentWindow  time.Duration `mapstructure:"rate_limit_comment_window"`
	RateLimitExpireTime     time.Duration `mapstructure:"rate_limit_expire_time"`
	ConcurrencyLimitRequest int           `mapstructure:"concurrency_limit_requests"`

	// 上传配置
	UploadMaxSizeMB     int           `mapstructure:"upload_max_size_mb"`
	UploadConcurrency   int           `mapstructure:"upload_concurrency"`
	UploadQueueTimeout  time.Duration `mapstructure:"upload_queue_timeout"`

	// 头像
	GravatarEnabled bool          `mapstructure:"gravatar_enabled"`
	GravatarTimeout time.Duration `mapstructure:"gravatar_timeout"`

	// 日志
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		configFile = ".env"
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: %s not found, using defaults and environment variables\n", configFile)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", configFile)
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	// MediaWorkers: <=0 使用默认值 (max(2, CPU核心数))
	if globalConfig.MediaWorkers <= 0 {
		globalConfig.MediaWorkers = getCpus()
	}
}

// setDefaults 设置默认值
func setDefaults() {
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8000)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "60s")
	viper.SetDefault("server_idle_timeout", "120s")

	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_url", "")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "photogram")
	viper.SetDefault("db_file_path", "")
	viper.SetDefault("db_max_open_conns", 100)
	viper.SetDefault("db_max_idle_conns", 25)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_algorithm", "HS256")
	viper.SetDefault("jwt_access_ttl", "15m")
	viper.SetDefault("jwt_refresh_ttl", "168h")

	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_user_ttl", "5m")

	viper.SetDefault("media_backend", "local")
	viper.SetDefault("media_root_folder", AppName)
	viper.SetDefault("media_timeout", "30s")
	viper.SetDefault("media_retries", 2)
	viper.SetDefault("media_workers", 0)
	viper.SetDefault("media_queue_size", 256)

	viper.SetDefault("cld_name", "")
	viper.SetDefault("cld_api_key", "")
	viper.SetDefault("cld_api_secret", "")

	viper.SetDefault("minio_endpoint", "localhost:9000")
	viper.SetDefault("minio_access_key", "")
	viper.SetDefault("minio_secret_key", "")
	viper.SetDefault("minio_bucket", "photogram")
	viper.SetDefault("minio_use_ssl", false)

	viper.SetDefault("local_storage_path", "./data/media")

	viper.SetDefault("webdav_url", "")
	viper.SetDefault("webdav_username", "")
	viper.SetDefault("webdav_password", "")
	viper.SetDefault("webdav_root_path", "/photogram")

	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_auth_rps", 0.5)
	viper.SetDefault("rate_limit_auth_burst", 5)
	viper.SetDefault("rate_limit_comment_times", 20)
	viper.SetDefault("rate_limit_comment_window", "1s")
	viper.SetDefault("rate_limit_expire_time", "10m")
	viper.SetDefault("concurrency_limit_requests", 100)
	viper.SetDefault("upload_concurrency", 10)
	viper.SetDefault("upload_queue_timeout", "10s")

	viper.SetDefault("upload_max_size_mb", 20)

	viper.SetDefault("gravatar_enabled", true)
	viper.SetDefault("gravatar_timeout", "3s")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于生成本地存储对象的访问链接
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return c.ServerDomain
	}
	host := c.ServerHost
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// Validate 检查启动必需的配置项
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters long, got %d", len(c.JWTSecret))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt_algorithm: %s", c.JWTAlgorithm)
	}
	if c.MediaBackend == "cloudinary" && (c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "") {
		return fmt.Errorf("cloudinary backend requires cld_name, cld_api_key and cld_api_secret")
	}
	return nil
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
