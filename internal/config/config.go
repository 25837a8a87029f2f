package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 进程级运行配置，全部来自环境变量（可选 .env）
type Config struct {
	AppPort string

	// FeedsConfig 指向流水线 YAML 配置（分区、时区、限速等）
	FeedsConfig string

	// 以下存储/镜像均为可选，留空即不启用
	PostgresDSN string
	RedisAddr   string

	S3Bucket       string
	S3Region       string
	S3Prefix       string
	S3UsePathStyle bool

	KafkaBrokers []string
	KafkaTopic   string

	CronSpec string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		FeedsConfig:    getEnv("FEEDS_CONFIG", "config.yml"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		S3Bucket:       strings.TrimSpace(getEnv("S3_BUCKET", "")),
		S3Region:       strings.TrimSpace(getEnv("S3_REGION", "")),
		S3Prefix:       normalizePrefix(getEnv("S3_PREFIX", "")),
		S3UsePathStyle: strings.EqualFold(strings.TrimSpace(getEnv("S3_USE_PATH_STYLE", "")), "true"),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "newspulse.snapshots"),
		CronSpec:       getEnv("CRON_SPEC", "5 * * * *"),
		BasicAuthUser:  getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:  getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s cron=%s feeds=%s", cfg.AppPort, cfg.CronSpec, cfg.FeedsConfig)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList 解析逗号分隔的列表，忽略空项
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizePrefix 统一为 "a/b/" 形式，空串保持为空
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Now returns current time, 方便后续做可测试封装
func Now() time.Time {
	return time.Now()
}
