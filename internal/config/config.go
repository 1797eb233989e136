// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// EngineConfig 排班引擎配置
type EngineConfig struct {
	TimeBudget            time.Duration `yaml:"time_budget"`              // 求解时间预算
	MaxIterations         int           `yaml:"max_iterations"`           // 最大迭代次数
	OptimizationLevel     int           `yaml:"optimization_level"`       // 1=快速, 2=平衡, 3=最优
	ParallelWorkers       int           `yaml:"parallel_workers"`         // 并行优化工作数
	MaxHorizonDays        int           `yaml:"max_horizon_days"`         // 排班区间上限（天）
	DefaultMinRestHours   float64       `yaml:"default_min_rest_hours"`   // 默认最小休息时间
	DefaultMaxWeeklyHours float64       `yaml:"default_max_weekly_hours"` // 默认周工时上限
	StandardWeeklyHours   float64       `yaml:"standard_weekly_hours"`    // 标准周工时
	HardOverrideThreshold int           `yaml:"hard_override_threshold"`  // 软规则升级为硬约束的优先级阈值
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置，.env 文件存在时优先读入
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "banbiao"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7020),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "banbiao"),
			User:            getEnv("DB_USER", "banbiao"),
			Password:        getEnv("DB_PASSWORD", "banbiao123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Timeout:   getEnvDuration("API_TIMEOUT", 30*time.Second),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: []string{"*"},
			},
		},
		Engine: EngineConfig{
			TimeBudget:            getEnvDuration("ENGINE_TIME_BUDGET", 30*time.Second),
			MaxIterations:         getEnvInt("ENGINE_MAX_ITERATIONS", 1000),
			OptimizationLevel:     getEnvInt("ENGINE_OPTIMIZATION_LEVEL", 2),
			ParallelWorkers:       getEnvInt("ENGINE_PARALLEL_WORKERS", 4),
			MaxHorizonDays:        getEnvInt("ENGINE_MAX_HORIZON_DAYS", 92),
			DefaultMinRestHours:   getEnvFloat("ENGINE_DEFAULT_MIN_REST_HOURS", 11),
			DefaultMaxWeeklyHours: getEnvFloat("ENGINE_DEFAULT_MAX_WEEKLY_HOURS", 40),
			StandardWeeklyHours:   getEnvFloat("ENGINE_STANDARD_WEEKLY_HOURS", 40),
			HardOverrideThreshold: getEnvInt("ENGINE_HARD_OVERRIDE_THRESHOLD", 8),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// ConstraintSettings 转换为约束求解设置
func (c *EngineConfig) ConstraintSettings() constraint.Settings {
	return constraint.Settings{
		DefaultMaxWeeklyHours: c.DefaultMaxWeeklyHours,
		DefaultMinRestHours:   c.DefaultMinRestHours,
		HardOverrideThreshold: c.HardOverrideThreshold,
		StandardWeeklyHours:   c.StandardWeeklyHours,
	}
}
