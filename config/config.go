package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		RequestTimeout  time.Duration // для всех маршрутов, кроме запуска синхронизации
		RateLimit       float64       // запросов в секунду на весь API, 0 без ограничения
		RateBurst       int
		SwaggerEnabled  bool
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Migrations struct {
		Enabled bool
		Dir     string
	}

	Redis struct {
		Enabled  bool
		Host     string
		Port     int
		Password string
		DB       int
		PoolSize int
	}

	Kafka struct {
		Enabled       bool
		Brokers       []string
		GroupID       string
		ClientID      string
		EventsTopic   string
		CommandsTopic string
		PollTimeout   time.Duration
	}

	Metrics struct {
		Enabled bool
		Port    int // порт метрик воркера, API отдает /metrics на основном порту
	}

	Security struct {
		JWTSecret        string
		JWTExpiration    time.Duration
		JWTIssuer        string
		CORSAllowOrigins []string
	}

	Keycloak KeycloakConfig

	Marketplace struct {
		BaseURL        string
		Integration    string
		Timeout        time.Duration
		MaxAttempts    int
		InitialBackoff time.Duration
		MaxBackoff     time.Duration
		RateLimit      float64
		RateBurst      int
	}

	Sync struct {
		PageSize    int
		Concurrency int
		LimitPages  int
		OrderWindow time.Duration
		RunTimeout  time.Duration
		LockBackend string // memory или redis
		LockTTL     time.Duration
		// ScheduleInterval период плановой синхронизации в воркере, 0 отключает планировщик
		ScheduleInterval time.Duration
		Resources        []string
	}

	Cache struct {
		ReasonsTTL time.Duration
	}
}

// DSN возвращает параметры подключения к PostgreSQL
func (c *Config) DSN() utils.DSNParams {
	return utils.DSNParams{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		DBName:   c.Postgres.DBName,
		SSLMode:  c.Postgres.SSLMode,
		PoolSize: c.Postgres.PoolSize,
		Timeout:  c.Postgres.Timeout,
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Sync.LockBackend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("sync.lockBackend=redis requires redis.enabled")
		}
		// аренда блокировки должна пережить самый долгий запуск
		if c.Sync.RunTimeout <= 0 {
			return fmt.Errorf("sync.lockBackend=redis requires a positive sync.runTimeout")
		}
		if c.Sync.LockTTL <= c.Sync.RunTimeout {
			return fmt.Errorf("sync.lockTTL (%s) must be greater than sync.runTimeout (%s)", c.Sync.LockTTL, c.Sync.RunTimeout)
		}
	default:
		return fmt.Errorf("unknown sync.lockBackend %q", c.Sync.LockBackend)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is empty")
	}
	for _, r := range c.Sync.Resources {
		switch r {
		case "products", "orders", "claims":
		default:
			return fmt.Errorf("unknown sync resource %q", r)
		}
	}
	return nil
}

// Load загружает конфигурацию из .env, файла и переменных окружения.
// configPath имя файла без расширения для поиска в стандартных каталогах либо путь к .yaml
func Load(configPath string) (*Config, error) {
	// .env нужен только при локальном запуске
	_ = godotenv.Load()

	var cfg Config

	viper.Reset()
	if strings.HasSuffix(configPath, ".yaml") || strings.HasSuffix(configPath, ".yml") {
		viper.SetConfigFile(configPath)
	} else {
		configFile := "config"
		if configPath != "" {
			configFile = configPath
		}
		viper.SetConfigName(configFile)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("../config")
		viper.AddConfigPath("../../config")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// без файла работаем на переменных окружения
	}

	setDefaults()
	bindEnvVariables()

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// списки из переменных окружения приходят одной строкой через запятую
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Security.CORSAllowOrigins = splitList(cfg.Security.CORSAllowOrigins)
	cfg.Sync.Resources = splitList(cfg.Sync.Resources)

	cfg.ENV = viper.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setDefaults устанавливает значения по умолчанию
func setDefaults() {
	// Основные настройки
	viper.SetDefault("appName", "gomarket-sync")
	viper.SetDefault("version", "1.0.0")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("env", "development")

	// Настройки сервера
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "15m")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.requestTimeout", "30s")
	viper.SetDefault("server.rateLimit", 100)
	viper.SetDefault("server.rateBurst", 50)
	viper.SetDefault("server.swaggerEnabled", false)

	// Настройки Postgres
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.dbname", "marketplace")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.timeout", "5s")
	viper.SetDefault("postgres.poolSize", 10)

	viper.SetDefault("migrations.enabled", true)
	viper.SetDefault("migrations.dir", "migrations")

	// Настройки Redis
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolSize", 10)

	// Настройки Kafka
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.groupID", "gomarket-sync-worker")
	viper.SetDefault("kafka.clientID", "gomarket-sync")
	viper.SetDefault("kafka.eventsTopic", "marketplace.sync.events")
	viper.SetDefault("kafka.commandsTopic", "marketplace.sync.commands")
	viper.SetDefault("kafka.pollTimeout", "100ms")

	// Настройки метрик
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9102)

	// Настройки безопасности
	viper.SetDefault("security.jwtSecret", "")
	viper.SetDefault("security.jwtExpiration", "60m")
	viper.SetDefault("security.jwtIssuer", "gomarket-sync")
	viper.SetDefault("security.corsAllowOrigins", []string{"*"})

	// Настройки Keycloak
	viper.SetDefault("keycloak.enabled", false)
	viper.SetDefault("keycloak.realm", "gomarket")
	viper.SetDefault("keycloak.clientID", "gomarket-sync")

	// Настройки маркетплейса
	viper.SetDefault("marketplace.baseURL", "https://api.trendyol.com/sapigw")
	viper.SetDefault("marketplace.integration", "SelfIntegration")
	viper.SetDefault("marketplace.timeout", "30s")
	viper.SetDefault("marketplace.maxAttempts", 3)
	viper.SetDefault("marketplace.initialBackoff", "500ms")
	viper.SetDefault("marketplace.maxBackoff", "5s")
	viper.SetDefault("marketplace.rateLimit", 10)
	viper.SetDefault("marketplace.rateBurst", 5)

	// Настройки синхронизации
	viper.SetDefault("sync.pageSize", 50)
	viper.SetDefault("sync.concurrency", 4)
	viper.SetDefault("sync.limitPages", 0)
	viper.SetDefault("sync.orderWindow", "336h")
	viper.SetDefault("sync.runTimeout", "10m")
	viper.SetDefault("sync.lockBackend", "redis")
	viper.SetDefault("sync.lockTTL", "30m")
	viper.SetDefault("sync.scheduleInterval", "0s")
	viper.SetDefault("sync.resources", []string{"products", "orders", "claims"})

	viper.SetDefault("cache.reasonsTTL", "1h")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables() {
	// Основные настройки
	viper.BindEnv("appName", "APP_NAME")
	viper.BindEnv("version", "APP_VERSION")
	viper.BindEnv("logLevel", "LOG_LEVEL")
	viper.BindEnv("env", "APP_ENV")

	// Настройки сервера
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.readTimeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.writeTimeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.BindEnv("server.requestTimeout", "SERVER_REQUEST_TIMEOUT")
	viper.BindEnv("server.rateLimit", "SERVER_RATE_LIMIT")
	viper.BindEnv("server.rateBurst", "SERVER_RATE_BURST")
	viper.BindEnv("server.swaggerEnabled", "SERVER_SWAGGER_ENABLED")

	// Настройки Postgres
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.dbname", "POSTGRES_DBNAME")
	viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")
	viper.BindEnv("postgres.timeout", "POSTGRES_TIMEOUT")
	viper.BindEnv("postgres.poolSize", "POSTGRES_POOL_SIZE")

	viper.BindEnv("migrations.enabled", "MIGRATIONS_ENABLED")
	viper.BindEnv("migrations.dir", "MIGRATIONS_DIR")

	// Настройки Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.poolSize", "REDIS_POOL_SIZE")

	// Настройки Kafka
	viper.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.groupID", "KAFKA_GROUP_ID")
	viper.BindEnv("kafka.clientID", "KAFKA_CLIENT_ID")
	viper.BindEnv("kafka.eventsTopic", "KAFKA_EVENTS_TOPIC")
	viper.BindEnv("kafka.commandsTopic", "KAFKA_COMMANDS_TOPIC")
	viper.BindEnv("kafka.pollTimeout", "KAFKA_POLL_TIMEOUT")

	// Настройки метрик
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("metrics.port", "METRICS_PORT")

	// Настройки безопасности
	viper.BindEnv("security.jwtSecret", "JWT_SECRET")
	viper.BindEnv("security.jwtExpiration", "JWT_EXPIRATION")
	viper.BindEnv("security.jwtIssuer", "JWT_ISSUER")
	viper.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")

	// Настройки Keycloak
	viper.BindEnv("keycloak.enabled", "KEYCLOAK_ENABLED")
	viper.BindEnv("keycloak.serverURL", "KEYCLOAK_SERVER_URL")
	viper.BindEnv("keycloak.realm", "KEYCLOAK_REALM")
	viper.BindEnv("keycloak.clientID", "KEYCLOAK_CLIENT_ID")
	viper.BindEnv("keycloak.clientSecret", "KEYCLOAK_CLIENT_SECRET")
	viper.BindEnv("keycloak.redirectURL", "KEYCLOAK_REDIRECT_URL")

	// Настройки маркетплейса
	viper.BindEnv("marketplace.baseURL", "MARKETPLACE_BASE_URL")
	viper.BindEnv("marketplace.integration", "MARKETPLACE_INTEGRATION")
	viper.BindEnv("marketplace.timeout", "MARKETPLACE_TIMEOUT")
	viper.BindEnv("marketplace.maxAttempts", "MARKETPLACE_MAX_ATTEMPTS")
	viper.BindEnv("marketplace.initialBackoff", "MARKETPLACE_INITIAL_BACKOFF")
	viper.BindEnv("marketplace.maxBackoff", "MARKETPLACE_MAX_BACKOFF")
	viper.BindEnv("marketplace.rateLimit", "MARKETPLACE_RATE_LIMIT")
	viper.BindEnv("marketplace.rateBurst", "MARKETPLACE_RATE_BURST")

	// Настройки синхронизации
	viper.BindEnv("sync.pageSize", "SYNC_PAGE_SIZE")
	viper.BindEnv("sync.concurrency", "SYNC_CONCURRENCY")
	viper.BindEnv("sync.limitPages", "SYNC_LIMIT_PAGES")
	viper.BindEnv("sync.orderWindow", "SYNC_ORDER_WINDOW")
	viper.BindEnv("sync.runTimeout", "SYNC_RUN_TIMEOUT")
	viper.BindEnv("sync.lockBackend", "SYNC_LOCK_BACKEND")
	viper.BindEnv("sync.lockTTL", "SYNC_LOCK_TTL")
	viper.BindEnv("sync.scheduleInterval", "SYNC_SCHEDULE_INTERVAL")
	viper.BindEnv("sync.resources", "SYNC_RESOURCES")

	viper.BindEnv("cache.reasonsTTL", "CACHE_REASONS_TTL")
}
