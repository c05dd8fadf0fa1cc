package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del servicio (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	HTTP   HTTPConfig
	Stock  StockConfig
	Worker WorkerConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env         string // development, staging, production
	Name        string
	LogLevel    string
	StoreDriver string // postgres | memory
}

// IsDevelopment reporta si se corre en modo desarrollo.
func (c AppConfig) IsDevelopment() bool { return c.Env == "development" }

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL   string
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	LockTimeout   time.Duration // espera máxima por un lock de fila; 0 = sin límite
	ForceIPv4     bool          // marcar en redes sin IPv6 (algunos contenedores)
	RunMigrations bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN connection string con URL encoding para caracteres especiales en la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig conexión a Redis (consecutivos, caché y cola de tareas). Addr vacío = deshabilitado.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reporta si hay Redis configurado.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host      string
	Port      int
	RateLimit int // peticiones por minuto por farmacia; 0 = sin límite
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StockConfig parámetros del motor de inventario.
type StockConfig struct {
	ExpiringDays    int           // ventana de "próximo a vencer"
	RetryAttempts   int           // reintentos ante modificación concurrente
	DefaultCurrency string        // moneda ISO 4217 de costos
	ExpiryCacheTTL  time.Duration // vigencia del reporte de vencimientos en caché
}

// WorkerConfig configuración del worker de alertas.
type WorkerConfig struct {
	Concurrency int
	AlertCron   string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, REDIS_ADDR, STOCK_EXPIRING_DAYS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cacheTTL, err := time.ParseDuration(getString(v, "STOCK_EXPIRY_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("STOCK_EXPIRY_CACHE_TTL: %w", err)
	}

	lockTimeout, err := time.ParseDuration(getString(v, "DB_LOCK_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("DB_LOCK_TIMEOUT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:         getString(v, "APP_ENV", "development"),
			Name:        getString(v, "APP_NAME", "farmacia-pos"),
			LogLevel:    getString(v, "LOG_LEVEL", "info"),
			StoreDriver: getString(v, "STORE_DRIVER", "postgres"),
		},
		DB: DBConfig{
			DatabaseURL:   getString(v, "DATABASE_URL", ""),
			Host:          getString(v, "DB_HOST", "localhost"),
			Port:          getInt(v, "DB_PORT", 5432),
			User:          getString(v, "DB_USER", "postgres"),
			Password:      getString(v, "DB_PASSWORD", ""),
			DBName:        getString(v, "DB_NAME", "farmacia_pos"),
			SSLMode:       getString(v, "DB_SSLMODE", "disable"),
			MaxConns:      getInt(v, "DB_MAX_CONNS", 25),
			MinConns:      getInt(v, "DB_MIN_CONNS", 2),
			LockTimeout:   lockTimeout,
			ForceIPv4:     getBool(v, "DB_FORCE_IPV4", false),
			RunMigrations: getBool(v, "RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "farmacia-pos"),
		},
		HTTP: HTTPConfig{
			Host:      getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:      getInt(v, "HTTP_PORT", 8080),
			RateLimit: getInt(v, "HTTP_RATE_LIMIT", 600),
		},
		Stock: StockConfig{
			ExpiringDays:    getInt(v, "STOCK_EXPIRING_DAYS", 30),
			RetryAttempts:   getInt(v, "STOCK_RETRY_ATTEMPTS", 3),
			DefaultCurrency: strings.ToUpper(getString(v, "STOCK_DEFAULT_CURRENCY", "COP")),
			ExpiryCacheTTL:  cacheTTL,
		},
		Worker: WorkerConfig{
			Concurrency: getInt(v, "WORKER_CONCURRENCY", 5),
			AlertCron:   getString(v, "WORKER_ALERT_CRON", "@daily"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER inválido: %q (postgres|memory)", c.App.StoreDriver)
	}
	if c.DB.MinConns < 0 || (c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns) {
		return fmt.Errorf("DB_MIN_CONNS debe estar entre 0 y DB_MAX_CONNS")
	}
	if c.DB.LockTimeout < 0 {
		return fmt.Errorf("DB_LOCK_TIMEOUT debe ser >= 0")
	}
	if c.Stock.ExpiringDays <= 0 {
		return fmt.Errorf("STOCK_EXPIRING_DAYS debe ser > 0")
	}
	if c.Stock.RetryAttempts < 0 {
		return fmt.Errorf("STOCK_RETRY_ATTEMPTS debe ser >= 0")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT debe ser >= 0")
	}
	if len(c.Stock.DefaultCurrency) != 3 {
		return fmt.Errorf("STOCK_DEFAULT_CURRENCY inválida: %q", c.Stock.DefaultCurrency)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
