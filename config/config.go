package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Конфигурация для подключения к базе данных хранилища (OLAP)
	WarehouseConfig DatabaseConfig `json:"warehouse_config"`

	// Интервал запуска ETL
	RunInterval time.Duration `json:"run_interval"`

	// Таймаут HTTP-запросов к внешним API
	RequestTimeout time.Duration `json:"request_timeout"`

	// Каталог для сырых снимков и истории продаж
	DataDir string `json:"data_dir"`

	// Строгий режим загрузки: ошибка разрешения измерения одной записи
	// прерывает всю партию, вместо пропуска этой записи
	StrictLoad bool `json:"strict_load"`

	// Адрес HTTP-сервера мониторинга
	MonitorAddr string `json:"monitor_addr"`

	// Включение/отключение детального логирования
	EnableDetailedLogging bool `json:"enable_detailed_logging"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// Значения конфигурации по умолчанию
var (
	DefaultWarehouseConfig = DatabaseConfig{
		Driver:   "mysql",
		Host:     "localhost",
		Port:     3306,
		User:     "etl",
		Password: "etl",
		DBName:   "store_analytics",
	}

	DefaultETLConfig = ETLConfig{
		WarehouseConfig:       DefaultWarehouseConfig,
		RunInterval:           1 * time.Hour,
		RequestTimeout:        5 * time.Second,
		DataDir:               "data",
		StrictLoad:            false,
		MonitorAddr:           ":8090",
		EnableDetailedLogging: true,
	}
)

// GetConfig возвращает конфигурацию ETL, собранную из переменных окружения.
// Отсутствующие переменные заменяются значениями по умолчанию с предупреждением,
// запуск из-за них не прерывается.
func GetConfig() ETLConfig {
	// Загружаем .env, если он есть рядом с бинарником
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения и значения по умолчанию")
	}

	config := DefaultETLConfig

	config.WarehouseConfig.Host = envString("DB_HOST", DefaultWarehouseConfig.Host)
	config.WarehouseConfig.Port = envInt("DB_PORT", DefaultWarehouseConfig.Port)
	config.WarehouseConfig.User = envString("DB_USER", DefaultWarehouseConfig.User)
	config.WarehouseConfig.Password = envString("DB_PASSWORD", DefaultWarehouseConfig.Password)
	config.WarehouseConfig.DBName = envString("DB_NAME", DefaultWarehouseConfig.DBName)

	config.RunInterval = envDuration("ETL_RUN_INTERVAL", DefaultETLConfig.RunInterval)
	config.RequestTimeout = envDuration("ETL_REQUEST_TIMEOUT", DefaultETLConfig.RequestTimeout)
	config.DataDir = envString("ETL_DATA_DIR", DefaultETLConfig.DataDir)
	config.StrictLoad = envBool("ETL_STRICT_LOAD", DefaultETLConfig.StrictLoad)
	config.MonitorAddr = envString("ETL_MONITOR_ADDR", DefaultETLConfig.MonitorAddr)
	config.EnableDetailedLogging = envBool("ETL_VERBOSE", DefaultETLConfig.EnableDetailedLogging)

	return config
}

// envString читает строковую переменную окружения или возвращает значение по умолчанию
func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Printf("Предупреждение: переменная %s не задана, используется значение по умолчанию %q", key, fallback)
	return fallback
}

// envInt читает целочисленную переменную окружения
func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Предупреждение: переменная %s не задана, используется значение по умолчанию %d", key, fallback)
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Предупреждение: некорректное значение %s=%q, используется значение по умолчанию %d", key, value, fallback)
		return fallback
	}
	return parsed
}

// envBool читает булеву переменную окружения
func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Предупреждение: некорректное значение %s=%q, используется значение по умолчанию %t", key, value, fallback)
		return fallback
	}
	return parsed
}

// envDuration читает переменную окружения с длительностью (например "30m", "1h")
func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Предупреждение: некорректное значение %s=%q, используется значение по умолчанию %v", key, value, fallback)
		return fallback
	}
	return parsed
}
