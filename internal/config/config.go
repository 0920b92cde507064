package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"invoice-recon/internal/reconcile/model"
)

type Config struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
	LogLevel     string   `yaml:"log_level"`
	MaxUploadMB  int      `yaml:"max_upload_mb"`
	LogFile      string   `yaml:"log_file"`
	DBPath       string   `yaml:"db_path"`
	Pprof        bool     `yaml:"pprof"`

	Match MatchConfig `yaml:"match"`
}

// MatchConfig: дефолтные допуски сверки, если вызывающий их не передал.
type MatchConfig struct {
	ToleranceAmount         float64 `yaml:"tolerance_amount"`
	TolerancePercentage     float64 `yaml:"tolerance_percentage"`
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold"`
}

// Load: переменные окружения, поверх них YAML из CONFIG_FILE (если задан).
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile: как Load, но путь к YAML задан явно (флаг --config у CLI).
func LoadFile(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.overlayFile(path); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv() Config {
	port, _ := strconv.Atoi(getenv("PORT", "8082"))
	mb, _ := strconv.Atoi(getenv("MAX_UPLOAD_MB", "256"))
	origins := strings.Split(getenv("ALLOW_ORIGINS", "*"), ",")
	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         port,
		AllowOrigins: origins,
		LogLevel:     getenv("LOG_LEVEL", "info"),
		MaxUploadMB:  mb,
		LogFile:      getenv("LOG_FILE", "logs/invoice-recon.log"),
		DBPath:       getenv("DB_PATH", "invoice-recon.db"),
		Pprof:        getenv("PPROF", "") == "1",
		Match: MatchConfig{
			ToleranceAmount:         getfloat("TOLERANCE_AMOUNT", 50),
			TolerancePercentage:     getfloat("TOLERANCE_PERCENTAGE", 5),
			NameSimilarityThreshold: getfloat("NAME_SIMILARITY_THRESHOLD", 0.8),
		},
	}
}

// overlayFile перекрывает только те поля, что есть в файле.
// ${VAR} внутри файла раскрываются из окружения.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c)
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// MatchDefaults: дефолтные опции движка (категория задаётся на запрос).
func (c Config) MatchDefaults() model.MatchOptions {
	return model.MatchOptions{
		ToleranceAmount:         c.Match.ToleranceAmount,
		TolerancePercentage:     c.Match.TolerancePercentage,
		NameSimilarityThreshold: c.Match.NameSimilarityThreshold,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(k, ""), 64)
	if err != nil {
		return def
	}
	return f
}
