package cfg

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"

	DefaultEnv = EnvDev
)

type Environment string

func (e Environment) Validate() error {
	if e != EnvDev && e != EnvProd {
		return errors.New("environment must be either dev or prod")
	}

	return nil
}

type Config struct {
	Environment Environment `mapstructure:"environment" yaml:"environment"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogOutput string `mapstructure:"log_output" yaml:"log_output"`

	DataDir          string        `mapstructure:"data_dir" yaml:"data_dir"`
	PageSize         int           `mapstructure:"page_size" yaml:"page_size"`
	PoolPages        int           `mapstructure:"pool_pages" yaml:"pool_pages"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	LockPoolCapacity int           `mapstructure:"lock_pool_capacity" yaml:"lock_pool_capacity"`
	TxnLogFile       string        `mapstructure:"txn_log_file" yaml:"txn_log_file"`
}

func Default() Config {
	return Config{
		Environment:      DefaultEnv,
		LogLevel:         "info",
		LogFormat:        "console",
		LogOutput:        "stderr",
		DataDir:          "./data",
		PageSize:         4096,
		PoolPages:        50,
		LockTimeout:      5 * time.Second,
		LockPoolCapacity: 0,
		TxnLogFile:       "heapdb.log",
	}
}

// LoadConfig reads the file at path, if any, then applies HEAPDB_*
// environment overrides on top of the defaults. The file may be yaml or a
// .env file.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFs(afero.NewOsFs(), path)
}

func LoadConfigFs(fs afero.Fs, path string) (Config, error) {
	v := viper.New()
	v.SetFs(fs)

	def := Default()
	v.SetDefault("environment", def.Environment)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("log_output", def.LogOutput)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("pool_pages", def.PoolPages)
	v.SetDefault("lock_timeout", def.LockTimeout)
	v.SetDefault("lock_pool_capacity", def.LockPoolCapacity)
	v.SetDefault("txn_log_file", def.TxnLogFile)

	v.SetEnvPrefix("HEAPDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if ext := filepath.Ext(path); ext == "" || ext == ".env" {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "viper unmarshaling config")
	}
	cfg.Environment = Environment(strings.ToLower(string(cfg.Environment)))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Environment.Validate(); err != nil {
		return errors.Wrap(err, "environment validation")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level: %q", c.LogLevel)
	}

	if c.PageSize <= 0 {
		return errors.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.PoolPages <= 0 {
		return errors.Errorf("pool_pages must be positive, got %d", c.PoolPages)
	}
	if c.LockTimeout <= 0 {
		return errors.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.LockPoolCapacity < 0 {
		return errors.Errorf("lock_pool_capacity must not be negative, got %d", c.LockPoolCapacity)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	return nil
}

// TxnLogPath resolves the transaction log location inside the data directory
// unless an absolute path was configured.
func (c Config) TxnLogPath() string {
	if filepath.IsAbs(c.TxnLogFile) {
		return c.TxnLogFile
	}
	return filepath.Join(c.DataDir, c.TxnLogFile)
}

// WriteDefault stores the default configuration as yaml at path.
func WriteDefault(fs afero.Fs, path string) error {
	def := Default()

	doc := map[string]any{
		"environment":        string(def.Environment),
		"log_level":          def.LogLevel,
		"log_format":         def.LogFormat,
		"log_output":         def.LogOutput,
		"data_dir":           def.DataDir,
		"page_size":          def.PageSize,
		"pool_pages":         def.PoolPages,
		"lock_timeout":       def.LockTimeout.String(),
		"lock_pool_capacity": def.LockPoolCapacity,
		"txn_log_file":       def.TxnLogFile,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal default config")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
