package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Allocate AllocateConfig `yaml:"allocate" mapstructure:"allocate"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the input datasets and names their attribute columns.
type InputConfig struct {
	Cells     string `yaml:"cells" mapstructure:"cells"`
	Buildings string `yaml:"buildings" mapstructure:"buildings"`
	Rules     string `yaml:"rules" mapstructure:"rules"`

	// DBFEncoding overrides the shapefile .cpg sidecar.
	DBFEncoding string `yaml:"dbf_encoding" mapstructure:"dbf_encoding"`

	CellIDField     string `yaml:"cell_id_field" mapstructure:"cell_id_field"`
	TotalField      string `yaml:"total_field" mapstructure:"total_field"`
	SubtotalField   string `yaml:"subtotal_field" mapstructure:"subtotal_field"`
	BuildingIDField string `yaml:"building_id_field" mapstructure:"building_id_field"`
	FloorsField     string `yaml:"floors_field" mapstructure:"floors_field"`
	LivingAreaField string `yaml:"living_area_field" mapstructure:"living_area_field"`
	DetachedField   string `yaml:"detached_field" mapstructure:"detached_field"`

	// CountFields maps rule names to cell columns with a different name.
	CountFields map[string]string `yaml:"count_fields" mapstructure:"count_fields"`
}

// AllocateConfig tunes the allocation run.
type AllocateConfig struct {
	Workers      int      `yaml:"workers" mapstructure:"workers"`
	SurplusOrder string   `yaml:"surplus_order" mapstructure:"surplus_order"`
	Seed         uint64   `yaml:"seed" mapstructure:"seed"`
	RuleFilter   []string `yaml:"rule_filter" mapstructure:"rule_filter"`
}

// OutputConfig configures where results go.
type OutputConfig struct {
	Assignments string `yaml:"assignments" mapstructure:"assignments"`
	Report      string `yaml:"report" mapstructure:"report"`
	SRID        int    `yaml:"srid" mapstructure:"srid"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// StoreConfig configures run history persistence. With the postgres driver
// assignments are also copied into PostGIS.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISAGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.cells", "")
	v.SetDefault("input.buildings", "")
	v.SetDefault("input.rules", "")
	v.SetDefault("input.dbf_encoding", "")
	v.SetDefault("input.cell_id_field", "grid_id")
	v.SetDefault("input.total_field", "count_build_siz")
	v.SetDefault("input.subtotal_field", "count_apart")
	v.SetDefault("input.building_id_field", "building_id")
	v.SetDefault("input.floors_field", "floors")
	v.SetDefault("input.living_area_field", "living_area")
	v.SetDefault("input.detached_field", "detached")
	v.SetDefault("allocate.workers", 4)
	v.SetDefault("allocate.surplus_order", "id")
	v.SetDefault("allocate.seed", 1)
	v.SetDefault("output.assignments", "assignments.csv")
	v.SetDefault("output.report", "")
	v.SetDefault("output.srid", 3035)
	v.SetDefault("output.batch_size", 10000)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "disagg.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var surplusOrders = map[string]bool{"id": true, "input": true, "random": true}

var storeDrivers = map[string]bool{"none": true, "sqlite": true, "postgres": true}

// Validate checks the settings a command needs. mode is one of run,
// inspect, rules or runs.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(v, key string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "run":
		require(c.Input.Cells, "input.cells")
		require(c.Input.Buildings, "input.buildings")
		require(c.Input.Rules, "input.rules")
		if c.Allocate.Workers < 1 || c.Allocate.Workers > 256 {
			errs = append(errs, "allocate.workers must be between 1 and 256")
		}
		if !surplusOrders[c.Allocate.SurplusOrder] {
			errs = append(errs, "allocate.surplus_order must be id, input or random")
		}
		if c.Output.Assignments == "" && c.Store.Driver != "postgres" {
			errs = append(errs, "output.assignments is required unless store.driver is postgres")
		}
		errs = append(errs, c.storeErrors(false)...)
	case "inspect":
		require(c.Input.Cells, "input.cells")
		require(c.Input.Buildings, "input.buildings")
		require(c.Input.Rules, "input.rules")
	case "rules":
		require(c.Input.Rules, "input.rules")
	case "runs":
		errs = append(errs, c.storeErrors(true)...)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors(needStore bool) []string {
	var errs []string
	if !storeDrivers[c.Store.Driver] {
		return []string{"store.driver must be none, sqlite or postgres"}
	}
	if needStore && c.Store.Driver == "none" {
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		errs = append(errs, "store.sqlite_path is required for the sqlite driver")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
