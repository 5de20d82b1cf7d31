package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	z "github.com/Oudwins/zog"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/db"
)

type Config struct {
	DBType string
	DBDSN  string
	DBPath string

	DataDir   string
	OutputDir string
	CSVDir    string

	Workers          int
	ReadRate         float64
	BatchSize        int
	RejectOutOfRange bool

	HttpHostPort string
	GrpcHostPort string
	// DefaultRate and DefaultBurst throttle the status servers per dataset;
	// a zero rate leaves them unthrottled.
	DefaultRate  float64
	DefaultBurst int
}

// FlagKeys maps command line flag names to the env key they override.
var FlagKeys = map[string]string{
	"db-type":             common.EnvKeyWFCDBType,
	"db-dsn":              common.EnvKeyWFCDbDSN,
	"db-path":             common.EnvKeyWFCDbPath,
	"data-dir":            common.EnvKeyWFCDataDir,
	"output-dir":          common.EnvKeyWFCOutputDir,
	"csv-dir":             common.EnvKeyWFCCSVDir,
	"workers":             common.EnvKeyWFCWorkers,
	"read-rate":           common.EnvKeyWFCReadRate,
	"batch-size":          common.EnvKeyWFCBatchSize,
	"reject-out-of-range": common.EnvKeyWFCRejectOutOfRange,
	"http":                common.EnvKeyWFCHttpHostPort,
	"grpc":                common.EnvKeyWFCGrpcHostPort,
	"rate":                common.EnvKeyWFCDefaultRate,
	"burst":               common.EnvKeyWFCDefaultBurst,
}

var configSchema = z.Struct(z.Shape{
	"DBType":       z.String().OneOf([]string{db.TypePostgres, db.TypeFile, db.TypeMemory}).Required(),
	"Workers":      z.Int().GTE(0),
	"ReadRate":     z.Float64().GTE(0),
	"BatchSize":    z.Int().GTE(0),
	"DefaultRate":  z.Float64().GTE(0),
	"DefaultBurst": z.Int().GTE(0),
})

// Load builds the configuration from, in increasing precedence, defaults, the
// env file (skipped when absent), the process environment and the flags in
// flags that were set explicitly. flags may be nil.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault(common.EnvKeyWFCDBType, db.TypeFile)
	v.SetDefault(common.EnvKeyWFCDbPath, db.DefaultSqlitePath)
	v.SetDefault(common.EnvKeyWFCHttpHostPort, ":1080")

	for _, key := range FlagKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{
		DBType:           strings.TrimSpace(v.GetString(common.EnvKeyWFCDBType)),
		DBDSN:            v.GetString(common.EnvKeyWFCDbDSN),
		DBPath:           v.GetString(common.EnvKeyWFCDbPath),
		DataDir:          v.GetString(common.EnvKeyWFCDataDir),
		OutputDir:        v.GetString(common.EnvKeyWFCOutputDir),
		CSVDir:           v.GetString(common.EnvKeyWFCCSVDir),
		Workers:          v.GetInt(common.EnvKeyWFCWorkers),
		ReadRate:         v.GetFloat64(common.EnvKeyWFCReadRate),
		BatchSize:        v.GetInt(common.EnvKeyWFCBatchSize),
		RejectOutOfRange: v.GetBool(common.EnvKeyWFCRejectOutOfRange),
		HttpHostPort:     strings.TrimSpace(v.GetString(common.EnvKeyWFCHttpHostPort)),
		GrpcHostPort:     strings.TrimSpace(v.GetString(common.EnvKeyWFCGrpcHostPort)),
		DefaultRate:      v.GetFloat64(common.EnvKeyWFCDefaultRate),
		DefaultBurst:     v.GetInt(common.EnvKeyWFCDefaultBurst),
	}

	if errs := configSchema.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs)
	}
	if cfg.DBType == db.TypePostgres && cfg.DBDSN == "" {
		return nil, fmt.Errorf("%s is required when %s is %s", common.EnvKeyWFCDbDSN, common.EnvKeyWFCDBType, db.TypePostgres)
	}
	return cfg, nil
}

// RateLimiterStore returns nil when no default rate is configured.
func (c *Config) RateLimiterStore() *common.RateLimiterStore {
	if c.DefaultRate <= 0 {
		return nil
	}
	return common.NewRateLimiterStore(rate.Limit(c.DefaultRate), c.DefaultBurst)
}

// Dialector opens nothing; it picks the dialector the config points at.
func (c *Config) Dialector() gorm.Dialector {
	switch c.DBType {
	case db.TypePostgres:
		return db.UsePostgresDialectorWithDSN(c.DBDSN)
	case db.TypeMemory:
		return db.UseMemorySqliteDialector()
	}
	return db.UseSqliteDialectorAt(c.DBPath)
}
