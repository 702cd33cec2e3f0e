// Package config loads application configuration from config.yaml and
// RIVERQ_* environment variables, and owns global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Wards  WardsConfig  `yaml:"wards" mapstructure:"wards"`
	Sites  SitesConfig  `yaml:"sites" mapstructure:"sites"`
	Bio    BioConfig    `yaml:"bio" mapstructure:"bio"`
	Rivers RiversConfig `yaml:"rivers" mapstructure:"rivers"`
	CRS    CRSConfig    `yaml:"crs" mapstructure:"crs"`
	Join   JoinConfig   `yaml:"join" mapstructure:"join"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// WardsConfig locates the ward boundary shapefile.
type WardsConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	CodeField string `yaml:"code_field" mapstructure:"code_field"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// SitesConfig locates the site registry CSV. BBox optionally restricts the
// registry to a projected-CRS region, given as min/max easting then min/max
// northing.
type SitesConfig struct {
	Path string    `yaml:"path" mapstructure:"path"`
	BBox []float64 `yaml:"bbox" mapstructure:"bbox"`
}

// BioConfig locates the biological index workbook and its optional filters.
// From/To are inclusive ISO dates (2006-01-02).
type BioConfig struct {
	Path    string   `yaml:"path" mapstructure:"path"`
	Sheet   string   `yaml:"sheet" mapstructure:"sheet"`
	SiteIDs []string `yaml:"site_ids" mapstructure:"site_ids"`
	From    string   `yaml:"from" mapstructure:"from"`
	To      string   `yaml:"to" mapstructure:"to"`
}

// RiversConfig locates the river network shapefile and configures both river
// filters. BBox is min/max easting then min/max northing in the source CRS.
type RiversConfig struct {
	Path      string    `yaml:"path" mapstructure:"path"`
	NameField string    `yaml:"name_field" mapstructure:"name_field"`
	Name      string    `yaml:"name" mapstructure:"name"`
	MaxLat    float64   `yaml:"max_lat" mapstructure:"max_lat"`
	BBox      []float64 `yaml:"bbox" mapstructure:"bbox"`
}

// CRSConfig names the projected/geographic EPSG code pair.
type CRSConfig struct {
	Source int `yaml:"source" mapstructure:"source"`
	Target int `yaml:"target" mapstructure:"target"`
}

// JoinConfig configures the spatial join.
type JoinConfig struct {
	TieBreak string `yaml:"tie_break" mapstructure:"tie_break"`
}

// ExportConfig configures output artifacts for the charting collaborator.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the optional SQLite results store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("RIVERQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("wards.path", "data/wards.shp")
	v.SetDefault("wards.code_field", "WD24CD")
	v.SetDefault("wards.name_field", "WD24NM")
	v.SetDefault("sites.path", "data/sites.csv")
	v.SetDefault("bio.path", "data/bio_index.xlsx")
	v.SetDefault("rivers.path", "data/rivers.shp")
	v.SetDefault("rivers.name_field", "name1")
	v.SetDefault("rivers.name", "Itchen")
	v.SetDefault("rivers.max_lat", 51.5)
	v.SetDefault("rivers.bbox", []float64{439000, 451000, 100000, 130000})
	v.SetDefault("crs.source", 27700)
	v.SetDefault("crs.target", 4326)
	v.SetDefault("join.tie_break", "last")
	v.SetDefault("export.dir", "out")
	v.SetDefault("store.path", "riverq.db")
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

// BoundingBox parses a 4-element [minE, maxE, minN, maxN] slice.
func BoundingBox(vals []float64) (model.BBox, error) {
	if len(vals) != 4 {
		return model.BBox{}, eris.Errorf("config: bbox needs 4 values (min/max easting, min/max northing), got %d", len(vals))
	}
	box := model.BBox{
		MinEasting:  vals[0],
		MaxEasting:  vals[1],
		MinNorthing: vals[2],
		MaxNorthing: vals[3],
	}
	if box.MinEasting > box.MaxEasting || box.MinNorthing > box.MaxNorthing {
		return model.BBox{}, eris.Errorf("config: bbox min exceeds max: %v", vals)
	}
	return box, nil
}

// Date parses an inclusive filter bound; empty means unbounded.
func Date(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse date %q", s)
	}
	return t, nil
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
