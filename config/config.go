// Package config loads sparkify settings from defaults, an optional YAML file
// and SPARKIFY_ environment variables, in increasing priority.
package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/xerrors"
)

// Config is the whole sparkify configuration. Each command validates the sections it uses.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Data      DataConfig      `koanf:"data"`
	Cluster   ClusterConfig   `koanf:"cluster"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	BigQuery  BigQueryConfig  `koanf:"bigquery"`
	AWS       AWSConfig       `koanf:"aws"`
	Lake      LakeConfig      `koanf:"lake"`
	Slack     SlackConfig     `koanf:"slack"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// DatabaseConfig locates the relational database of the row-by-row ETL.
type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host     string `koanf:"host" validate:"required_if=Driver postgres"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	Name     string `koanf:"dbname" validate:"required_if=Driver postgres"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	Path     string `koanf:"path" validate:"required_if=Driver sqlite"`
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}

	return postgresDSN(d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// DataConfig locates the source files of the row-by-row ETL.
type DataConfig struct {
	// Root is a local directory, s3:// or gs:// URI holding song_data and log_data.
	Root string `koanf:"root" validate:"required"`
}

// ClusterConfig locates the Redshift cluster.
type ClusterConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	Name     string `koanf:"dbname" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// DSN returns the data source name of the cluster.
func (c ClusterConfig) DSN() string {
	return postgresDSN(c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}

// WarehouseConfig locates the Redshift staging sources.
type WarehouseConfig struct {
	IAMRole     string `koanf:"iam_role" validate:"required"`
	Region      string `koanf:"region" validate:"required"`
	LogData     string `koanf:"log_data" validate:"required,startswith=s3://"`
	LogJSONPath string `koanf:"log_jsonpath"`
	SongData    string `koanf:"song_data" validate:"required,startswith=s3://"`
}

// BigQueryConfig locates the BigQuery dataset and its staging sources.
type BigQueryConfig struct {
	Project  string `koanf:"project" validate:"required"`
	Dataset  string `koanf:"dataset" validate:"required"`
	Location string `koanf:"location"`
	LogData  string `koanf:"log_data" validate:"required,startswith=gs://"`
	SongData string `koanf:"song_data" validate:"required,startswith=gs://"`
}

// AWSConfig configures the S3 client. Empty keys fall back to the default credential chain.
type AWSConfig struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `koanf:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required_with=AccessKeyID"`
	PathStyle       bool   `koanf:"path_style"`
}

// LakeConfig configures the Parquet ETL.
type LakeConfig struct {
	Input       string `koanf:"input" validate:"required"`
	Output      string `koanf:"output" validate:"required"`
	Database    string `koanf:"database"`
	Upload      string `koanf:"upload" validate:"omitempty,startswith=s3://"`
	Concurrency int    `koanf:"concurrency" validate:"min=1"`
}

// SlackConfig enables notifications when Token is set.
type SlackConfig struct {
	Token   string `koanf:"token"`
	Channel string `koanf:"channel" validate:"required_with=Token"`
}

var validate = validator.New()

// Validate validates the given sections, e.g. cfg.Database.
func Validate(sections ...any) error {
	for _, s := range sections {
		if err := validate.Struct(s); err != nil {
			return xerrors.Errorf("invalid %T: %w", s, err)
		}
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "127.0.0.1",
			Port:    5432,
			Name:    "sparkifydb",
			User:    "student",
			SSLMode: "disable",
			Path:    "sparkify.db",
		},
		Data:      DataConfig{Root: "data"},
		Cluster:   ClusterConfig{Port: 5439, SSLMode: "require"},
		Warehouse: WarehouseConfig{Region: "us-west-2"},
		Lake:      LakeConfig{Input: "data", Output: "output", Concurrency: 8},
	}
}

func postgresDSN(host string, port int, name, user, password, sslmode string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   "/" + name,
	}

	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}

	if sslmode != "" {
		u.RawQuery = fmt.Sprintf("sslmode=%s", url.QueryEscape(sslmode))
	}

	return u.String()
}
