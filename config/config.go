package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "STOCKLEDGER_CONFIG_FILE"

type catalog struct {
	HTTPServerAddr string `mapstructure:"http_server_addr"`
	SQLDB          string `mapstructure:"sql_db"`
}

type ledger struct {
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	SQLDB          string        `mapstructure:"sql_db"`
	CatalogBaseURL string        `mapstructure:"catalog_base_url"`
	CatalogTimeout time.Duration `mapstructure:"catalog_timeout"`
}

type Config struct {
	LogLevel slog.Level `mapstructure:"log_level"`
	Catalog  catalog    `mapstructure:"catalog"`
	Ledger   ledger     `mapstructure:"ledger"`
}

func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	// slog.Level decodes from its text form ("debug", "info", ...),
	// which needs the TextUnmarshaler hook on top of viper's defaults.
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))

	var cfg Config
	if err := v.UnmarshalExact(&cfg, decodeHook); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q

	Catalog:
	HTTPServerAddr=%q
	SQLDB=%q

	Ledger:
	HTTPServerAddr=%q
	SQLDB=%q
	CatalogBaseURL=%q
	CatalogTimeout=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.Catalog.HTTPServerAddr,
		c.Catalog.SQLDB,
		c.Ledger.HTTPServerAddr,
		c.Ledger.SQLDB,
		c.Ledger.CatalogBaseURL,
		c.Ledger.CatalogTimeout,
	)
}
