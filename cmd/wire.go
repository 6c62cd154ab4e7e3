package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/datagen/internal/adapters/format/delimited"
	jsonformat "github.com/bnema/datagen/internal/adapters/format/json"
	summaryadapter "github.com/bnema/datagen/internal/adapters/render/summary"
	tomlrepo "github.com/bnema/datagen/internal/adapters/repo/toml"
	boltsink "github.com/bnema/datagen/internal/adapters/sink/bolt"
	consolesink "github.com/bnema/datagen/internal/adapters/sink/console"
	kafkasink "github.com/bnema/datagen/internal/adapters/sink/kafka"
	redissink "github.com/bnema/datagen/internal/adapters/sink/redis"
	"github.com/bnema/datagen/internal/application"
	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/spf13/viper"
)

const (
	configDir  = ".datagen"
	configName = "config"
	configType = "toml"
	envPrefix  = "DATAGEN"

	sinkKey               = "sink"
	formatKey             = "format"
	kafkaBrokersKey       = "kafka.brokers"
	kafkaClientIDKey      = "kafka.client_id"
	redisAddrKey          = "redis.addr"
	redisDBKey            = "redis.db"
	redisStreamPrefixKey  = "redis.stream_prefix"
	boltPathKey           = "bolt.path"
	delimitedSeparatorKey = "delimited.separator"
)

type app struct {
	config          *viper.Viper
	history         *application.HistoryService
	runRenderer     func(domain.RunSummary, summaryadapter.RenderOptions) (string, error)
	historyRenderer func([]domain.RunSummary, summaryadapter.RenderOptions) (string, error)
	clock           ports.Clock
}

func wireApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	runs, err := tomlrepo.NewRunRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire run repository: %w", err)
	}

	return &app{
		config:          cfg,
		history:         application.NewHistoryService(runs),
		runRenderer:     summaryadapter.RenderRun,
		historyRenderer: summaryadapter.RenderHistory,
		clock:           ports.SystemClock{},
	}, nil
}

// loadConfig reads ~/.datagen/config.toml when present. DATAGEN_* variables
// override file values, with dots in keys replaced by underscores.
func loadConfig() (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(sinkKey, consolesink.Name)
	cfg.SetDefault(formatKey, jsonformat.Format)
	cfg.SetDefault(kafkaBrokersKey, []string{"localhost:9092"})
	cfg.SetDefault(kafkaClientIDKey, "datagen")
	cfg.SetDefault(redisAddrKey, "localhost:6379")
	cfg.SetDefault(redisDBKey, 0)
	cfg.SetDefault(redisStreamPrefixKey, "datagen:")
	cfg.SetDefault(boltPathKey, filepath.Join(homeDir, configDir, "sink.db"))
	cfg.SetDefault(delimitedSeparatorKey, ",")
	cfg.SetDefault(tomlrepo.RunsPathKey, filepath.Join(homeDir, configDir, "runs.toml"))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}

func (a *app) newSerializer(name string) (ports.Serializer, error) {
	switch name {
	case jsonformat.Format:
		return jsonformat.New(), nil
	case delimited.Format:
		separator := []rune(a.config.GetString(delimitedSeparatorKey))
		if len(separator) != 1 {
			return nil, fmt.Errorf("%w: %s must be a single character", domain.ErrInvalidConfiguration, delimitedSeparatorKey)
		}
		return delimited.New(separator[0]), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want %s or %s)", domain.ErrInvalidConfiguration, name, jsonformat.Format, delimited.Format)
	}
}

func (a *app) newSink(name string, runID domain.RunID, out io.Writer) (ports.Sink, error) {
	switch name {
	case consolesink.Name:
		return consolesink.New(out), nil
	case kafkasink.Name:
		return kafkasink.New(kafkasink.Config{
			Brokers:  splitList(a.config.GetStringSlice(kafkaBrokersKey)),
			ClientID: a.config.GetString(kafkaClientIDKey),
			RunID:    string(runID),
		})
	case redissink.Name:
		return redissink.New(redissink.Config{
			Addr:         a.config.GetString(redisAddrKey),
			DB:           a.config.GetInt(redisDBKey),
			StreamPrefix: a.config.GetString(redisStreamPrefixKey),
			RunID:        string(runID),
		}), nil
	case boltsink.Name:
		return boltsink.Open(a.config.GetString(boltPathKey))
	default:
		return nil, fmt.Errorf("%w: unknown sink %q (want one of %s)", domain.ErrInvalidConfiguration, name, strings.Join(sinkNames(), ", "))
	}
}

func sinkNames() []string {
	return []string{consolesink.Name, kafkasink.Name, redissink.Name, boltsink.Name}
}

// splitList accepts both TOML arrays and comma separated environment values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
