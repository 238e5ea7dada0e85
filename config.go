package oxboard

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// AppConfig is the service-level configuration, loaded from environment
// variables (OXBOARD_*) and an optional oxboard.yaml config file
type AppConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	PresetDir    string `mapstructure:"preset_dir"`
	LogLevel     string `mapstructure:"log_level"`
	ActivePreset string `mapstructure:"active_preset"`
	GinDebug     bool   `mapstructure:"gin_debug"`
}

// LoadConfig reads the service configuration. Missing files are fine; every
// field has a default and can be overridden from the environment.
func LoadConfig() *AppConfig {
	logger := logging.GetDefaultLogger()

	v := viper.New()
	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("preset_dir", "./presets")
	v.SetDefault("log_level", "info")
	v.SetDefault("active_preset", "builtin-crossfader")
	v.SetDefault("gin_debug", false)

	v.SetEnvPrefix("OXBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("oxboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/oxboard")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warn().Err(err).Msg("failed to read config file, using defaults")
		}
	} else {
		logger.Info().Str("config_file", v.ConfigFileUsed()).Msg("loaded config file")
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		logger.Warn().Err(err).Msg("failed to unmarshal config, using defaults")
		return &AppConfig{
			ListenAddr:   ":8090",
			PresetDir:    "./presets",
			LogLevel:     "info",
			ActivePreset: "builtin-crossfader",
		}
	}

	logging.SetGlobalLevel(config.LogLevel)
	return config
}
