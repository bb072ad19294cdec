package config

import (
	"github.com/spf13/viper"
)

const (
	// EnvConfig names the environment variable holding the config file path
	EnvConfig = "LAUNCHPAD_CFG"
	// EnvLog names the environment variable holding the logging config path
	EnvLog = "LAUNCHPAD_LOG"
	// DefaultPath is used when neither flag nor environment name a config file
	DefaultPath = "./LAUNCHPAD_CFG.yml"

	// KeyConfig and KeyLog are the viper keys for the two paths
	KeyConfig = "cfg"
	KeyLog    = "log"
)

// NewViper returns a viper instance resolving the config and log config
// paths from bound flags, LAUNCHPAD_CFG / LAUNCHPAD_LOG, then defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHPAD")
	_ = v.BindEnv(KeyConfig)
	_ = v.BindEnv(KeyLog)
	v.SetDefault(KeyConfig, DefaultPath)
	return v
}

// Paths returns the resolved config path, log config path (possibly empty)
// and whether the config path fell back to DefaultPath.
func Paths(v *viper.Viper) (cfgPath, logPath string, isDefault bool) {
	cfgPath = v.GetString(KeyConfig)
	logPath = v.GetString(KeyLog)
	return cfgPath, logPath, cfgPath == DefaultPath
}
