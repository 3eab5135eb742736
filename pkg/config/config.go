/*
Copyright © 2024 - 2026 Firmware Tools Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the daemon configuration and assembles a ready to
// use hardware context from it.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
	"github.com/firmware-tools/hwcontext/pkg/types"
)

const (
	// DefaultConfigDir is scanned for hwcontext.yaml and hwcontext.env
	DefaultConfigDir = "/etc/hwcontext"
	envFileName      = "hwcontext.env"
)

// Config is the file backed daemon configuration.
type Config struct {
	// EspLocation pins the ESP to a mount path instead of electing one
	EspLocation string `mapstructure:"esp-location"`
	// HwidOverrides replace broken vendor identity strings
	HwidOverrides map[string]string `mapstructure:"hwid-overrides"`
	// IgnoreEfivarsFreeSpace disables the NVRAM free-space check
	IgnoreEfivarsFreeSpace bool `mapstructure:"ignore-efivars-free-space"`
	// InhibitVolumeMount forbids mounting volumes
	InhibitVolumeMount bool `mapstructure:"inhibit-volume-mount"`
}

// ReadConfig loads hwcontext.yaml from the given directory, folding in any
// HWCONTEXT_* environment variables and the optional hwcontext.env file.
func ReadConfig(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	// the env file may carry overrides like FWUPD_UEFI_ESP_PATH
	envFile := filepath.Join(configDir, envFileName)
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yaml")
	viper.SetConfigName("hwcontext")
	// If a config file is found, read it in.
	_ = viper.ReadInConfig()
	viper.SetEnvPrefix("HWCONTEXT")
	viper.AutomaticEnv()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewContext builds a hardware context from the configuration, with the
// logger configured the way the CLI expects it.
func NewContext(cfg *Config, opts ...hwcontext.Option) *hwcontext.Context {
	logger := types.NewLogger()
	if viper.GetBool("debug") {
		logger.SetLevel(types.DebugLevel())
	}
	// Set formatter so both file and stdout format are equal
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableColors:    false,
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	if logfile := viper.GetString("logfile"); logfile != "" {
		if file, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Warnf("cannot open %s for writing: %v", logfile, err)
		}
	}

	ctx := hwcontext.New(append([]hwcontext.Option{hwcontext.WithLogger(logger)}, opts...)...)
	if cfg.EspLocation != "" {
		ctx.SetEspLocation(cfg.EspLocation)
	}
	if len(cfg.HwidOverrides) > 0 {
		ctx.SetHwidConfig(cfg.HwidOverrides)
	}
	if cfg.IgnoreEfivarsFreeSpace {
		ctx.AddFlag(hwcontext.FlagIgnoreEfivarsFreeSpace)
	}
	if cfg.InhibitVolumeMount {
		ctx.AddFlag(hwcontext.FlagInhibitVolumeMount)
	}
	return ctx
}
