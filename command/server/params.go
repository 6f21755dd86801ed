package server

import (
	"fmt"
	"time"

	"github.com/tzstamp/tzstamp/command/server/config"
)

const (
	configFlag         = "config"
	dataDirFlag        = "data-dir"
	addrFlag           = "addr"
	baseURLFlag        = "base-url"
	networkFlag        = "network"
	intervalFlag       = "interval"
	deduplicateFlag    = "deduplicate"
	publishRetriesFlag = "publish-retries"
	logJSONFlag        = "log-json"
	corsOriginFlag     = "access-control-allow-origins"
	devFlag            = "dev"
	prometheusFlag     = "prometheus"
)

const storeFileName = "tzstamp.db"

var params = &serverParams{
	rawConfig: config.DefaultConfig(),
}

type serverParams struct {
	rawConfig  *config.Config
	configPath string

	interval time.Duration
}

func (p *serverParams) validateFlags() error {
	if err := p.rawConfig.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	interval, err := p.rawConfig.IntervalDuration()
	if err != nil {
		return err
	}

	p.interval = interval

	return nil
}

// initConfigFromFile loads the config file and keeps the values of
// explicitly set flags on top of it
func (p *serverParams) initConfigFromFile(changed func(string) bool) error {
	file, err := config.ReadConfigFile(p.configPath)
	if err != nil {
		return err
	}

	p.rawConfig = mergeConfig(file, p.rawConfig, changed)

	return nil
}

func mergeConfig(file, flags *config.Config, changed func(string) bool) *config.Config {
	merged := *file

	if changed(dataDirFlag) {
		merged.DataDir = flags.DataDir
	}

	if changed(addrFlag) {
		merged.Addr = flags.Addr
	}

	if changed(baseURLFlag) {
		merged.BaseURL = flags.BaseURL
	}

	if changed(networkFlag) {
		merged.Network = flags.Network
	}

	if changed(intervalFlag) {
		merged.Interval = flags.Interval
	}

	if changed(deduplicateFlag) {
		merged.Deduplicate = flags.Deduplicate
	}

	if changed(publishRetriesFlag) {
		merged.PublishRetries = flags.PublishRetries
	}

	if changed(logJSONFlag) {
		merged.JSONLogFormat = flags.JSONLogFormat
	}

	if changed(corsOriginFlag) {
		merged.CorsAllowedOrigins = flags.CorsAllowedOrigins
	}

	if changed(devFlag) {
		merged.Dev = flags.Dev
	}

	if changed(prometheusFlag) {
		merged.Prometheus = flags.Prometheus
	}

	return &merged
}
