package config

import (
	"time"

	"github.com/coverhub/coverhub/pkg/lumber"
)

// Model definition for configuration

// AgentConfig is the reporting agent's configuration.
type AgentConfig struct {
	Config          string
	Repo            string        `json:"repo"`
	Branch          string        `json:"branch"`
	Commit          string        `json:"commit"`
	Endpoint        string        `json:"endpoint"`
	CoverageFile    string        `json:"coverageFile"`
	CoverageFormat  string        `json:"coverageFormat"`
	FlushInterval   time.Duration `json:"flushInterval"`
	FingerprintFile string        `json:"fingerprintFile"`
	LogFile         string
	LogConfig       lumber.LoggingConfig
	Env             string
	Verbose         bool
}

// ServerConfig is the consumer and query API configuration.
type ServerConfig struct {
	Config          string
	Port            string `json:"port"`
	AMQPURL         string `json:"amqpURL"`
	DatabaseDSN     string `json:"databaseDSN"`
	ReposRoot       string `json:"reposRoot"`
	ConsumerWorkers int    `json:"consumerWorkers"`
	LogFile         string
	LogConfig       lumber.LoggingConfig
	Env             string
	Verbose         bool
}
