package config

import (
	"github.com/spf13/viper"

	"github.com/coverhub/coverhub/pkg/global"
)

func setAgentDefaultConfig() {
	viper.SetDefault("LogConfig.EnableConsole", true)
	viper.SetDefault("LogConfig.ConsoleJSONFormat", false)
	viper.SetDefault("LogConfig.ConsoleLevel", "info")
	viper.SetDefault("LogConfig.EnableFile", true)
	viper.SetDefault("LogConfig.FileJSONFormat", true)
	viper.SetDefault("LogConfig.FileLevel", "debug")
	viper.SetDefault("LogConfig.FileLocation", "./coverhub-agent.log")
	viper.SetDefault("Env", "prod")
	viper.SetDefault("Verbose", false)
	viper.SetDefault("Branch", global.DefaultBaseBranch)
	viper.SetDefault("CoverageFormat", "goc")
	viper.SetDefault("FlushInterval", global.DefaultFlushInterval)
	viper.SetDefault("FingerprintFile", global.DefaultFingerprintFile)
}

func setServerDefaultConfig() {
	viper.SetDefault("LogConfig.EnableConsole", true)
	viper.SetDefault("LogConfig.ConsoleJSONFormat", false)
	viper.SetDefault("LogConfig.ConsoleLevel", "info")
	viper.SetDefault("LogConfig.EnableFile", true)
	viper.SetDefault("LogConfig.FileJSONFormat", true)
	viper.SetDefault("LogConfig.FileLevel", "debug")
	viper.SetDefault("LogConfig.FileLocation", "./coverhub-server.log")
	viper.SetDefault("Env", "prod")
	viper.SetDefault("Verbose", false)
	viper.SetDefault("Port", "9876")
	viper.SetDefault("ConsumerWorkers", global.DefaultConsumerWorkers)
	viper.SetDefault("ReposRoot", "/var/lib/coverhub/repos")
}
