package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadAgentConfig loads config from command instance to predefined config variables
func LoadAgentConfig(cmd *cobra.Command) (*AgentConfig, error) {
	if err := bind(cmd, "CH", setAgentDefaultConfig, ".coverhub-agent"); err != nil {
		return nil, err
	}
	cfg := new(AgentConfig)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServerConfig loads config from command instance to predefined config variables
func LoadServerConfig(cmd *cobra.Command) (*ServerConfig, error) {
	if err := bind(cmd, "CH", setServerDefaultConfig, ".coverhub-server"); err != nil {
		return nil, err
	}
	cfg := new(ServerConfig)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bind(cmd *cobra.Command, envPrefix string, setDefaults func(), configName string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// default viper configs
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// set default configs
	setDefaults()

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(configName)
		viper.AddConfigPath("./")
		viper.AddConfigPath("$HOME/.coverhub")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Warning: No configuration file found. Proceeding with defaults")
	}
	return nil
}
