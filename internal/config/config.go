/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the luckypool-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	RedisGuardPrefix   string `mapstructure:"REDIS_GUARD_PREFIX"`
	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	LedgerAPIBaseURL   string `mapstructure:"LEDGER_API_BASE_URL"`
	LedgerAPIKey       string `mapstructure:"LEDGER_API_KEY"`
	RandomAPIBaseURL   string `mapstructure:"RANDOM_API_BASE_URL"`
	AuthJWTSecret      string `mapstructure:"AUTH_JWT_SECRET"`
	InternalAPIKey     string `mapstructure:"INTERNAL_API_KEY"`
	MasterSecret       string `mapstructure:"MASTER_SECRET"`
	PoolAccount        string `mapstructure:"POOL_ACCOUNT"`
	AirdropAmount      uint64 `mapstructure:"AIRDROP_AMOUNT"`
	AirdropBalanceTkns uint64 `mapstructure:"AIRDROP_BALANCE_TOKENS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_GUARD_PREFIX", "luckypool:active")
	viper.SetDefault("AIRDROP_AMOUNT", 10)
	viper.SetDefault("AIRDROP_BALANCE_TOKENS", 100_000_000)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LUCKYPOOL_REDIS_URL")
	_ = viper.BindEnv("REDIS_GUARD_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("LEDGER_API_BASE_URL")
	_ = viper.BindEnv("LEDGER_API_KEY")
	_ = viper.BindEnv("RANDOM_API_BASE_URL")
	_ = viper.BindEnv("AUTH_JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LUCKYPOOL_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("MASTER_SECRET")
	_ = viper.BindEnv("POOL_ACCOUNT")
	_ = viper.BindEnv("AIRDROP_AMOUNT")
	_ = viper.BindEnv("AIRDROP_BALANCE_TOKENS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform-injected PORT (e.g. a PaaS runtime) wins over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisGuardPrefix = strings.TrimSpace(config.RedisGuardPrefix)
	if config.RedisGuardPrefix == "" {
		config.RedisGuardPrefix = "luckypool:active"
	}
	config.MasterSecret = strings.TrimSpace(config.MasterSecret)
	config.PoolAccount = strings.TrimSpace(config.PoolAccount)

	// Allow specifying the airdrop amount as a plain decimal string.
	if viper.IsSet("AIRDROP_AMOUNT") {
		amountStr := strings.TrimSpace(viper.GetString("AIRDROP_AMOUNT"))
		if amountStr != "" {
			amountValue, parseErr := strconv.ParseUint(amountStr, 10, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid AIRDROP_AMOUNT\" value=%q err=%v", amountStr, parseErr)
			} else {
				config.AirdropAmount = amountValue
			}
		}
	}

	if config.AirdropAmount == 0 {
		log.Printf("level=warn component=config msg=\"zero airdrop amount configured; coercing to default\" amount=%d", config.AirdropAmount)
		config.AirdropAmount = 10
	}
	if config.AirdropBalanceTkns == 0 {
		config.AirdropBalanceTkns = 100_000_000
	}

	return
}
