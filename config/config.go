// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Redis         RedisConfiguration
	Hasura        HasuraConfiguration
	JWT           JWTConfiguration
	Auth          AuthConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// RedisConfiguration stores data for the Redis connection
type RedisConfiguration struct {
	Addr      string
	Password  string
	DB        int
	OpTimeout string
}

// HasuraConfiguration stores the location and admin secret of the
// GraphQL engine that owns the users table
type HasuraConfiguration struct {
	BaseURL     string
	AdminSecret string
	Timeout     string
}

// JWTConfiguration stores the signing scheme settings
type JWTConfiguration struct {
	Secret    string
	Algorithm string
	JWKSUrl   string
}

// AuthConfiguration stores the decision engine settings
type AuthConfiguration struct {
	CacheTTL      string
	SkewTolerance string
	DisableCache  bool
	RoleScoping   bool
}

// ElasticsearchConfiguration stores data for the Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 1)
	viper.SetDefault("redis.opTimeout", "2s")
	viper.SetDefault("hasura.baseUrl", "http://localhost:8000")
	viper.SetDefault("hasura.timeout", "5s")
	viper.SetDefault("jwt.algorithm", "HS256")
	viper.SetDefault("auth.cacheTTL", "1800s")
	viper.SetDefault("auth.skewTolerance", "10s")
	viper.SetDefault("auth.disableCache", false)
	viper.SetDefault("auth.roleScoping", false)
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// AuthConfig is the explicit configuration handed to the decision engine
// at construction time. Nothing in the engine reads viper directly.
type AuthConfig struct {
	JWTSecret     string
	JWTAlgorithm  string
	JWKSUrl       string
	CacheTTL      time.Duration
	SkewTolerance time.Duration
	CacheBypass   bool
	RoleScoping   bool
}

// NewAuthConfig builds an AuthConfig from the loaded configuration.
func NewAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:     viper.GetString("jwt.secret"),
		JWTAlgorithm:  viper.GetString("jwt.algorithm"),
		JWKSUrl:       viper.GetString("jwt.jwksUrl"),
		CacheTTL:      viper.GetDuration("auth.cacheTTL"),
		SkewTolerance: viper.GetDuration("auth.skewTolerance"),
		CacheBypass:   viper.GetBool("auth.disableCache"),
		RoleScoping:   viper.GetBool("auth.roleScoping"),
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
