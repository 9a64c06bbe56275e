package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AWS      AWSConfig
	DynamoDB DynamoDBConfig
	Server   ServerConfig
	NATS     NATSConfig
	Redis    RedisConfig
	Unread   UnreadConfig
	Log      LogConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type ServerConfig struct {
	GRPCPort    int
	Environment string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

type UnreadConfig struct {
	// Upper bound on a single fan-out branch; a slower branch counts as 0.
	BranchTimeout  time.Duration
	MaxConcurrency int
	ResyncInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	setDefaults(v)

	v.SetEnvPrefix("COURTSIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "eu-central-1")
	v.SetDefault("dynamodb.tablename", "courtside")
	v.SetDefault("dynamodb.maxretries", 3)

	v.SetDefault("server.grpcport", 50051)
	v.SetDefault("server.environment", "development")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.maxreconnect", -1)
	v.SetDefault("nats.reconnectwaitseconds", 2)
	v.SetDefault("nats.timeoutseconds", 5)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.maxretries", 3)
	v.SetDefault("redis.dialtimeout", 5*time.Second)
	v.SetDefault("redis.readtimeout", 3*time.Second)
	v.SetDefault("redis.writetimeout", 3*time.Second)
	v.SetDefault("redis.poolsize", 10)

	v.SetDefault("unread.branchtimeout", 8*time.Second)
	v.SetDefault("unread.maxconcurrency", 16)
	v.SetDefault("unread.resyncinterval", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
