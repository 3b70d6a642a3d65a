package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs     LogsSettings     `mapstructure:"logs"`
	App      Application      `mapstructure:"app"`
	Database Database         `mapstructure:"database"`
	Queue    QueueConfig      `mapstructure:"queue"`
	Redis    Redis            `mapstructure:"redis"`
	Security SecuritySettings `mapstructure:"security"`
	Server   ServerSettings   `mapstructure:"server"`
	QrLogin  QrLoginConfig    `mapstructure:"qr-login"`
	Code     CodeConfig       `mapstructure:"code"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name     string `mapstructure:"name"`
	Timeout  int    `mapstructure:"timeout"`
	Version  string `mapstructure:"version"`
	HostLink string `mapstructure:"host-link"`
}

type Database struct {
	Url            string `mapstructure:"url"`
	DbName         string `mapstructure:"dbname"`
	UserCollection string `mapstructure:"user-collection"`
	Timeout        int    `mapstructure:"timeout"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url            string `mapstructure:"url"`
	Exchange       string `mapstructure:"exchange"`
	ExchangeType   string `mapstructure:"exchange-type"`
	EmailQueue     string `mapstructure:"email-queue"`
	RoutingKey     string `mapstructure:"routing-key"`
	ReconnectDelay int    `mapstructure:"reconnect-delay"`
	Timeout        int    `mapstructure:"timeout"`
	Durable        bool   `mapstructure:"durable"`
	AutoDelete     bool   `mapstructure:"auto-delete"`
	Internal       bool   `mapstructure:"internal"`
	NoWait         bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	JwtPrivateKey           string `mapstructure:"jwt-private-key"`
	JwtPublicKey            string `mapstructure:"jwt-public-key"`
	TokenTTLSeconds         int    `mapstructure:"token-ttl-seconds"`
	RenewalThresholdSeconds int    `mapstructure:"renewal-threshold-seconds"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

type QrLoginConfig struct {
	SessionTTLSeconds     int  `mapstructure:"session-ttl-seconds"`
	RetentionSeconds      int  `mapstructure:"retention-seconds"`
	ImageSize             int  `mapstructure:"image-size"`
	HeartbeatSeconds      int  `mapstructure:"heartbeat-seconds"`
	ExpiryCheckSeconds    int  `mapstructure:"expiry-check-seconds"`
	AllowTestTokenMinting bool `mapstructure:"allow-test-token-minting"`
}

type CodeConfig struct {
	Length           int `mapstructure:"length"`
	TTLSeconds       int `mapstructure:"ttl-seconds"`
	RateLimitSeconds int `mapstructure:"rate-limit-seconds"`
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	privateKey := os.Getenv("JWT_PRIVATE_KEY")
	if privateKey != "" {
		cfg.Security.JwtPrivateKey = privateKey
	}

	publicKey := os.Getenv("JWT_PUBLIC_KEY")
	if publicKey != "" {
		cfg.Security.JwtPublicKey = publicKey
	}

	ApplyDefaults(cfg)

	return cfg
}

// ApplyDefaults fills zero-valued tunables with their documented defaults.
func ApplyDefaults(cfg *Configuration) {
	if cfg.QrLogin.SessionTTLSeconds <= 0 {
		cfg.QrLogin.SessionTTLSeconds = 300
	}
	if cfg.QrLogin.RetentionSeconds <= 0 {
		cfg.QrLogin.RetentionSeconds = 3600
	}
	if cfg.QrLogin.ImageSize <= 0 {
		cfg.QrLogin.ImageSize = 300
	}
	if cfg.QrLogin.HeartbeatSeconds <= 0 {
		cfg.QrLogin.HeartbeatSeconds = 30
	}
	if cfg.QrLogin.ExpiryCheckSeconds <= 0 {
		cfg.QrLogin.ExpiryCheckSeconds = 60
	}
	if cfg.Security.TokenTTLSeconds <= 0 {
		cfg.Security.TokenTTLSeconds = 86400
	}
	if cfg.Security.RenewalThresholdSeconds <= 0 {
		cfg.Security.RenewalThresholdSeconds = 3600
	}
	if cfg.Code.Length <= 0 {
		cfg.Code.Length = 6
	}
	if cfg.Code.TTLSeconds <= 0 {
		cfg.Code.TTLSeconds = 600
	}
	if cfg.Code.RateLimitSeconds <= 0 {
		cfg.Code.RateLimitSeconds = 60
	}
	if cfg.App.Timeout <= 0 {
		cfg.App.Timeout = 10
	}
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panic("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panic("Error unmarshalling config file, %s", err)
	}

	return &config
}
