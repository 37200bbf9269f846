package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"course-service/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	YouTube     YouTube     `json:"youtube"`
	S3          S3          `json:"s3"`
	Media       Media       `json:"media"`
	Duration    Duration    `json:"duration"`
	Cache       Cache       `json:"cache"`
	Course      Course      `json:"course"`
	Reconciler  Reconciler  `json:"reconciler"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// AllowedOrigins feeds CORS; empty allows the local dashboard only.
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
	// Ledger selects the orphaned-asset ledger backend: "psql" or "mssql".
	Ledger string `json:"ledger"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	TopicID   string `json:"topicID"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Topic     string `json:"topic"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

type YouTube struct {
	APIKey        string `json:"apiKey"`
	ClientID      string `json:"clientId"`
	ClientSecret  string `json:"clientSecret"`
	RedirectURI   string `json:"redirectURI"`
	PrivacyStatus string `json:"privacyStatus"`
	CategoryID    string `json:"categoryId"`
}

type S3 struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	PublicURL    string `json:"publicURL"`
	UsePathStyle bool   `json:"usePathStyle"`
}

// Media controls the Media Upload Client.
type Media struct {
	VideoProvider   string        `json:"videoProvider"`
	VideoFolder     string        `json:"videoFolder"`
	ImageFolder     string        `json:"imageFolder"`
	ChunkSize       int           `json:"chunkSize"`
	UploadAttempts  int           `json:"uploadAttempts"`
	UploadBaseDelay time.Duration `json:"uploadBaseDelay"`
	UploadMaxDelay  time.Duration `json:"uploadMaxDelay"`
	UploadJitter    time.Duration `json:"uploadJitter"`
	UploadTimeout   time.Duration `json:"uploadTimeout"`
	TempDir         string        `json:"tempDir"`
	MaxUploadBytes  int64         `json:"maxUploadBytes"`
}

// Duration controls the Duration Resolver strategies.
type Duration struct {
	LocalTimeout    time.Duration `json:"localTimeout"`
	MinFileBytes    int64         `json:"minFileBytes"`
	RemoteAttempts  int           `json:"remoteAttempts"`
	RemoteDelay     time.Duration `json:"remoteDelay"`
	PendingDelay    time.Duration `json:"pendingDelay"`
	PlaybackTimeout time.Duration `json:"playbackTimeout"`
	FFProbePath     string        `json:"ffprobePath"`
}

type Cache struct {
	CourseTTL  time.Duration `json:"courseTTL"`
	ContentTTL time.Duration `json:"contentTTL"`
	ListingTTL time.Duration `json:"listingTTL"`
}

type Course struct {
	OptimisticLocking bool `json:"optimisticLocking"`
}

type Reconciler struct {
	Enabled     bool   `json:"enabled"`
	Schedule    string `json:"schedule"`
	BatchSize   int    `json:"batchSize"`
	MaxAttempts int    `json:"maxAttempts"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	logger.SetLevel(C.Logger.Level)
}

func setDefaults() {
	viper.SetDefault("logger.level", "debug")

	viper.SetDefault("media.videoProvider", "youtube")
	viper.SetDefault("media.videoFolder", "courses/videos")
	viper.SetDefault("media.imageFolder", "courses/thumbnails")
	viper.SetDefault("media.chunkSize", 8*1024*1024)
	viper.SetDefault("media.uploadAttempts", 3)
	viper.SetDefault("media.uploadBaseDelay", "1s")
	viper.SetDefault("media.uploadMaxDelay", "10s")
	viper.SetDefault("media.uploadJitter", "400ms")
	viper.SetDefault("media.uploadTimeout", "300s")
	viper.SetDefault("media.maxUploadBytes", int64(2<<30))

	viper.SetDefault("duration.localTimeout", "15s")
	viper.SetDefault("duration.minFileBytes", 1000)
	viper.SetDefault("duration.remoteAttempts", 5)
	viper.SetDefault("duration.remoteDelay", "2s")
	viper.SetDefault("duration.pendingDelay", "3s")
	viper.SetDefault("duration.playbackTimeout", "10s")

	viper.SetDefault("cache.courseTTL", "1h")
	viper.SetDefault("cache.contentTTL", "24h")
	viper.SetDefault("cache.listingTTL", "30m")

	viper.SetDefault("course.optimisticLocking", true)

	viper.SetDefault("reconciler.enabled", true)
	viper.SetDefault("reconciler.schedule", "@every 5m")
	viper.SetDefault("reconciler.batchSize", 50)
	viper.SetDefault("reconciler.maxAttempts", 10)

	viper.SetDefault("database.ledger", "psql")
	viper.SetDefault("redisClient.host", "localhost")
	viper.SetDefault("redisClient.port", "6379")
	viper.SetDefault("database.mongo.host", "localhost")
	viper.SetDefault("database.mongo.port", "27017")
	viper.SetDefault("database.mongo.name", "lms")
}

func LoadConfig() {
	name := getConfig()
	setDefaults()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found, using defaults")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "localhost")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "lms")

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment variables (for Azure SQL in production)
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.MySql.Name = getConfigValue(C.Database.MySql.Name, "MYSQL_DB_NAME", "")
	C.Database.MySql.Host = getConfigValue(C.Database.MySql.Host, "MYSQL_HOST", "")
	C.Database.MySql.Port = getConfigValue(C.Database.MySql.Port, "MYSQL_PORT", "3306")
	C.Database.MySql.User = getConfigValue(C.Database.MySql.User, "MYSQL_USER", "")
	C.Database.MySql.Password = getConfigValue(C.Database.MySql.Password, "MYSQL_PASSWORD", "")

	logger.GetLogger().WithField("mongo", C.Database.Mongo.Host).WithField("ledger", C.Database.Ledger).Info("Database configuration")
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			C.App.TLSEnabled = b
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.TLSEnabled {
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}
