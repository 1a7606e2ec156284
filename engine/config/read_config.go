package config

import (
	"encoding/json"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-ini/ini"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
)

const (
	// DefaultConfigFile is the config file used when none is given
	DefaultConfigFile = "saganet.ini"

	_DEFAULT_IP                    = "0.0.0.0"
	_DEFAULT_PORT                  = 5000
	_DEFAULT_HTTP_IP               = "127.0.0.1"
	_DEFAULT_LOG_LEVEL             = "debug"
	_DEFAULT_STORAGE_DB            = "saganet"
	_DEFAULT_GLOBAL_CONFIG_REFRESH = time.Second * 30
	_DEFAULT_STORAGE_DIRECTORY     = "_table_storage"
	_DEFAULT_BLOB_DIRECTORY        = "_blob_storage"
	_DEFAULT_SQLITE_FILE           = "saganet.db"
	_DEFAULT_KVDB_DB               = "0"
	_SECTION_SERVER                = "saganet"
	_SECTION_STORAGE               = "storage"
	_SECTION_KVDB                  = "kvdb"
	_SECTION_MSGBUS                = "msgbus"
	_SECTION_BLOB                  = "blob"
)

// Config defines the total SagaNet config file structure
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	KVDB    KVDBConfig
	MsgBus  MsgBusConfig
	Blob    BlobConfig

	filePath string
}

// ServerConfig defines fields of the [saganet] section
type ServerConfig struct {
	Ip                          string
	Port                        int
	HTTPIp                      string
	HTTPPort                    int
	LogFile                     string
	LogStderr                   bool
	LogLevel                    string
	DeploymentTier              Tier
	IsTestEnvironment           bool
	IsAuthEnabled               bool
	ServerAuthKey               string
	GlobalConfigRefreshInterval time.Duration
}

// StorageConfig defines fields of table storage config
type StorageConfig struct {
	Type      string // Type of storage (memory, aztables, mongodb, sqlite)
	Directory string // Directory of the sqlite database file (sqlite)
	Url       string // Connection string (aztables, mongodb) or sqlite file name
	DB        string // Database name (mongodb)
}

// KVDBConfig defines fields of the session cache config
type KVDBConfig struct {
	Type string // memory, redis
	Url  string // redis://host:port
	DB   string // redis db index
}

// MsgBusConfig defines fields of outbound messaging config
type MsgBusConfig struct {
	Type string // none, servicebus, redis
	Url  string
}

// BlobConfig defines fields of blob storage config
type BlobConfig struct {
	Type      string // filesystem, azblob
	Directory string // filesystem
	Url       string // azblob connection string
}

// envOverrides are read from the process environment (and .env) after the ini file
type envOverrides struct {
	DeploymentTier    string `env:"SAGANET_DEPLOYMENT_TIER"`
	WebsiteSiteName   string `env:"WEBSITE_SITE_NAME"`
	Port              string `env:"SAGANET_PORT"`
	LogLevel          string `env:"SAGANET_LOG_LEVEL"`
	IsTestEnvironment string `env:"SAGANET_IS_TEST_ENVIRONMENT"`
	IsAuthEnabled     string `env:"SAGANET_IS_AUTH_ENABLED"`
	ServerAuthKey     string `env:"SAGANET_SERVER_AUTH_KEY"`
	StorageUrl        string `env:"SAGANET_STORAGE_URL"`
	KVDBUrl           string `env:"SAGANET_KVDB_URL"`
	MsgBusUrl         string `env:"SAGANET_MSGBUS_URL"`
	BlobUrl           string `env:"SAGANET_BLOB_URL"`
}

// FilePath returns the path of the loaded config file
func (cfg *Config) FilePath() string {
	return cfg.filePath
}

// Dir returns the directory of the loaded config file
func (cfg *Config) Dir() string {
	dir, _ := path.Split(cfg.filePath)
	return dir
}

// Default returns a config with all default values, suitable for tests and local runs
func Default() *Config {
	cfg := &Config{}
	readServerConfig(ini.Empty().Section(_SECTION_SERVER), &cfg.Server)
	readStorageConfig(ini.Empty().Section(_SECTION_STORAGE), &cfg.Storage)
	readKVDBConfig(ini.Empty().Section(_SECTION_KVDB), &cfg.KVDB)
	readMsgBusConfig(ini.Empty().Section(_SECTION_MSGBUS), &cfg.MsgBus)
	readBlobConfig(ini.Empty().Section(_SECTION_BLOB), &cfg.Blob)
	cfg.Server.DeploymentTier = DevelopmentTier
	return cfg
}

// Load reads the config file, applies environment overrides and validates the result
func Load(configFilePath string) (*Config, error) {
	if configFilePath == "" {
		configFilePath = DefaultConfigFile
	}
	gwlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "read config error")
	}

	cfg := &Config{filePath: configFilePath}
	if err := readConfig(iniFile, cfg); err != nil {
		return nil, err
	}

	dotenv := path.Join(cfg.Dir(), ".env")
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "load %s", dotenv)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readConfig(iniFile *ini.File, cfg *Config) error {
	var err error
	readers := map[string]func(*ini.Section) error{
		_SECTION_SERVER:  func(sec *ini.Section) error { return readServerConfig(sec, &cfg.Server) },
		_SECTION_STORAGE: func(sec *ini.Section) error { return readStorageConfig(sec, &cfg.Storage) },
		_SECTION_KVDB:    func(sec *ini.Section) error { return readKVDBConfig(sec, &cfg.KVDB) },
		_SECTION_MSGBUS:  func(sec *ini.Section) error { return readMsgBusConfig(sec, &cfg.MsgBus) },
		_SECTION_BLOB:    func(sec *ini.Section) error { return readBlobConfig(sec, &cfg.Blob) },
	}
	// sections missing from the file still get their defaults
	for _, secName := range []string{_SECTION_SERVER, _SECTION_STORAGE, _SECTION_KVDB, _SECTION_MSGBUS, _SECTION_BLOB} {
		if err = readers[secName](iniFile.Section(secName)); err != nil {
			return err
		}
	}

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == strings.ToLower(ini.DefaultSection) {
			continue
		}
		if _, ok := readers[secName]; !ok {
			gwlog.Errorf("unknown section: %s", secName)
		}
	}
	return nil
}

func readServerConfig(sec *ini.Section, sc *ServerConfig) error {
	sc.Ip = _DEFAULT_IP
	sc.Port = _DEFAULT_PORT
	sc.HTTPIp = _DEFAULT_HTTP_IP
	sc.HTTPPort = 0 // pprof & metrics not enabled by default
	sc.LogFile = "saganet.log"
	sc.LogStderr = true
	sc.LogLevel = _DEFAULT_LOG_LEVEL
	sc.DeploymentTier = UnknownTier
	sc.IsTestEnvironment = false
	sc.IsAuthEnabled = true
	sc.GlobalConfigRefreshInterval = _DEFAULT_GLOBAL_CONFIG_REFRESH

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "ip" {
			sc.Ip = key.MustString(sc.Ip)
		} else if name == "port" {
			sc.Port = key.MustInt(sc.Port)
		} else if name == "http_ip" {
			sc.HTTPIp = key.MustString(sc.HTTPIp)
		} else if name == "http_port" {
			sc.HTTPPort = key.MustInt(sc.HTTPPort)
		} else if name == "log_file" {
			sc.LogFile = key.MustString(sc.LogFile)
		} else if name == "log_stderr" {
			sc.LogStderr = key.MustBool(sc.LogStderr)
		} else if name == "log_level" {
			sc.LogLevel = key.MustString(sc.LogLevel)
		} else if name == "deployment_tier" {
			tier, err := ParseTier(key.String())
			if err != nil {
				return err
			}
			sc.DeploymentTier = tier
		} else if name == "is_test_environment" {
			sc.IsTestEnvironment = key.MustBool(sc.IsTestEnvironment)
		} else if name == "is_auth_enabled" {
			sc.IsAuthEnabled = key.MustBool(sc.IsAuthEnabled)
		} else if name == "server_auth_key" {
			sc.ServerAuthKey = key.MustString(sc.ServerAuthKey)
		} else if name == "global_config_refresh_interval" {
			sc.GlobalConfigRefreshInterval = time.Second * time.Duration(key.MustInt(int(_DEFAULT_GLOBAL_CONFIG_REFRESH/time.Second)))
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func readStorageConfig(sec *ini.Section, config *StorageConfig) error {
	config.Type = "memory"
	config.Directory = _DEFAULT_STORAGE_DIRECTORY
	config.DB = _DEFAULT_STORAGE_DB
	config.Url = ""

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			config.DB = key.MustString(config.DB)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.Type == "sqlite" && config.Url == "" {
		config.Url = _DEFAULT_SQLITE_FILE
	}
	return nil
}

func readKVDBConfig(sec *ini.Section, config *KVDBConfig) error {
	config.Type = "memory"
	config.DB = _DEFAULT_KVDB_DB
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			config.DB = key.MustString(config.DB)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func readMsgBusConfig(sec *ini.Section, config *MsgBusConfig) error {
	config.Type = "none"
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func readBlobConfig(sec *ini.Section, config *BlobConfig) error {
	config.Type = "filesystem"
	config.Directory = _DEFAULT_BLOB_DIRECTORY
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return errors.Wrap(err, "parse env")
	}

	sc := &cfg.Server
	if ov.DeploymentTier != "" {
		tier, err := ParseTier(ov.DeploymentTier)
		if err != nil {
			return err
		}
		sc.DeploymentTier = tier
	}
	if sc.DeploymentTier == UnknownTier {
		sc.DeploymentTier = TierFromSiteName(ov.WebsiteSiteName)
	}
	if ov.Port != "" {
		port, err := strconv.Atoi(ov.Port)
		if err != nil {
			return errors.Wrap(err, "SAGANET_PORT")
		}
		sc.Port = port
	}
	if ov.LogLevel != "" {
		sc.LogLevel = ov.LogLevel
	}
	if ov.IsTestEnvironment != "" {
		v, err := strconv.ParseBool(ov.IsTestEnvironment)
		if err != nil {
			return errors.Wrap(err, "SAGANET_IS_TEST_ENVIRONMENT")
		}
		sc.IsTestEnvironment = v
	}
	if ov.IsAuthEnabled != "" {
		v, err := strconv.ParseBool(ov.IsAuthEnabled)
		if err != nil {
			return errors.Wrap(err, "SAGANET_IS_AUTH_ENABLED")
		}
		sc.IsAuthEnabled = v
	}
	if ov.ServerAuthKey != "" {
		sc.ServerAuthKey = ov.ServerAuthKey
	}
	if ov.StorageUrl != "" {
		cfg.Storage.Url = ov.StorageUrl
	}
	if ov.KVDBUrl != "" {
		cfg.KVDB.Url = ov.KVDBUrl
	}
	if ov.MsgBusUrl != "" {
		cfg.MsgBus.Url = ov.MsgBusUrl
	}
	if ov.BlobUrl != "" {
		cfg.Blob.Url = ov.BlobUrl
	}
	return nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Type {
	case "memory", "sqlite":
	case "aztables", "mongodb":
		if cfg.Storage.Url == "" {
			return errors.Errorf("url is not set in %s storage config", cfg.Storage.Type)
		}
	default:
		return errors.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	switch cfg.KVDB.Type {
	case "memory":
	case "redis":
		if cfg.KVDB.Url == "" {
			return errors.Errorf("redis url is not set in kvdb config")
		}
		if _, err := strconv.Atoi(cfg.KVDB.DB); err != nil {
			return errors.Wrap(err, "redis db must be integer")
		}
	default:
		return errors.Errorf("unknown kvdb type: %s", cfg.KVDB.Type)
	}

	switch cfg.MsgBus.Type {
	case "none":
	case "servicebus", "redis":
		if cfg.MsgBus.Url == "" {
			return errors.Errorf("url is not set in %s msgbus config", cfg.MsgBus.Type)
		}
	default:
		return errors.Errorf("unknown msgbus type: %s", cfg.MsgBus.Type)
	}

	switch cfg.Blob.Type {
	case "filesystem":
		if cfg.Blob.Directory == "" {
			return errors.Errorf("directory is not set in filesystem blob config")
		}
	case "azblob":
		if cfg.Blob.Url == "" {
			return errors.Errorf("url is not set in azblob blob config")
		}
	default:
		return errors.Errorf("unknown blob type: %s", cfg.Blob.Type)
	}

	if cfg.Server.IsAuthEnabled && cfg.Server.ServerAuthKey == "" {
		gwlog.Warnf("server_auth_key is empty: server-only controllers are unreachable")
	}
	return nil
}
