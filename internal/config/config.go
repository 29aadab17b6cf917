package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-gamebanana-install/internal/api"
	"go-gamebanana-install/internal/models"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Default values for configuration
const (
	AppName                    = "gamebanana-installer"
	DefaultConfigFilePath      = "config.toml"
	DefaultDataPath            = "data"
	DefaultStagingDirName      = "download"
	DefaultDatabaseDirName     = "installs.db"
	DefaultBleveIndexDirName   = "mods.bleve"
	DefaultApiLogFileName      = "api.log"
	DefaultListSort            = "new"
	DefaultListPage            = 1
	DefaultPatchExtension      = "xdelta"
	DefaultSevenZipPath        = "7z"
	DefaultXDeltaPath          = "xdelta"
	DefaultAPIClientTimeoutSec = 60
	DefaultDownloadTimeoutSec  = 0
	DefaultModCacheSize        = 128
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultLogApiRequests      = false
	EnvPrefix                  = "GBMOD"
)

// DefaultConfig returns the configuration used when nothing overrides it.
// Derived paths are left empty and filled in by Initialize.
func DefaultConfig() models.Config {
	return models.Config{
		DataPath:            DefaultDataPath,
		ApiBaseUrl:          api.GameBananaApiBaseUrl,
		UserAgent:           api.DefaultUserAgent,
		GameID:              api.DefaultGameID,
		ListSort:            DefaultListSort,
		ListPage:            DefaultListPage,
		PatchExtension:      DefaultPatchExtension,
		SevenZipPath:        DefaultSevenZipPath,
		XDeltaPath:          DefaultXDeltaPath,
		ApiClientTimeoutSec: DefaultAPIClientTimeoutSec,
		DownloadTimeoutSec:  DefaultDownloadTimeoutSec,
		ModCacheSize:        DefaultModCacheSize,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
		LogApiRequests:      DefaultLogApiRequests,
		Torrent: models.TorrentConfig{
			Trackers: []string{},
		},
	}
}

// setViperDefaults configures Viper with the application's default values.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("datapath", d.DataPath)
	v.SetDefault("stagingpath", "")
	v.SetDefault("databasepath", "")
	v.SetDefault("bleveindexpath", "")
	v.SetDefault("apibaseurl", d.ApiBaseUrl)
	v.SetDefault("useragent", d.UserAgent)
	v.SetDefault("gameid", d.GameID)
	v.SetDefault("listsort", d.ListSort)
	v.SetDefault("listpage", d.ListPage)
	v.SetDefault("patchextension", d.PatchExtension)
	v.SetDefault("sevenzippath", d.SevenZipPath)
	v.SetDefault("xdeltapath", d.XDeltaPath)
	v.SetDefault("apiclienttimeoutsec", d.ApiClientTimeoutSec)
	v.SetDefault("downloadtimeoutsec", d.DownloadTimeoutSec)
	v.SetDefault("modcachesize", d.ModCacheSize)
	v.SetDefault("loglevel", d.LogLevel)
	v.SetDefault("logformat", d.LogFormat)
	v.SetDefault("logapirequests", d.LogApiRequests)

	v.SetDefault("torrent.outputdir", "")
	v.SetDefault("torrent.trackers", []string{})
	v.SetDefault("torrent.overwrite", false)
	v.SetDefault("torrent.magnetlinks", false)
}

// CliFlags holds pointers to values received from command-line flags.
// Nil fields indicate the flag was not provided by the user.
type CliFlags struct {
	ConfigFilePath      *string
	LogLevel            *string // --log-level
	LogFormat           *string // --log-format
	LogApiRequests      *bool   // --log-api
	DataPath            *string // --data-path
	StagingPath         *string // --staging-path
	DatabasePath        *string // --database-path
	BleveIndexPath      *string // --bleve-index-path
	ApiBaseUrl          *string // --api-url
	GameID              *int    // --game-id
	APIClientTimeoutSec *int    // --api-timeout
	DownloadTimeoutSec  *int    // --download-timeout
	PatchExtension      *string // --patch-ext
	SevenZipPath        *string // --7z
	XDeltaPath          *string // --xdelta

	List    *CliListFlags
	Torrent *CliTorrentFlags
}

type CliListFlags struct {
	Page *int    // --page
	Sort *string // --sort
}

type CliTorrentFlags struct {
	Trackers    *[]string // --announce
	OutputDir   *string   // -o
	Overwrite   *bool     // -f
	MagnetLinks *bool     // --magnet-links
}

// ConfigSearchPaths returns the locations checked for a config file when no
// --config flag is given, in order.
func ConfigSearchPaths() []string {
	return []string{
		DefaultConfigFilePath,
		filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFilePath),
	}
}

func findConfigFile() string {
	for _, p := range ConfigSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Initialize loads configuration based on defaults, config file, environment and flags.
// Precedence: Flags > Environment > Config File > Defaults.
func Initialize(flags CliFlags) (models.Config, http.RoundTripper, error) {
	finalCfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	configFile := ""
	if flags.ConfigFilePath != nil && *flags.ConfigFilePath != "" {
		configFile = *flags.ConfigFilePath
		log.Debugf("[Initialize] Using config file path from CLI flag: %s", configFile)
	} else {
		configFile = findConfigFile()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warnf("[Initialize] Error reading config file '%s': %v. Using defaults and CLI flags only.", configFile, err)
		} else {
			log.Infof("[Initialize] Loaded config file: %s", v.ConfigFileUsed())
		}
	} else {
		log.Debugf("[Initialize] No config file found in %v, using defaults", ConfigSearchPaths())
	}

	if err := v.Unmarshal(&finalCfg); err != nil {
		log.Errorf("[Initialize] Failed to unmarshal config from Viper: %v", err)
		return models.Config{}, nil, fmt.Errorf("failed to unmarshal config from viper: %w", err)
	}

	applyFlags(&finalCfg, flags)
	deriveDefaultPaths(&finalCfg)

	if err := Validate(finalCfg); err != nil {
		return models.Config{}, nil, err
	}

	transport := buildTransport(finalCfg)
	log.Debug("Configuration initialized successfully.")
	return finalCfg, transport, nil
}

func applyFlags(cfg *models.Config, flags CliFlags) {
	setString := func(dst *string, src *string, name string) {
		if src != nil {
			log.Debugf("[Initialize] Overriding %s from flag: '%s'", name, *src)
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int, name string) {
		if src != nil {
			log.Debugf("[Initialize] Overriding %s from flag: %d", name, *src)
			*dst = *src
		}
	}

	setString(&cfg.LogLevel, flags.LogLevel, "LogLevel")
	setString(&cfg.LogFormat, flags.LogFormat, "LogFormat")
	setString(&cfg.DataPath, flags.DataPath, "DataPath")
	setString(&cfg.StagingPath, flags.StagingPath, "StagingPath")
	setString(&cfg.DatabasePath, flags.DatabasePath, "DatabasePath")
	setString(&cfg.BleveIndexPath, flags.BleveIndexPath, "BleveIndexPath")
	setString(&cfg.ApiBaseUrl, flags.ApiBaseUrl, "ApiBaseUrl")
	setString(&cfg.PatchExtension, flags.PatchExtension, "PatchExtension")
	setString(&cfg.SevenZipPath, flags.SevenZipPath, "SevenZipPath")
	setString(&cfg.XDeltaPath, flags.XDeltaPath, "XDeltaPath")
	setInt(&cfg.GameID, flags.GameID, "GameID")
	setInt(&cfg.ApiClientTimeoutSec, flags.APIClientTimeoutSec, "ApiClientTimeoutSec")
	setInt(&cfg.DownloadTimeoutSec, flags.DownloadTimeoutSec, "DownloadTimeoutSec")
	if flags.LogApiRequests != nil {
		cfg.LogApiRequests = *flags.LogApiRequests
	}

	if flags.List != nil {
		setInt(&cfg.ListPage, flags.List.Page, "ListPage")
		setString(&cfg.ListSort, flags.List.Sort, "ListSort")
	}

	if flags.Torrent != nil {
		setString(&cfg.Torrent.OutputDir, flags.Torrent.OutputDir, "Torrent.OutputDir")
		if flags.Torrent.Trackers != nil && len(*flags.Torrent.Trackers) > 0 {
			cfg.Torrent.Trackers = *flags.Torrent.Trackers
		}
		if flags.Torrent.Overwrite != nil {
			cfg.Torrent.Overwrite = *flags.Torrent.Overwrite
		}
		if flags.Torrent.MagnetLinks != nil {
			cfg.Torrent.MagnetLinks = *flags.Torrent.MagnetLinks
		}
	}
}

// deriveDefaultPaths fills the paths that default to locations under DataPath.
func deriveDefaultPaths(cfg *models.Config) {
	cfg.PatchExtension = strings.TrimPrefix(cfg.PatchExtension, ".")
	if cfg.StagingPath == "" {
		cfg.StagingPath = filepath.Join(cfg.DataPath, DefaultStagingDirName)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataPath, DefaultDatabaseDirName)
	}
	if cfg.BleveIndexPath == "" {
		cfg.BleveIndexPath = filepath.Join(cfg.DataPath, DefaultBleveIndexDirName)
	}
	log.Debugf("[Initialize] Paths: staging=%s database=%s index=%s", cfg.StagingPath, cfg.DatabasePath, cfg.BleveIndexPath)
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg models.Config) error {
	var errs []error
	if cfg.DataPath == "" {
		errs = append(errs, errors.New("DataPath cannot be empty (set via --data-path flag or DataPath in config)"))
	}
	if cfg.GameID <= 0 {
		errs = append(errs, fmt.Errorf("GameID must be positive, got %d", cfg.GameID))
	}
	if cfg.ListPage < 1 {
		errs = append(errs, fmt.Errorf("ListPage must be at least 1, got %d", cfg.ListPage))
	}
	if cfg.PatchExtension == "" {
		errs = append(errs, errors.New("PatchExtension cannot be empty"))
	}
	if cfg.ApiClientTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("ApiClientTimeoutSec cannot be negative, got %d", cfg.ApiClientTimeoutSec))
	}
	if cfg.DownloadTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("DownloadTimeoutSec cannot be negative, got %d", cfg.DownloadTimeoutSec))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func buildTransport(cfg models.Config) http.RoundTripper {
	baseTransport := http.DefaultTransport
	if !cfg.LogApiRequests {
		return baseTransport
	}

	logFilePath := DefaultApiLogFileName
	if err := os.MkdirAll(cfg.DataPath, 0750); err == nil {
		logFilePath = filepath.Join(cfg.DataPath, DefaultApiLogFileName)
	} else {
		log.WithError(err).Warnf("DataPath '%s' not usable, saving %s to current directory.", cfg.DataPath, DefaultApiLogFileName)
	}
	log.Infof("API logging to file: %s", logFilePath)

	loggingTransport, err := api.NewLoggingTransport(baseTransport, logFilePath)
	if err != nil {
		log.WithError(err).Error("Failed to initialize API logging transport, logging disabled.")
		return baseTransport
	}
	return loggingTransport
}

// NewHTTPClients returns the client used for metadata requests and the one used
// for archive downloads. Both share transport.
func NewHTTPClients(cfg models.Config, transport http.RoundTripper) (*http.Client, *http.Client) {
	apiClient := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.ApiClientTimeoutSec) * time.Second,
	}
	downloadClient := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.DownloadTimeoutSec) * time.Second,
	}
	return apiClient, downloadClient
}

// WriteDefaultConfig writes the default configuration as TOML to path. Paths
// derived from DataPath are written empty so they keep following it. An
// existing file is only replaced when overwrite is set.
func WriteDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
	}

	cfg := DefaultConfig()

	// #nosec G304
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config to %s: %w", path, err)
	}
	log.Infof("Wrote default configuration to %s", path)
	return nil
}

// UserConfigPath is where `config init` writes by default.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFilePath)
}
