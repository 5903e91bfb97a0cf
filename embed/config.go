package embed

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/lease"
	"github.com/iScript/udiscovery/pkg/flags"
	"github.com/iScript/udiscovery/pkg/logutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"
)

const (
	DefaultName                  = "default"
	DefaultBackend               = backend.KindBolt
	DefaultMaxRequestBytes       = discoveryserver.DefaultMaxRequestBytes
	DefaultGRPCKeepAliveMinTime  = 5 * time.Second
	DefaultGRPCKeepAliveInterval = 2 * time.Hour
	DefaultGRPCKeepAliveTimeout  = 20 * time.Second
	DefaultShutdownTimeout       = 5 * time.Second

	DefaultListenClientURLs = "http://localhost:2479"

	DefaultLogOutput = "default"
	JournalLogOutput = "systemd/journal"
	StdErrLogOutput  = "stderr"
	StdOutLogOutput  = "stdout"
)

// Config holds the arguments for configuring a discovery daemon.
type Config struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"data-dir"`

	// Backend is one of bolt, badger, file or memory.
	Backend           string `yaml:"backend"`
	SnapshotFile      string `yaml:"snapshot-file"`
	BackendMmapSize   uint64 `yaml:"backend-bbolt-mmap-size"`
	BackendSyncWrites bool   `yaml:"backend-sync-writes"`

	SweepInterval      time.Duration `yaml:"sweep-interval"`
	ExpireRate         int           `yaml:"expire-rate"`
	QuotaSnapshotBytes int64         `yaml:"quota-snapshot-bytes"`
	MaxRequestBytes    uint          `yaml:"max-request-bytes"`
	NotificationBuffer int           `yaml:"notification-buffer"`

	LCUrls            []url.URL `yaml:"-"`
	ListenMetricsUrls []url.URL `yaml:"-"`

	// GRPCKeepAliveMinTime is the minimum interval that a client should
	// wait before pinging server. When client pings "too fast", server
	// sends goaway and closes the connection (errors: too_many_pings,
	// http2.ErrCodeEnhanceYourCalm). When too slow, nothing happens.
	// Server expects client pings only when there is any active streams
	// (PermitWithoutStream is set false).
	GRPCKeepAliveMinTime time.Duration `yaml:"grpc-keepalive-min-time"`
	// GRPCKeepAliveInterval is the frequency of server-to-client ping
	// to check if a connection is alive. Close a non-responsive connection
	// after an additional duration of Timeout. 0 to disable.
	GRPCKeepAliveInterval time.Duration `yaml:"grpc-keepalive-interval"`
	// GRPCKeepAliveTimeout is the additional duration of wait
	// before closing a non-responsive connection. 0 to disable.
	GRPCKeepAliveTimeout time.Duration `yaml:"grpc-keepalive-timeout"`

	// ShutdownTimeout bounds how long Close waits for in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`

	CORS map[string]struct{} `yaml:"-"`

	// UserHandlers is for registering users handlers and only used for
	// embedding the daemon into other applications.
	// The map key is the route path for the handler, and
	// you must ensure it can't be conflicted with the built-in ones.
	UserHandlers map[string]http.Handler `yaml:"-"`
	// ServiceRegister is for registering users' gRPC services.
	ServiceRegister func(*grpc.Server) `yaml:"-"`

	EnablePprof bool `yaml:"enable-pprof"`
	// Metrics is "basic" or "extensive". Extensive adds gRPC handling
	// time histograms.
	Metrics string `yaml:"metrics"`

	// LogLevel configures log level. Only supports debug, info, warn, error, panic, or fatal.
	LogLevel string `yaml:"log-level"`
	// LogOutputs is either:
	//  - "default" as os.Stderr,
	//  - "stderr" as os.Stderr,
	//  - "stdout" as os.Stdout,
	//  - "systemd/journal" as the local journal,
	//  - file path to append server logs to.
	LogOutputs []string `yaml:"log-outputs"`

	// ZapLoggerBuilder is used to build the zap logger.
	ZapLoggerBuilder func(*Config) error `yaml:"-"`

	loggerMu *sync.RWMutex
	logger   *zap.Logger
	// loggerConfig is set when the logger was built from a zap.Config.
	loggerConfig *zap.Config
}

// configYAML holds the config suitable for yaml parsing
type configYAML struct {
	Config            `yaml:",inline"`
	ListenClientUrls  string `yaml:"listen-client-urls"`
	ListenMetricsUrls string `yaml:"listen-metrics-urls"`
	CORS              string `yaml:"cors"`
}

// NewConfig creates a new Config populated with default values.
func NewConfig() *Config {
	lcurl, _ := url.Parse(DefaultListenClientURLs)
	cfg := &Config{
		Name:    DefaultName,
		Backend: DefaultBackend,

		SweepInterval:      lease.DefaultSweepInterval,
		ExpireRate:         lease.DefaultExpireRate,
		MaxRequestBytes:    DefaultMaxRequestBytes,
		NotificationBuffer: discoveryserver.DefaultNotificationBuffer,

		GRPCKeepAliveMinTime:  DefaultGRPCKeepAliveMinTime,
		GRPCKeepAliveInterval: DefaultGRPCKeepAliveInterval,
		GRPCKeepAliveTimeout:  DefaultGRPCKeepAliveTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,

		LCUrls: []url.URL{*lcurl},

		CORS:    map[string]struct{}{"*": {}},
		Metrics: "basic",

		loggerMu:   new(sync.RWMutex),
		LogLevel:   logutil.DefaultLogLevel,
		LogOutputs: []string{DefaultLogOutput},
	}
	return cfg
}

// ConfigFromFile loads a YAML config file over the defaults.
func ConfigFromFile(path string) (*Config, error) {
	cfg := &configYAML{Config: *NewConfig()}
	if err := cfg.configFromFile(path); err != nil {
		return nil, err
	}
	return &cfg.Config, nil
}

func (cfg *configYAML) configFromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	defaultLCURLs := cfg.LCUrls
	if err = yaml.Unmarshal(b, cfg); err != nil {
		return err
	}

	if cfg.ListenClientUrls != "" {
		u, err := flags.ParseURLs(strings.Split(cfg.ListenClientUrls, ","))
		if err != nil {
			return fmt.Errorf("unexpected error setting up listen-client-urls: %v", err)
		}
		cfg.LCUrls = u
	} else {
		cfg.LCUrls = defaultLCURLs
	}

	if cfg.ListenMetricsUrls != "" {
		u, err := flags.ParseURLs(strings.Split(cfg.ListenMetricsUrls, ","))
		if err != nil {
			return fmt.Errorf("unexpected error setting up listen-metrics-urls: %v", err)
		}
		cfg.Config.ListenMetricsUrls = u
	}

	if cfg.CORS != "" {
		cfg.Config.CORS = make(map[string]struct{})
		for _, v := range strings.Split(cfg.CORS, ",") {
			cfg.Config.CORS[strings.TrimSpace(v)] = struct{}{}
		}
	}
	return cfg.Validate()
}

// Validate ensures that '*embed.Config' fields are properly configured.
func (cfg *Config) Validate() error {
	if err := cfg.setupLogging(); err != nil {
		return err
	}
	if len(cfg.LCUrls) == 0 {
		return fmt.Errorf("at least one listen-client-url is required")
	}
	if cfg.Metrics != "basic" && cfg.Metrics != "extensive" {
		return fmt.Errorf("unknown metrics %q (want basic or extensive)", cfg.Metrics)
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep-interval %v must be positive", cfg.SweepInterval)
	}
	sc := cfg.serverConfig()
	return sc.VerifyBootstrap()
}

func (cfg *Config) serverConfig() discoveryserver.ServerConfig {
	return discoveryserver.ServerConfig{
		Name:               cfg.Name,
		DataDir:            cfg.Dir,
		BackendKind:        cfg.Backend,
		SnapshotFile:       cfg.SnapshotFile,
		BackendMmapSize:    cfg.BackendMmapSize,
		BackendSyncWrites:  cfg.BackendSyncWrites,
		SweepInterval:      cfg.SweepInterval,
		ExpireRate:         cfg.ExpireRate,
		QuotaSnapshotBytes: cfg.QuotaSnapshotBytes,
		MaxRequestBytes:    cfg.MaxRequestBytes,
		NotificationBuffer: cfg.NotificationBuffer,
		Logger:             cfg.GetLogger(),
		Debug:              cfg.GetLogger().Core().Enabled(zapcore.DebugLevel),
	}
}

func (cfg *Config) getLCURLs() (ss []string) {
	ss = make([]string, len(cfg.LCUrls))
	for i := range cfg.LCUrls {
		ss[i] = cfg.LCUrls[i].String()
	}
	return ss
}

func (cfg *Config) getMetricsURLs() (ss []string) {
	ss = make([]string, len(cfg.ListenMetricsUrls))
	for i := range cfg.ListenMetricsUrls {
		ss[i] = cfg.ListenMetricsUrls[i].String()
	}
	return ss
}
