package discoverymain

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/iScript/udiscovery/backend"
	"github.com/iScript/udiscovery/embed"
	"github.com/iScript/udiscovery/pkg/flags"
	"github.com/iScript/udiscovery/version"

	"go.uber.org/zap"
)

const envPrefix = "UDISCOVERY"

var (
	ignored = []string{
		// for coverage testing
		"test.coverprofile",
		"test.outputdir",
	}
)

// config holds the config for a command line invocation of udiscovery
type config struct {
	ec           embed.Config
	cf           configFlags
	configFile   string
	printVersion bool
	ignored      []string
}

// configFlags has the set of flags used for command line parsing a Config
type configFlags struct {
	flagSet *flag.FlagSet
	backend *flags.SelectiveStringValue
	metrics *flags.SelectiveStringValue
}

func newConfig() *config {
	cfg := &config{
		ec:      *embed.NewConfig(),
		ignored: ignored,
	}
	cfg.cf = configFlags{
		flagSet: flag.NewFlagSet("udiscovery", flag.ContinueOnError),
		backend: flags.NewSelectiveStringValue(
			backend.KindBolt,
			backend.KindBadger,
			backend.KindFile,
			backend.KindMemory,
		),
		metrics: flags.NewSelectiveStringValue("basic", "extensive"),
	}

	fs := cfg.cf.flagSet
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usageline)
	}

	fs.StringVar(&cfg.configFile, "config-file", "", "Path to the server configuration file. Note that if a configuration file is provided, other command line flags and environment variables will be ignored.")

	// member
	fs.StringVar(&cfg.ec.Name, "name", cfg.ec.Name, "Human-readable name for this server.")
	fs.StringVar(&cfg.ec.Dir, "data-dir", cfg.ec.Dir, "Path to the data directory.")
	fs.Var(
		flags.NewUniqueURLsWithExceptions(embed.DefaultListenClientURLs, ""),
		"listen-client-urls",
		"List of URLs to listen on for client traffic.",
	)
	fs.Var(
		flags.NewUniqueURLsWithExceptions("", ""),
		"listen-metrics-urls",
		"List of URLs to listen on for the metrics and health endpoints.",
	)
	fs.UintVar(&cfg.ec.MaxRequestBytes, "max-request-bytes", cfg.ec.MaxRequestBytes, "Maximum client request size in bytes the server will accept.")
	fs.DurationVar(&cfg.ec.GRPCKeepAliveMinTime, "grpc-keepalive-min-time", cfg.ec.GRPCKeepAliveMinTime, "Minimum interval duration that a client should wait before pinging server.")
	fs.DurationVar(&cfg.ec.GRPCKeepAliveInterval, "grpc-keepalive-interval", cfg.ec.GRPCKeepAliveInterval, "Frequency duration of server-to-client ping to check if a connection is alive (0 to disable).")
	fs.DurationVar(&cfg.ec.GRPCKeepAliveTimeout, "grpc-keepalive-timeout", cfg.ec.GRPCKeepAliveTimeout, "Additional duration of wait before closing a non-responsive connection (0 to disable).")
	fs.DurationVar(&cfg.ec.ShutdownTimeout, "shutdown-timeout", cfg.ec.ShutdownTimeout, "Time to wait for in-flight requests on shutdown.")

	// storage
	fs.Var(cfg.cf.backend, "backend", fmt.Sprintf("Snapshot backend: %q.", cfg.cf.backend.Valids()))
	fs.StringVar(&cfg.ec.SnapshotFile, "snapshot-file", cfg.ec.SnapshotFile, "Snapshot path of the file backend, relative to the data directory.")
	fs.Uint64Var(&cfg.ec.BackendMmapSize, "backend-bbolt-mmap-size", cfg.ec.BackendMmapSize, "Initial mmap size of the bolt backend.")
	fs.BoolVar(&cfg.ec.BackendSyncWrites, "backend-sync-writes", cfg.ec.BackendSyncWrites, "Sync every badger backend write to disk.")
	fs.Int64Var(&cfg.ec.QuotaSnapshotBytes, "quota-snapshot-bytes", cfg.ec.QuotaSnapshotBytes, "Raise alarms when the snapshot size exceeds the given quota. 0 means no quota.")

	// expiry and notifications
	fs.DurationVar(&cfg.ec.SweepInterval, "sweep-interval", cfg.ec.SweepInterval, "Time between expiry sweeps.")
	fs.IntVar(&cfg.ec.ExpireRate, "expire-rate", cfg.ec.ExpireRate, "Maximum number of nodes expired per second.")
	fs.IntVar(&cfg.ec.NotificationBuffer, "notification-buffer", cfg.ec.NotificationBuffer, "Per-observer queue length of notification streams.")

	// logging
	fs.StringVar(&cfg.ec.LogLevel, "log-level", cfg.ec.LogLevel, "Configures log level. Only supports debug, info, warn, error, panic, or fatal.")
	fs.Var(flags.NewStringsValue(embed.DefaultLogOutput), "log-outputs", "Specify 'stdout' or 'stderr' to skip journald logging even when running under systemd, or list of comma separated output targets.")

	// version
	fs.BoolVar(&cfg.printVersion, "version", false, "Print the version and exit.")

	// profiling and monitoring
	fs.BoolVar(&cfg.ec.EnablePprof, "enable-pprof", false, "Enable runtime profiling data via HTTP server. Address is at client URL + \"/debug/pprof/\"")
	fs.Var(cfg.cf.metrics, "metrics", "Set level of detail for exported metrics, specify 'extensive' to include server side grpc histogram metrics.")

	// ignored
	for _, f := range cfg.ignored {
		fs.Var(&flags.IgnoredFlag{Name: f}, f, "")
	}
	return cfg
}

func (cfg *config) parse(arguments []string) error {
	perr := cfg.cf.flagSet.Parse(arguments)
	switch perr {
	case nil:
	case flag.ErrHelp:
		fmt.Println(flagsline)
		os.Exit(0)
	default:
		os.Exit(2)
	}
	if len(cfg.cf.flagSet.Args()) != 0 {
		return fmt.Errorf("'%s' is not a valid flag", cfg.cf.flagSet.Arg(0))
	}

	if cfg.printVersion {
		printVersion(os.Stdout)
		os.Exit(0)
	}

	var err error

	// This env variable must be parsed separately
	// because we need to determine whether to use or
	// ignore the env variables based on if the config file is set.
	if cfg.configFile == "" {
		cfg.configFile = os.Getenv(flags.FlagToEnv(envPrefix, "config-file"))
	}

	if cfg.configFile != "" {
		err = cfg.configFromFile(cfg.configFile)
		if lg := cfg.ec.GetLogger(); lg != nil {
			lg.Info(
				"loaded server configuration, other configuration command line flags and environment variables will be ignored if provided",
				zap.String("path", cfg.configFile),
			)
		} else {
			plog.Infof("Loading server configuration from %q. Other configuration command line flags and environment variables will be ignored if provided.", cfg.configFile)
		}
	} else {
		err = cfg.configFromCmdLine()
	}
	// now logger is set up
	return err
}

func (cfg *config) configFromCmdLine() error {
	err := flags.SetFlagsFromEnv(envPrefix, cfg.cf.flagSet)
	if err != nil {
		return err
	}

	cfg.ec.LCUrls = flags.UniqueURLsFromFlag(cfg.cf.flagSet, "listen-client-urls")
	cfg.ec.ListenMetricsUrls = flags.UniqueURLsFromFlag(cfg.cf.flagSet, "listen-metrics-urls")
	cfg.ec.LogOutputs = flags.StringsFromFlag(cfg.cf.flagSet, "log-outputs")
	cfg.ec.Backend = cfg.cf.backend.String()
	cfg.ec.Metrics = cfg.cf.metrics.String()

	cfg.defaultDataDir()
	return cfg.validate()
}

func (cfg *config) configFromFile(path string) error {
	ec, err := embed.ConfigFromFile(path)
	if err != nil {
		return err
	}
	cfg.ec = *ec
	return nil
}

// defaultDataDir names the data directory after the server when none is
// given and the backend needs one.
func (cfg *config) defaultDataDir() {
	if cfg.ec.Dir == "" && cfg.ec.Backend != backend.KindMemory {
		cfg.ec.Dir = fmt.Sprintf("%v.udiscovery", cfg.ec.Name)
	}
}

func (cfg *config) validate() error {
	return cfg.ec.Validate()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "udiscovery Version: %s\n", version.Version)
	fmt.Fprintf(w, "Git SHA: %s\n", version.GitSHA)
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "Go OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
