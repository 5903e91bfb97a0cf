package embed

import (
	"fmt"
	"os"
	"sync"

	"github.com/iScript/udiscovery/pkg/logutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetLogger returns the logger.
func (cfg Config) GetLogger() *zap.Logger {
	cfg.loggerMu.RLock()
	l := cfg.logger
	cfg.loggerMu.RUnlock()
	return l
}

// setupLogging initializes logging.
// Must be called after flag parsing or finishing configuring embed.Config.
func (cfg *Config) setupLogging() error {
	if cfg.loggerMu == nil {
		cfg.loggerMu = new(sync.RWMutex)
	}
	if len(cfg.LogOutputs) == 0 {
		cfg.LogOutputs = []string{DefaultLogOutput}
	}
	if len(cfg.LogOutputs) > 1 {
		for _, v := range cfg.LogOutputs {
			if v == DefaultLogOutput {
				return fmt.Errorf("multi logoutput for %q is not supported yet", DefaultLogOutput)
			}
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logutil.DefaultLogLevel
	}
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unknown log-level %q: %v", cfg.LogLevel, err)
	}

	outputPaths, errOutputPaths := make([]string, 0), make([]string, 0)
	isJournal := false
	for _, v := range cfg.LogOutputs {
		switch v {
		case DefaultLogOutput, StdErrLogOutput:
			outputPaths = append(outputPaths, StdErrLogOutput)
			errOutputPaths = append(errOutputPaths, StdErrLogOutput)

		case JournalLogOutput:
			isJournal = true

		case StdOutLogOutput:
			outputPaths = append(outputPaths, StdOutLogOutput)
			errOutputPaths = append(errOutputPaths, StdOutLogOutput)

		default:
			outputPaths = append(outputPaths, v)
			errOutputPaths = append(errOutputPaths, v)
		}
	}

	if !isJournal {
		copied := logutil.DefaultZapLoggerConfig
		copied.OutputPaths = outputPaths
		copied.ErrorOutputPaths = errOutputPaths
		copied = logutil.MergeOutputPaths(copied)
		copied.Level = zap.NewAtomicLevelAt(lvl)
		if cfg.ZapLoggerBuilder == nil {
			cfg.ZapLoggerBuilder = func(c *Config) error {
				lg, err := copied.Build()
				if err != nil {
					return err
				}
				c.loggerMu.Lock()
				defer c.loggerMu.Unlock()
				c.logger = lg
				c.loggerConfig = &copied
				return nil
			}
		}
	} else {
		if len(cfg.LogOutputs) > 1 {
			return fmt.Errorf("running with %q but other log-outputs values (%q) are configured", JournalLogOutput, cfg.LogOutputs)
		}

		// use stderr as fallback
		jw, err := logutil.NewJournalWriter(os.Stderr)
		if err != nil {
			return err
		}
		syncer := zapcore.AddSync(jw)

		cr := zapcore.NewCore(
			zapcore.NewJSONEncoder(logutil.DefaultZapLoggerConfig.EncoderConfig),
			syncer,
			zap.NewAtomicLevelAt(lvl),
		)
		if cfg.ZapLoggerBuilder == nil {
			cfg.ZapLoggerBuilder = NewZapLoggerBuilder(zap.New(cr, zap.AddCaller(), zap.ErrorOutput(syncer)))
		}
	}

	return cfg.ZapLoggerBuilder(cfg)
}

// NewZapLoggerBuilder generates a zap logger builder that sets the given
// logger for embedded server.
func NewZapLoggerBuilder(lg *zap.Logger) func(*Config) error {
	return func(cfg *Config) error {
		cfg.loggerMu.Lock()
		defer cfg.loggerMu.Unlock()
		cfg.logger = lg
		return nil
	}
}
