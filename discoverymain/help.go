package discoverymain

import (
	"strconv"

	"github.com/iScript/udiscovery/discoveryserver"
	"github.com/iScript/udiscovery/embed"
	"github.com/iScript/udiscovery/lease"
)

var (
	usageline = `Usage:

  udiscovery [flags]
    Start a udiscovery server.

  udiscovery --version
    Show the version of udiscovery.

  udiscovery -h | --help
    Show the help information about udiscovery.

  udiscovery --config-file
    Path to the server configuration file. Note that if a configuration file is provided, other command line flags and environment variables will be ignored.
`
	flagsline = `
Server:
  --name '` + embed.DefaultName + `'
    Human-readable name for this server.
  --data-dir '${name}.udiscovery'
    Path to the data directory.
  --listen-client-urls '` + embed.DefaultListenClientURLs + `'
    List of URLs to listen on for client traffic. Use unix:///path for a unix socket.
  --listen-metrics-urls ''
    List of URLs to listen on for the /metrics and /health endpoints.
  --max-request-bytes '` + strconv.FormatUint(embed.DefaultMaxRequestBytes, 10) + `'
    Maximum client request size in bytes the server will accept.
  --grpc-keepalive-min-time '` + embed.DefaultGRPCKeepAliveMinTime.String() + `'
    Minimum duration interval that a client should wait before pinging server.
  --grpc-keepalive-interval '` + embed.DefaultGRPCKeepAliveInterval.String() + `'
    Frequency duration of server-to-client ping to check if a connection is alive (0 to disable).
  --grpc-keepalive-timeout '` + embed.DefaultGRPCKeepAliveTimeout.String() + `'
    Additional duration of wait before closing a non-responsive connection (0 to disable).
  --shutdown-timeout '` + embed.DefaultShutdownTimeout.String() + `'
    Time to wait for in-flight requests on shutdown.

Storage:
  --backend 'bolt'
    Snapshot backend: 'bolt', 'badger', 'file' or 'memory'.
  --snapshot-file 'udiscovery.snap'
    Snapshot path of the file backend, relative to the data directory.
  --backend-bbolt-mmap-size '0'
    Initial mmap size of the bolt backend; 0 uses the backend default.
  --backend-sync-writes 'false'
    Sync every badger backend write to disk.
  --quota-snapshot-bytes '0'
    Reject additions once the snapshot would exceed this many bytes. 0 means no quota.

Expiry and notifications:
  --sweep-interval '` + lease.DefaultSweepInterval.String() + `'
    Time between expiry sweeps.
  --expire-rate '` + strconv.Itoa(lease.DefaultExpireRate) + `'
    Maximum number of nodes expired per second.
  --notification-buffer '` + strconv.Itoa(discoveryserver.DefaultNotificationBuffer) + `'
    Per-observer queue length of notification streams.

Logging:
  --log-level 'info'
    Configures log level. Only supports debug, info, warn, error, panic, or fatal.
  --log-outputs 'default'
    Specify 'stdout' or 'stderr' to skip journald logging even when running under systemd, or list of comma separated output targets.

Profiling and Monitoring:
  --enable-pprof 'false'
    Enable runtime profiling data via HTTP server. Address is at client URL + "/debug/pprof/"
  --metrics 'basic'
    Set level of detail for exported metrics, specify 'extensive' to include server side grpc histogram metrics.

Every flag can also be set with an environment variable named after it,
for example UDISCOVERY_DATA_DIR for --data-dir.
`
)
