package global

import "time"

// BinaryVersion is the release version stamped into both binaries.
const BinaryVersion = "0.4.1"

// All constants shared by the agent and server binaries.
const (
	// CoverageExchange is the durable topic exchange coverage reports flow through.
	CoverageExchange = "coverage_exchange"
	// CoverageQueue is the queue the ingestion pipeline consumes.
	CoverageQueue = "coverage_queue"
	// CoverageRoutingKey routes report envelopes on the exchange.
	CoverageRoutingKey = "coverage.report"
	// RetryHeaderKey carries the redelivery attempt count in message headers.
	RetryHeaderKey = "x-retry-count"
	// MaxRetryCount bounds store-error redeliveries; beyond it the message is
	// dropped with a permanent-failure log.
	MaxRetryCount = 10

	// ManagementAPIPort is the broker management API port used by the HTTP bridge.
	ManagementAPIPort = "15672"
	// ManagementPublishPath is the management API publish endpoint for the
	// coverage exchange on the default vhost.
	ManagementPublishPath = "/api/exchanges/%2F/" + CoverageExchange + "/publish"

	DefaultHTTPTimeout     = 30 * time.Second
	DefaultGitTimeout      = 60 * time.Second
	DefaultFlushInterval   = 60 * time.Second
	DefaultConsumerWorkers = 4

	// DefaultFingerprintFile is where the agent persists its last published digest.
	DefaultFingerprintFile = ".coverhub_fingerprint"

	// DefaultBaseBranch is assumed when a repository config carries none.
	DefaultBaseBranch = "master"
)
