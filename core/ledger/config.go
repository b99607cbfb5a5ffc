package ledger

const (
	DriverRPC    = "rpc"
	DriverSQL    = "sql"
	DriverMemory = "memory"
)

// Config holds configuration for the ledger connection.
type Config struct {
	// Driver selects the ledger adapter (rpc, sql, memory).
	Driver string `mapstructure:"driver" default:"rpc"`
	// Endpoint is the JSON-RPC endpoint of the ledger gateway.
	Endpoint string `mapstructure:"endpoint" default:"http://localhost:8545"`
	// TimeoutSeconds bounds every ledger call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// Retries is the number of attempts for read calls.
	Retries int `mapstructure:"retries" default:"3"`
	// UserAgent is sent with every RPC request.
	UserAgent string `mapstructure:"user_agent" default:"domain-manager/dev"`
}

// IsValidDriver checks if the configured driver is supported.
func (c Config) IsValidDriver() bool {
	switch c.Driver {
	case DriverRPC, DriverSQL, DriverMemory:
		return true
	default:
		return false
	}
}
