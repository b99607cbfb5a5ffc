package ownership

// Config holds the pagination settings of ownership loads.
type Config struct {
	// PageSize is the number of ids requested per listing call.
	PageSize int `mapstructure:"page_size" default:"10"`
	// EmitEvery is the number of new ids between progress snapshots.
	EmitEvery int `mapstructure:"emit_every" default:"10"`
}

// Options converts the configuration into loader options.
func (c Config) Options() []Option {
	return []Option{WithPageSize(c.PageSize), WithEmitEvery(c.EmitEvery)}
}
