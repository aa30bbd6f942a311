package container

// Options are the parse policies shared by all parsers.
type Options struct {
	// AcceptTruncated clamps chunks whose declared size goes past the
	// enclosing chunk instead of failing the parse.
	AcceptTruncated bool
}

// Option changes Options.
type Option func(*Options)

// AcceptTruncated sets the truncation-tolerant mode.
func AcceptTruncated(val bool) Option {
	return func(o *Options) {
		o.AcceptTruncated = val
	}
}

// NewOptions applies opts to the default Options.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
