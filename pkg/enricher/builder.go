package enricher

import (
	"fmt"
	"strings"
	"time"

	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/keyword"
	"keyword-enricher/pkg/logger"
)

// Builder assembles an Enricher and collects every configuration error
// instead of stopping at the first one
type Builder struct {
	poster           api.Poster
	mode             api.Mode
	batchSize        int
	normalize        keyword.Options
	observer         RunObserver
	progressInterval time.Duration
	log              *logger.Logger
	errors           []error
}

// NewBuilder creates a builder with the default mode, batch size and keyword limits
func NewBuilder() *Builder {
	return &Builder{
		mode:             api.ModeAds,
		batchSize:        100,
		normalize:        keyword.DefaultOptions(),
		observer:         nopRunObserver{},
		progressInterval: 5 * time.Second,
		errors:           make([]error, 0),
	}
}

// WithPoster sets the API client every batch is sent through
func (b *Builder) WithPoster(p api.Poster) *Builder {
	b.poster = p
	return b
}

// WithMode sets which endpoint families are called (ads, clickstream, dual)
func (b *Builder) WithMode(mode string) *Builder {
	m, err := api.ParseMode(mode)
	if err != nil {
		b.errors = append(b.errors, err)
		return b
	}
	b.mode = m
	return b
}

// WithBatchSize sets the requested keywords per call; it is clamped to the endpoint limit
func (b *Builder) WithBatchSize(size int) *Builder {
	if size <= 0 {
		b.errors = append(b.errors, fmt.Errorf("batch size must be positive, got: %d", size))
		return b
	}
	b.batchSize = size
	return b
}

// WithNormalizeOptions sets keyword length and word-count limits
func (b *Builder) WithNormalizeOptions(opts keyword.Options) *Builder {
	if opts.MinLength < 1 {
		b.errors = append(b.errors, fmt.Errorf("minimum keyword length must be at least 1, got: %d", opts.MinLength))
		return b
	}
	if opts.MaxLength < opts.MinLength {
		b.errors = append(b.errors, fmt.Errorf("maximum keyword length %d is below minimum %d", opts.MaxLength, opts.MinLength))
		return b
	}
	if opts.MaxWords < 1 {
		b.errors = append(b.errors, fmt.Errorf("maximum word count must be positive, got: %d", opts.MaxWords))
		return b
	}
	b.normalize = opts
	return b
}

// WithObserver routes run events to o (e.g. the Prometheus recorder)
func (b *Builder) WithObserver(o RunObserver) *Builder {
	if o != nil {
		b.observer = o
	}
	return b
}

// WithProgressInterval sets how often batch progress is logged
func (b *Builder) WithProgressInterval(d time.Duration) *Builder {
	if d < 0 {
		b.errors = append(b.errors, fmt.Errorf("progress interval cannot be negative, got: %s", d))
		return b
	}
	b.progressInterval = d
	return b
}

// WithLogger sets the logger runs write to
func (b *Builder) WithLogger(l *logger.Logger) *Builder {
	b.log = l
	return b
}

// Validate checks all configuration and returns any validation errors
func (b *Builder) Validate() error {
	errs := append([]error(nil), b.errors...)
	if b.poster == nil {
		errs = append(errs, fmt.Errorf("API client is required"))
	}
	if len(errs) == 0 {
		return nil
	}

	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("enricher configuration invalid: %s", strings.Join(messages, "; "))
}

// Build creates the Enricher with validated configuration
func (b *Builder) Build() (*Enricher, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	l := b.log
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.WithField("component", "enricher")

	return &Enricher{
		poster:           b.poster,
		normalizer:       keyword.NewNormalizer(b.normalize),
		mode:             b.mode,
		endpoints:        api.EndpointsFor(b.mode),
		batchSize:        b.batchSize,
		observer:         b.observer,
		progressInterval: b.progressInterval,
		log:              l,
		secureLog:        logger.NewSecurityLogger(l),
	}, nil
}
