package leaderboard

import (
	"errors"
	"fmt"
	"strings"

	"tierank/core"
)

const (
	DefaultPageSize            = 25
	DefaultKeyDelimiter        = ":"
	DefaultTiesNamespace       = "ties"
	DefaultMemberDataNamespace = "member_data"
)

var (
	ErrEmptyName       = errors.New("leaderboard name is required")
	ErrEmptyMember     = errors.New("member is required")
	ErrInvalidScore    = errors.New("invalid score")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrInvalidRange    = errors.New("range minimum exceeds maximum")
	ErrInvalidTTL      = errors.New("expiration must be positive")
)

// Config holds per-leaderboard settings.
type Config struct {
	PageSize            int            `json:"page_size" env:"TIERANK_LEADERBOARD_PAGE_SIZE"`
	Order               core.SortOrder `json:"order" env:"TIERANK_LEADERBOARD_ORDER"`
	KeyDelimiter        string         `json:"key_delimiter" env:"TIERANK_LEADERBOARD_KEY_DELIMITER"`
	TiesNamespace       string         `json:"ties_namespace" env:"TIERANK_LEADERBOARD_TIES_NAMESPACE"`
	MemberDataNamespace string         `json:"member_data_namespace" env:"TIERANK_LEADERBOARD_MEMBER_DATA_NAMESPACE"`
}

// DefaultConfig returns a descending board with 25 members per page.
func DefaultConfig() Config {
	return Config{
		PageSize:            DefaultPageSize,
		Order:               core.Descending,
		KeyDelimiter:        DefaultKeyDelimiter,
		TiesNamespace:       DefaultTiesNamespace,
		MemberDataNamespace: DefaultMemberDataNamespace,
	}
}

// Normalize fills zero fields from DefaultConfig.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.Order == "" {
		c.Order = d.Order
	}
	if c.KeyDelimiter == "" {
		c.KeyDelimiter = d.KeyDelimiter
	}
	if c.TiesNamespace == "" {
		c.TiesNamespace = d.TiesNamespace
	}
	if c.MemberDataNamespace == "" {
		c.MemberDataNamespace = d.MemberDataNamespace
	}
	return c
}

// Validate validates leaderboard configuration
func (c Config) Validate() error {
	var errs []string
	if c.PageSize <= 0 {
		errs = append(errs, "page_size must be positive")
	}
	if !c.Order.Valid() {
		errs = append(errs, fmt.Sprintf("order must be one of: %s, %s", core.Descending, core.Ascending))
	}
	if c.KeyDelimiter == "" {
		errs = append(errs, "key_delimiter cannot be empty")
	}
	if c.TiesNamespace == "" || c.MemberDataNamespace == "" {
		errs = append(errs, "namespaces cannot be empty")
	} else if c.TiesNamespace == c.MemberDataNamespace {
		errs = append(errs, "ties_namespace and member_data_namespace must differ")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ReadOption tunes a single read call.
type ReadOption func(*readOptions)

type readOptions struct {
	pageSize   int
	withData   bool
	invalidArg bool
}

// WithPageSize overrides the configured page size for one call.
func WithPageSize(n int) ReadOption {
	return func(o *readOptions) {
		if n <= 0 {
			o.invalidArg = true
			return
		}
		o.pageSize = n
	}
}

// WithMemberData attaches stored member data to each returned record.
func WithMemberData() ReadOption { return func(o *readOptions) { o.withData = true } }

func (l *TieRanking) readOptions(opts []ReadOption) (readOptions, error) {
	o := readOptions{pageSize: l.cfg.PageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.invalidArg {
		return o, ErrInvalidPageSize
	}
	return o, nil
}
