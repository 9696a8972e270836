// Package fingerprint derives identifiers for anonymous visitors.
package fingerprint

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Request headers the web client sends with its environment signals
const (
	HeaderColorDepth     = "X-Color-Depth"
	HeaderScreenSize     = "X-Screen-Size"
	HeaderTimezoneOffset = "X-Timezone-Offset"
	HeaderCanvasDigest   = "X-Canvas-Digest"
)

// Environment holds the signals that approximate a device identity
type Environment struct {
	UserAgent      string
	Language       string
	ColorDepth     int
	ScreenWidth    int
	ScreenHeight   int
	TimezoneOffset int // minutes, as reported by the browser
	CanvasDigest   string
}

// FromRequest reads environment signals from request headers.
// Missing or malformed numeric headers are left as zero.
func FromRequest(r *http.Request) Environment {
	env := Environment{
		UserAgent:    r.UserAgent(),
		Language:     primaryLanguage(r.Header.Get("Accept-Language")),
		CanvasDigest: r.Header.Get(HeaderCanvasDigest),
	}

	env.ColorDepth, _ = strconv.Atoi(r.Header.Get(HeaderColorDepth))
	env.TimezoneOffset, _ = strconv.Atoi(r.Header.Get(HeaderTimezoneOffset))

	if w, h, ok := strings.Cut(r.Header.Get(HeaderScreenSize), "x"); ok {
		env.ScreenWidth, _ = strconv.Atoi(w)
		env.ScreenHeight, _ = strconv.Atoi(h)
	}

	return env
}

func primaryLanguage(acceptLanguage string) string {
	lang, _, _ := strings.Cut(acceptLanguage, ",")
	lang, _, _ = strings.Cut(lang, ";")
	return strings.TrimSpace(lang)
}

// String joins the signals in a fixed order
func (e Environment) String() string {
	return strings.Join([]string{
		e.UserAgent,
		e.Language,
		strconv.Itoa(e.ColorDepth),
		fmt.Sprintf("%dx%d", e.ScreenWidth, e.ScreenHeight),
		strconv.Itoa(e.TimezoneOffset),
		e.CanvasDigest,
	}, "|")
}

// Hash returns the base-36 digest of the environment
func (e Environment) Hash() string {
	return strconv.FormatUint(xxhash.Sum64String(e.String()), 36)
}

// Generator mints guest ids of the form guest_<hash36>_<epochMs>
type Generator struct {
	now              func() time.Time
	includeTimestamp bool
}

// Option configures a Generator
type Option func(*Generator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithTimestamp controls whether the current time is appended.
// With it, every id is unique; without it, a device keeps the same id.
func WithTimestamp(include bool) Option {
	return func(g *Generator) { g.includeTimestamp = include }
}

// NewGenerator creates a generator that appends the timestamp by default
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now, includeTimestamp: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a guest id for env
func (g *Generator) Generate(env Environment) string {
	if !g.includeTimestamp {
		return "guest_" + env.Hash()
	}
	return fmt.Sprintf("guest_%s_%d", env.Hash(), g.now().UnixMilli())
}
