package masking

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Format identifies which access-log shape the fast path recognized.
type Format int

const (
	FormatUnknown Format = iota
	FormatELB
	FormatNginx
	FormatApache
)

func (f Format) String() string {
	switch f {
	case FormatELB:
		return "elb"
	case FormatNginx:
		return "nginx"
	case FormatApache:
		return "apache"
	default:
		return "unknown"
	}
}

// Semantic placeholders used only by the access-log fast path. They are
// atomic tokens for Drain purposes, same as the generic placeholder set.
const (
	PlaceholderClientIP    = "<CLIENT_IP>"
	PlaceholderClientPort  = "<CLIENT_PORT>"
	PlaceholderHTTPMethod  = "<HTTP_METHOD>"
	PlaceholderRequestPath = "<REQUEST_PATH>"
	PlaceholderHTTPVersion = "<HTTP_VERSION>"
	PlaceholderStatusCode  = "<STATUS_CODE>"
	PlaceholderRespSize    = "<RESPONSE_SIZE>"
	PlaceholderUserAgent   = "<USER_AGENT>"
)

func isSemanticPlaceholder(token string) bool {
	switch token {
	case PlaceholderClientIP, PlaceholderClientPort, PlaceholderHTTPMethod,
		PlaceholderRequestPath, PlaceholderHTTPVersion, PlaceholderStatusCode,
		PlaceholderRespSize, PlaceholderUserAgent:
		return true
	}
	return false
}

// Result carries the outcome of the access-log fast path: the generalized
// template (using the semantic placeholder set above), the parameters it
// extracted keyed by placeholder name, the format it matched, and a
// confidence score used to decide whether generic Drain clustering should
// be bypassed entirely.
type Result struct {
	Template    string
	Parameters  map[string]string
	Format      Format
	Confidence  float64
}

// BypassesDrain reports whether this result's confidence is high enough to
// use its template directly instead of routing the line through Drain.
// Resolves the specification's open question: confidence strictly greater
// than 0.8 bypasses generic clustering (ELB 0.95, Nginx 0.90, Apache 0.85
// all qualify; the generic HTTP fallback at 0.5 and the quick-reject result
// at 0.1 do not).
func (r Result) BypassesDrain() bool {
	return r.Confidence > 0.8
}

var (
	reELB = regexp.MustCompile(
		`^\S+ \S+ (\d{1,3}(?:\.\d{1,3}){3}):(\d+) \S+ \S+ \S+ \S+ (\d+) \d+ \d+ \d+ "(\S+) (\S+) (HTTP/\d\.\d)" "([^"]*)"`)

	reNginx = regexp.MustCompile(
		`^(\d{1,3}(?:\.\d{1,3}){3}) \S+ \S+ \[[^\]]+\] "(\S+) (\S+) (HTTP/\d\.\d)" (\d{3}) (\d+) "[^"]*" "([^"]*)"`)

	reApache = regexp.MustCompile(
		`^(\d{1,3}(?:\.\d{1,3}){3}) \S+ \S+ \[[^\]]+\] "(\S+) (\S+) (HTTP/\d\.\d)" (\d{3}) (\d+)`)

	reQuickReject = regexp.MustCompile(`HTTP/\d\.\d|^\d{1,3}(?:\.\d{1,3}){3}\s`)
)

func tryELB(line string) (Result, bool) {
	m := reELB.FindStringSubmatch(line)
	if m == nil {
		return Result{}, false
	}
	tpl := fmt.Sprintf("%s %s <*> <*> <*> <*> %s <*> <*> <*> \"%s %s %s\" \"%s\"",
		PlaceholderClientIP+":"+PlaceholderClientPort, "<*>", PlaceholderStatusCode,
		PlaceholderHTTPMethod, PlaceholderRequestPath, PlaceholderHTTPVersion, PlaceholderUserAgent)
	return Result{
		Template: tpl,
		Parameters: map[string]string{
			"client_ip":   m[1],
			"client_port": m[2],
			"status_code": m[3],
			"method":      m[4],
			"path":        m[5],
			"version":     m[6],
			"user_agent":  m[7],
		},
		Format:     FormatELB,
		Confidence: 0.95,
	}, true
}

func tryNginx(line string) (Result, bool) {
	m := reNginx.FindStringSubmatch(line)
	if m == nil {
		return Result{}, false
	}
	tpl := fmt.Sprintf("%s - - [<*>] \"%s %s %s\" %s %s \"<*>\" \"%s\"",
		PlaceholderClientIP, PlaceholderHTTPMethod, PlaceholderRequestPath,
		PlaceholderHTTPVersion, PlaceholderStatusCode, PlaceholderRespSize, PlaceholderUserAgent)
	return Result{
		Template: tpl,
		Parameters: map[string]string{
			"client_ip":     m[1],
			"method":        m[2],
			"path":          m[3],
			"version":       m[4],
			"status_code":   m[5],
			"response_size": m[6],
			"user_agent":    m[7],
		},
		Format:     FormatNginx,
		Confidence: 0.90,
	}, true
}

func tryApache(line string) (Result, bool) {
	m := reApache.FindStringSubmatch(line)
	if m == nil {
		return Result{}, false
	}
	tpl := fmt.Sprintf("%s - - [<*>] \"%s %s %s\" %s %s",
		PlaceholderClientIP, PlaceholderHTTPMethod, PlaceholderRequestPath,
		PlaceholderHTTPVersion, PlaceholderStatusCode, PlaceholderRespSize)
	return Result{
		Template: tpl,
		Parameters: map[string]string{
			"client_ip":     m[1],
			"method":        m[2],
			"path":          m[3],
			"version":       m[4],
			"status_code":   m[5],
			"response_size": m[6],
		},
		Format:     FormatApache,
		Confidence: 0.85,
	}, true
}

// fallback recognizes a bare HTTP request line without the full access-log
// shape (e.g. just `"GET /x HTTP/1.1" 200`) and still extracts what it can,
// at a low confidence that does not bypass Drain.
var reFallbackRequest = regexp.MustCompile(`"(\S+) (\S+) (HTTP/\d\.\d)"(?:\s+(\d{3}))?`)

func fallback(line string) Result {
	m := reFallbackRequest.FindStringSubmatch(line)
	if m == nil {
		return Result{Template: Mask(line), Format: FormatUnknown, Confidence: 0.1}
	}
	rest := reFallbackRequest.ReplaceAllString(line, fmt.Sprintf("\"%s %s %s\"", PlaceholderHTTPMethod, PlaceholderRequestPath, PlaceholderHTTPVersion))
	if m[4] != "" {
		rest = strings.Replace(rest, m[4], PlaceholderStatusCode, 1)
	}
	params := map[string]string{"method": m[1], "path": m[2], "version": m[3]}
	if m[4] != "" {
		params["status_code"] = m[4]
	}
	return Result{
		Template:   Mask(rest),
		Parameters: params,
		Format:     FormatUnknown,
		Confidence: 0.5,
	}
}

// SmartMasker recognizes common access-log shapes (ELB, NGINX, Apache
// combined) ahead of generic masking. It keeps two cache tiers, mirroring
// the global-plus-worker-local caching discipline the concurrency model
// requires for the generic masker's own caches: a shared cache for
// single-threaded batch use and per-worker caches callers can request so
// that parallel clustering does not contend on the shared cache's lock.
type SmartMasker struct {
	shared *lru.Cache[string, Result]
}

// NewSmartMasker constructs a masker with a shared LRU cache of the given
// size (model.DefaultMaskCacheSize by convention).
func NewSmartMasker(cacheSize int) *SmartMasker {
	c, _ := lru.New[string, Result](cacheSize)
	return &SmartMasker{shared: c}
}

// Mask runs the fast path against line, consulting and populating the
// shared cache.
func (sm *SmartMasker) Mask(line string) Result {
	if sm.shared != nil {
		if cached, ok := sm.shared.Get(line); ok {
			return cached
		}
	}
	r := classify(line)
	if sm.shared != nil {
		sm.shared.Add(line, r)
	}
	return r
}

// WorkerCache returns a fresh, independent LRU cache of the given size for
// use by one worker goroutine, avoiding any lock contention on the shared
// cache during parallel batch-mode clustering.
func (sm *SmartMasker) WorkerCache(size int) *lru.Cache[string, Result] {
	c, _ := lru.New[string, Result](size)
	return c
}

// MaskWithCache is the worker-local counterpart to Mask: it consults and
// populates a caller-owned cache instead of the shared one.
func MaskWithCache(line string, cache *lru.Cache[string, Result]) Result {
	if cache != nil {
		if cached, ok := cache.Get(line); ok {
			return cached
		}
	}
	r := classify(line)
	if cache != nil {
		cache.Add(line, r)
	}
	return r
}

func classify(line string) Result {
	if !reQuickReject.MatchString(line) {
		return Result{Template: Mask(line), Format: FormatUnknown, Confidence: 0.1}
	}
	if r, ok := tryELB(line); ok {
		return r
	}
	if r, ok := tryNginx(line); ok {
		return r
	}
	if r, ok := tryApache(line); ok {
		return r
	}
	return fallback(line)
}
