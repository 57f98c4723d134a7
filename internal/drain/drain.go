// Package drain implements the Drain Tree: an on-line, fixed-depth
// prefix-match tree that mines stable message templates from a stream of
// already-masked, whitespace-tokenized messages.
package drain

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/control-theory/logoscope/internal/masking"
	"github.com/control-theory/logoscope/internal/model"
)

// WildcardToken is the generic variable-position marker used inside
// templates. Masking's own placeholders (<NUM>, <IP>, ...) and the
// access-log fast path's semantic placeholders all count as wildcards for
// Drain's purposes — once a token reaches the tree it has already been
// reduced to either a literal or some placeholder, and Drain treats every
// placeholder the same way.
const WildcardToken = "<*>"

// Cluster is one Drain leaf: the accumulated state for every line that
// mined down to the same template.
type Cluster struct {
	ID          uint64
	Template    []string
	Count       uint64
	FirstSeen   time.Time
	LastSeen    time.Time
	CreatedSeq  uint64 // insertion order, used for deterministic similarity tie-breaks
	LevelHist   map[string]uint64
	ServiceHist map[string]uint64
	HostHist    map[string]uint64
	Examples    []string // bounded ring of example lines

	maxExamples int
}

// TemplateString renders the cluster's template as a single space-joined
// string, the canonical form used for exact by_template lookups.
func (c *Cluster) TemplateString() string {
	return strings.Join(c.Template, " ")
}

func (c *Cluster) recordExample(line string) {
	if c.maxExamples <= 0 {
		c.maxExamples = 5
	}
	if len(c.Examples) < c.maxExamples {
		c.Examples = append(c.Examples, line)
		return
	}
	// Ring behavior: drop the oldest, keep the most recent maxExamples.
	copy(c.Examples, c.Examples[1:])
	c.Examples[len(c.Examples)-1] = line
}

func (c *Cluster) bump(hist map[string]uint64, key string) map[string]uint64 {
	if key == "" {
		return hist
	}
	if hist == nil {
		hist = make(map[string]uint64)
	}
	hist[key]++
	return hist
}

// OverflowTemplate is the synthetic template charged with lines displaced
// by cluster-cap eviction.
const OverflowTemplate = "<overflow>"

type node struct {
	children map[string]*node
	wildcard *node
	clusters []*Cluster
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Config bundles Drain's tunables (defaults per the specification).
type Config struct {
	MaxDepth    int
	MaxChildren int
	SimMin      float64
	MaxClusters int
	MaxExamples int
}

// Drain is the fixed-depth prefix-match tree over token-count-keyed
// sub-trees. It is the only shared-mutable hotspot in the pipeline; all
// methods are safe for concurrent use, serialized by an internal mutex,
// matching the "single reducer" option described for the concurrency
// model (workers produce masked-and-tokenized candidates locally and only
// the final Insert call touches the shared tree).
type Drain struct {
	mu  sync.Mutex
	cfg Config

	byLength map[int]*node

	clustersByID map[uint64]*Cluster
	lru          *list.List
	lruElem      map[uint64]*list.Element

	nextSeq       uint64
	overflowCount uint64
	overflowExamples []string
}

// New constructs a Drain tree with the given configuration, filling in any
// zero-valued field with the specification's default.
func New(cfg Config) *Drain {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = model.DefaultMaxDepth
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = model.DefaultMaxChildren
	}
	if cfg.SimMin <= 0 {
		cfg.SimMin = model.DefaultSimMin
	}
	if cfg.MaxClusters <= 0 {
		cfg.MaxClusters = model.DefaultMaxClusters
	}
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = 5
	}
	return &Drain{
		cfg:          cfg,
		byLength:     make(map[int]*node),
		clustersByID: make(map[uint64]*Cluster),
		lru:          list.New(),
		lruElem:      make(map[uint64]*list.Element),
	}
}

// Insertion describes one line's context; everything Drain needs to update
// histograms and example lines alongside template assignment.
type Insertion struct {
	Tokens    []string
	Timestamp time.Time
	HasTime   bool
	Level     string
	Service   string
	Host      string
	RawLine   string
}

// Insert assigns tokens to a cluster, creating one if no existing cluster
// in the reached leaf scores at least SimMin, and returns the resulting
// cluster. The second result is always false: when a new cluster pushes the
// count past MaxClusters, the least-recently-updated cluster is evicted to
// the overflow bucket and the returned cluster is still the one the tokens
// were assigned to.
func (d *Drain) Insert(in Insertion) (*Cluster, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	length := len(in.Tokens)
	lengthNode, ok := d.byLength[length]
	if !ok {
		lengthNode = newNode()
		d.byLength[length] = lengthNode
	}

	leaf := d.descend(lengthNode, in.Tokens)

	best, bestScore := d.bestMatch(leaf, in.Tokens)
	var cluster *Cluster
	isNew := false
	if best != nil && bestScore >= d.cfg.SimMin {
		cluster = best
		generalize(cluster.Template, in.Tokens)
	} else {
		cluster = d.newCluster(in.Tokens)
		leaf.clusters = append(leaf.clusters, cluster)
		isNew = true
	}

	d.touch(cluster, in)

	if isNew && len(d.clustersByID) > d.cfg.MaxClusters {
		d.evictOldest(leaf)
	}

	return cluster, false
}

// descend walks depth layers 1..MaxDepth, branching on the token at each
// position, collapsing to the wildcard child when a new literal branch
// would exceed MaxChildren or when the token is itself a placeholder.
func (d *Drain) descend(start *node, tokens []string) *node {
	cur := start
	depth := len(tokens)
	if depth > d.cfg.MaxDepth {
		depth = d.cfg.MaxDepth
	}
	for i := 0; i < depth; i++ {
		tok := tokens[i]
		if masking.IsPlaceholder(tok) || tok == WildcardToken {
			cur = d.branchWildcard(cur)
			continue
		}
		if child, ok := cur.children[tok]; ok {
			cur = child
			continue
		}
		if len(cur.children) >= d.cfg.MaxChildren {
			cur = d.branchWildcard(cur)
			continue
		}
		child := newNode()
		cur.children[tok] = child
		cur = child
	}
	return cur
}

func (d *Drain) branchWildcard(n *node) *node {
	if n.wildcard == nil {
		n.wildcard = newNode()
	}
	return n.wildcard
}

// bestMatch scores every cluster at the leaf against tokens and returns the
// best-scoring one with a deterministic tie-break toward the earlier
// created cluster.
func (d *Drain) bestMatch(leaf *node, tokens []string) (*Cluster, float64) {
	var best *Cluster
	bestScore := -1.0
	for _, c := range leaf.clusters {
		score := similarity(c.Template, tokens)
		if score > bestScore || (score == bestScore && best != nil && c.CreatedSeq < best.CreatedSeq) {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

// similarity is the fraction of positions whose non-wildcard tokens match
// exactly; positions where either side is already a wildcard count as a
// match.
func similarity(template, tokens []string) float64 {
	if len(template) != len(tokens) || len(template) == 0 {
		return 0
	}
	matches := 0
	for i := range template {
		if template[i] == WildcardToken || tokens[i] == WildcardToken || template[i] == tokens[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(template))
}

// generalize promotes positions where the incoming tokens disagree with the
// template's current (non-wildcard) token to the wildcard. Template length
// never changes, preserving invariant I2.
func generalize(template, tokens []string) {
	for i := range template {
		if template[i] != WildcardToken && template[i] != tokens[i] {
			template[i] = WildcardToken
		}
	}
}

func (d *Drain) newCluster(tokens []string) *Cluster {
	d.nextSeq++
	tpl := make([]string, len(tokens))
	copy(tpl, tokens)
	c := &Cluster{
		ID:          templateID(tpl),
		Template:    tpl,
		CreatedSeq:  d.nextSeq,
		maxExamples: d.cfg.MaxExamples,
	}
	d.clustersByID[c.ID] = c
	elem := d.lru.PushFront(c.ID)
	d.lruElem[c.ID] = elem
	return c
}

func (d *Drain) touch(c *Cluster, in Insertion) {
	c.Count++
	if in.HasTime {
		if c.FirstSeen.IsZero() || in.Timestamp.Before(c.FirstSeen) {
			c.FirstSeen = in.Timestamp
		}
		if in.Timestamp.After(c.LastSeen) {
			c.LastSeen = in.Timestamp
		}
	}
	c.LevelHist = c.bump(c.LevelHist, in.Level)
	c.ServiceHist = c.bump(c.ServiceHist, in.Service)
	c.HostHist = c.bump(c.HostHist, in.Host)
	c.recordExample(in.RawLine)

	if elem, ok := d.lruElem[c.ID]; ok {
		d.lru.MoveToFront(elem)
	}
}

// evictOldest removes the least-recently-updated cluster, charging its
// accumulated count to the synthetic overflow bucket.
func (d *Drain) evictOldest(leaf *node) {
	back := d.lru.Back()
	if back == nil {
		return
	}
	id := back.Value.(uint64)
	victim := d.clustersByID[id]
	d.lru.Remove(back)
	delete(d.lruElem, id)
	delete(d.clustersByID, id)
	if victim == nil {
		return
	}
	d.overflowCount += victim.Count
	removeCluster(leaf, victim)
	// The victim might live in a different leaf than the one that triggered
	// eviction (it was the globally least-recently-updated cluster); search
	// every length-bucket's subtree lazily via the template length.
	if ln, ok := d.byLength[len(victim.Template)]; ok && ln != leaf {
		removeClusterFromTree(ln, victim)
	}
	if len(victim.Examples) > 0 {
		d.overflowExamples = append(d.overflowExamples, victim.Examples[0])
	}
}

func removeCluster(n *node, victim *Cluster) {
	for i, c := range n.clusters {
		if c == victim {
			n.clusters = append(n.clusters[:i], n.clusters[i+1:]...)
			return
		}
	}
}

func removeClusterFromTree(n *node, victim *Cluster) bool {
	for i, c := range n.clusters {
		if c == victim {
			n.clusters = append(n.clusters[:i], n.clusters[i+1:]...)
			return true
		}
	}
	for _, child := range n.children {
		if removeClusterFromTree(child, victim) {
			return true
		}
	}
	if n.wildcard != nil {
		return removeClusterFromTree(n.wildcard, victim)
	}
	return false
}

// OverflowCount returns the number of lines displaced by cluster-cap
// eviction since construction.
func (d *Drain) OverflowCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overflowCount
}

// OverflowExamples returns up to maxExamples example lines retained from
// evicted clusters, for inclusion alongside the <overflow> bucket in the
// summary.
func (d *Drain) OverflowExamples(max int) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.overflowExamples) <= max {
		return append([]string(nil), d.overflowExamples...)
	}
	return append([]string(nil), d.overflowExamples[len(d.overflowExamples)-max:]...)
}

// Clusters returns a snapshot of every live cluster, ordered by CreatedSeq
// for deterministic downstream iteration.
func (d *Drain) Clusters() []*Cluster {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Cluster, 0, len(d.clustersByID))
	for _, c := range d.clustersByID {
		out = append(out, c)
	}
	sortClustersBySeq(out)
	return out
}

func sortClustersBySeq(cs []*Cluster) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].CreatedSeq > cs[j].CreatedSeq; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

// templateID computes a stable 64-bit hash of a template's token sequence,
// joined by a unit separator that cannot appear inside any token (tokens
// are either literal whitespace-free text or one of the closed placeholder
// strings), so re-runs over identical input reproduce identical IDs.
func templateID(template []string) uint64 {
	return xxhash.Sum64String(strings.Join(template, "\x1f"))
}

// Tokenize splits a masked message on whitespace, the token boundary used
// throughout template mining.
func Tokenize(masked string) []string {
	return strings.Fields(masked)
}
