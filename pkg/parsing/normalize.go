package parsing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Manual-map decision values. Any other value is an explicit override that
// replaces the whole input string.
const (
	decisionJoin  = "join"
	decisionSpace = "space"
)

// Normalizer reconstructs a single-line header from a string whose words were
// split by line wraps inside merged cells.
//
// Decisions (join without space / join with space / full override) come from
// a manual map first, then from the morphology oracle; oracle decisions are
// cached back into the map. The map is process-wide: reads go through an
// atomic pointer to an immutable map, writers clone under a mutex.
type Normalizer struct {
	path   string
	oracle Oracle

	mu     sync.Mutex // guards cloning and dirty
	manual atomic.Pointer[map[string]string]
	dirty  bool
}

// NewNormalizer loads the manual map from path if it exists. A nil oracle
// defaults to NopOracle.
func NewNormalizer(path string, oracle Oracle) (*Normalizer, error) {
	if oracle == nil {
		oracle = NopOracle{}
	}
	n := &Normalizer{path: path, oracle: oracle}

	manual, err := loadManualMap(path)
	if err != nil {
		return nil, err
	}
	n.manual.Store(&manual)
	return n, nil
}

func loadManualMap(path string) (map[string]string, error) {
	manual := make(map[string]string)
	if path == "" {
		return manual, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return manual, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manual map: %w", err)
	}
	if err := yaml.Unmarshal(data, &manual); err != nil {
		return nil, fmt.Errorf("parse manual map: %w", err)
	}
	return manual, nil
}

// Fix joins the line-wrapped fragments of s into one line and collapses
// whitespace runs. Fix is idempotent.
func (n *Normalizer) Fix(s string) string {
	s = strings.ReplaceAll(s, "_x000D_", "")

	lines := strings.Split(s, "\n")
	acc := lines[0]
	for _, frag := range lines[1:] {
		if strings.TrimSpace(frag) == "" {
			continue
		}
		if strings.TrimSpace(acc) == "" {
			acc = frag
			continue
		}

		accTokens := strings.Fields(acc)
		fragTokens := strings.Fields(frag)
		combo := accTokens[len(accTokens)-1] + fragTokens[0]

		switch decision := n.decide(combo); decision {
		case decisionJoin:
			acc = strings.TrimRight(acc, " \t") + strings.TrimLeft(frag, " \t")
		case decisionSpace:
			acc += " " + frag
		default:
			// Explicit override replaces the whole original input.
			return collapseWhitespace(decision)
		}
	}
	return collapseWhitespace(acc)
}

// decide looks the combined token up in the manual map, falling back to the
// morphology oracle; the oracle's verdict is cached for subsequent calls.
func (n *Normalizer) decide(combo string) string {
	manual := *n.manual.Load()
	if decision, ok := manual[combo]; ok {
		return decision
	}

	decision := decisionSpace
	for _, variant := range caseVariants(combo) {
		if n.oracle.WordIsKnown(variant) {
			decision = decisionJoin
			break
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	current := *n.manual.Load()
	if cached, ok := current[combo]; ok {
		return cached
	}
	next := make(map[string]string, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[combo] = decision
	n.manual.Store(&next)
	n.dirty = true
	return decision
}

// Finalize merges newly cached decisions into the manual-map file. Entries
// already on disk win: the file may have been hand-curated since startup.
// The write is atomic (temp file + rename). No-op when nothing accumulated.
func (n *Normalizer) Finalize() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.dirty || n.path == "" {
		return nil
	}

	onDisk, err := loadManualMap(n.path)
	if err != nil {
		return err
	}

	merged := make(map[string]string)
	for k, v := range *n.manual.Load() {
		merged[k] = v
	}
	for k, v := range onDisk {
		merged[k] = v
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal manual map: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return fmt.Errorf("create manual map dir: %w", err)
	}
	tmp := n.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manual map: %w", err)
	}
	if err := os.Rename(tmp, n.path); err != nil {
		return fmt.Errorf("replace manual map: %w", err)
	}

	n.manual.Store(&merged)
	n.dirty = false
	return nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
