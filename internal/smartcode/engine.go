package smartcode

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// codeTables are the tables whose smart_code column counts as usage.
var codeTables = []schema.Table{
	schema.Entities,
	schema.Transactions,
	schema.TransactionLines,
}

// Engine answers existence, version and search questions for one
// organization's smart codes.
type Engine struct {
	store      rowstore.Store
	maxResults int
}

// NewEngine creates an Engine reading through store.
func NewEngine(store rowstore.Store, limits guardrail.Limits) *Engine {
	return &Engine{store: store, maxResults: limits.SearchResults}
}

// Validation is the outcome of Validate. FormatValid and Exists are
// independent: a well-formed code may be unused, and callers decide which
// of the two they require.
type Validation struct {
	SmartCode           string `json:"smart_code"`
	FormatValid         bool   `json:"format_valid"`
	Exists              bool   `json:"exists"`
	Version             int    `json:"version,omitempty"`
	BaseCode            string `json:"base_code,omitempty"`
	Meaning             string `json:"meaning,omitempty"`
	UsageCount          int    `json:"usage_count"`
	Versions            []int  `json:"versions,omitempty"`
	LatestVersion       int    `json:"latest_version,omitempty"`
	HigherVersionExists bool   `json:"higher_version_exists"`
	SuggestedCode       string `json:"suggested_code,omitempty"`
	Error               string `json:"error,omitempty"`
}

// Validate checks the format of raw and, when well formed, looks up every
// sibling version sharing its base within orgID.
func (e *Engine) Validate(ctx context.Context, orgID, raw string) (Validation, error) {
	if err := guardrail.RequireOrg(orgID); err != nil {
		return Validation{}, err
	}
	v := Validation{SmartCode: raw}
	c, err := Parse(raw)
	if err != nil {
		v.Error = err.Error()
		return v, nil
	}
	v.FormatValid = true
	v.Version = c.Version
	v.BaseCode = c.Base()
	v.Meaning = c.Meaning()

	usage, err := e.usage(ctx, orgID, rowstore.Prefix("smart_code", c.Base()+".v"))
	if err != nil {
		return Validation{}, err
	}

	seen := map[int]bool{}
	for code, n := range usage {
		sib, err := Parse(code)
		if err != nil || sib.Base() != c.Base() {
			continue
		}
		if code == raw {
			v.Exists = true
			v.UsageCount = n
		}
		if !seen[sib.Version] {
			seen[sib.Version] = true
			v.Versions = append(v.Versions, sib.Version)
		}
	}
	sort.Ints(v.Versions)

	v.LatestVersion = c.Version
	if n := len(v.Versions); n > 0 && v.Versions[n-1] > c.Version {
		v.LatestVersion = v.Versions[n-1]
		v.HigherVersionExists = true
		v.SuggestedCode = c.WithVersion(v.LatestVersion)
	}
	return v, nil
}

// Check is Validate for write paths: a malformed code is an error, and
// when requireExisting is set so is a code nobody in orgID uses yet.
func (e *Engine) Check(ctx context.Context, orgID, raw string, requireExisting bool) (Validation, error) {
	v, err := e.Validate(ctx, orgID, raw)
	if err != nil {
		return v, err
	}
	if !v.FormatValid {
		return v, guardrail.New(guardrail.SmartCodeMalformed, "smart code %q is malformed", raw)
	}
	if requireExisting && !v.Exists {
		return v, guardrail.New(guardrail.SmartCodeUnknown,
			"smart code %q is not used by organization %s", raw, orgID)
	}
	return v, nil
}

// SearchQuery filters Search. Industry matches the first segment as a
// prefix; Module matches anywhere in the code.
type SearchQuery struct {
	OrgID    string
	Text     string
	Industry string
	Module   string
}

// Match is one distinct code found by Search.
type Match struct {
	SmartCode  string   `json:"smart_code"`
	Meaning    string   `json:"meaning"`
	Version    int      `json:"version"`
	UsageCount int      `json:"usage_count"`
	Tables     []string `json:"tables"`
}

// Search returns the distinct codes in use by the organization whose raw
// text or meaning contains q.Text, best fuzzy match first.
func (e *Engine) Search(ctx context.Context, q SearchQuery) ([]Match, error) {
	if err := guardrail.RequireOrg(q.OrgID); err != nil {
		return nil, err
	}

	filter := rowstore.NotNull("smart_code")
	if ind := strings.TrimSpace(q.Industry); ind != "" {
		filter = rowstore.Prefix("smart_code", Prefix+"."+strings.ToUpper(ind))
	}
	found, err := e.scan(ctx, q.OrgID, filter)
	if err != nil {
		return nil, err
	}

	phrase := strings.ToLower(strings.TrimSpace(q.Text))
	module := strings.ToLower(strings.TrimSpace(q.Module))

	var matches []Match
	for code, m := range found {
		c, err := Parse(code)
		if err != nil {
			continue
		}
		lower := strings.ToLower(code)
		if module != "" && !strings.Contains(lower, module) {
			continue
		}
		if phrase != "" && !strings.Contains(lower, phrase) && !strings.Contains(c.Meaning(), phrase) {
			continue
		}
		m.SmartCode = code
		m.Meaning = c.Meaning()
		m.Version = c.Version
		matches = append(matches, *m)
	}

	rank(matches, phrase)
	if e.maxResults > 0 && len(matches) > e.maxResults {
		matches = matches[:e.maxResults]
	}
	return matches, nil
}

// rank orders matches by fuzzy score against phrase, then by usage.
func rank(matches []Match, phrase string) {
	score := make(map[string]int, len(matches))
	if phrase != "" {
		targets := make([]string, len(matches))
		for i, m := range matches {
			targets[i] = strings.ToLower(m.SmartCode) + " " + m.Meaning
		}
		for _, fm := range fuzzy.Find(phrase, targets) {
			score[matches[fm.Index].SmartCode] = fm.Score
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := score[matches[i].SmartCode], score[matches[j].SmartCode]
		if si != sj {
			return si > sj
		}
		if matches[i].UsageCount != matches[j].UsageCount {
			return matches[i].UsageCount > matches[j].UsageCount
		}
		return matches[i].SmartCode < matches[j].SmartCode
	})
}

// usage counts rows per distinct code matching filter.
func (e *Engine) usage(ctx context.Context, orgID string, filter rowstore.Filter) (map[string]int, error) {
	found, err := e.scan(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(found))
	for code, m := range found {
		out[code] = m.UsageCount
	}
	return out, nil
}

// scan reads the smart_code column of every code table concurrently.
func (e *Engine) scan(ctx context.Context, orgID string, filter rowstore.Filter) (map[string]*Match, error) {
	var (
		mu    sync.Mutex
		found = map[string]*Match{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range codeTables {
		g.Go(func() error {
			rows, err := e.store.Select(gctx, t, rowstore.Query{
				OrgID:   orgID,
				Columns: []string{"smart_code"},
				Filters: []rowstore.Filter{filter},
			})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range rows {
				code := r.String("smart_code")
				if code == "" {
					continue
				}
				m := found[code]
				if m == nil {
					m = &Match{}
					found[code] = m
				}
				m.UsageCount++
				if n := len(m.Tables); n == 0 || m.Tables[n-1] != string(t) {
					m.Tables = append(m.Tables, string(t))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, m := range found {
		sort.Strings(m.Tables)
	}
	return found, nil
}
