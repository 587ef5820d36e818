// Package sanitize strips unsafe markup from HTML email bodies before MIME
// assembly. The policy is assembled from named feature blocks so operators
// can widen or narrow it through settings without code changes.
package sanitize

import (
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Block names accepted in the allow and deny lists.
const (
	BlockFormatting = "formatting"
	BlockBlocks     = "blocks"
	BlockLinks      = "links"
	BlockTables     = "tables"
	BlockImages     = "images"
	BlockStyles     = "styles"
)

// blockPolicies maps a block name to the policy fragment it enables.
var blockPolicies = map[string]func(*bluemonday.Policy){
	BlockFormatting: func(p *bluemonday.Policy) {
		p.AllowElements("b", "i", "u", "em", "strong", "code", "pre", "small",
			"big", "sub", "sup", "strike", "s", "tt", "span", "br", "hr")
	},
	BlockBlocks: func(p *bluemonday.Policy) {
		p.AllowElements("p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote")
		p.AllowLists()
	},
	BlockLinks: func(p *bluemonday.Policy) {
		p.AllowAttrs("href").OnElements("a")
		p.AllowStandardURLs()
		p.RequireNoFollowOnLinks(true)
	},
	BlockTables: func(p *bluemonday.Policy) {
		p.AllowTables()
	},
	BlockImages: func(p *bluemonday.Policy) {
		p.AllowImages()
	},
	BlockStyles: func(p *bluemonday.Policy) {
		p.AllowAttrs("style").Globally()
	},
}

// defaultBlocks is the baseline when no allow list is configured.
var defaultBlocks = []string{
	BlockFormatting,
	BlockBlocks,
	BlockLinks,
	BlockTables,
	BlockStyles,
}

// Sanitizer applies a fixed HTML policy. Safe for concurrent use.
type Sanitizer struct {
	policy  *bluemonday.Policy
	enabled []string
}

// New builds a sanitizer from allow and deny block lists. An empty allow
// list means the default baseline; deny entries are removed afterwards.
// Unknown block names are ignored.
func New(allowList, denyList []string) *Sanitizer {
	allowed := defaultBlocks
	if len(allowList) > 0 {
		allowed = allowList
	}

	denied := make(map[string]struct{}, len(denyList))
	for _, b := range denyList {
		denied[strings.ToLower(b)] = struct{}{}
	}

	policy := bluemonday.NewPolicy()
	enabled := make([]string, 0, len(allowed))
	for _, b := range allowed {
		name := strings.ToLower(b)
		if _, drop := denied[name]; drop {
			continue
		}
		apply, known := blockPolicies[name]
		if !known {
			continue
		}
		apply(policy)
		enabled = append(enabled, name)
	}
	sort.Strings(enabled)

	return &Sanitizer{policy: policy, enabled: enabled}
}

// Sanitize returns html with everything outside the policy removed.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

// EnabledBlocks returns the sorted block names the policy was built from.
func (s *Sanitizer) EnabledBlocks() []string {
	return s.enabled
}
