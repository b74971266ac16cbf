// Package routing implements the tenant-scoped request router.
//
// Routing is a two-stage decision. Pattern rules are tried first: every
// configured rule whose regular expression matches the request text is
// collected, and the highest-priority match wins, with configuration order
// breaking ties. When no pattern matches, the keyword fallback table ranks
// agents by how often their keywords occur in the text. A tenant that
// configures a catch-all pattern rule at priority 0 is guaranteed a pattern
// hit for any input.
package routing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// compiledRule is one routing rule with its pattern pre-compiled.
type compiledRule struct {
	re       *regexp.Regexp
	agent    string
	priority int
}

// RuleSet is a tenant's compiled routing configuration. Immutable after
// Compile; safe for concurrent Select calls.
type RuleSet struct {
	tenantID string
	rules    []compiledRule
	fallback map[string]models.FallbackRule
	agents   map[string]struct{}
}

// Compile validates and compiles a tenant's routing rules. Patterns match
// case-insensitively and unanchored (substring search). An invalid pattern
// or a rule targeting an undeclared agent is a configuration error.
func Compile(cfg *models.TenantConfig) (*RuleSet, error) {
	rs := &RuleSet{
		tenantID: cfg.TenantID,
		rules:    make([]compiledRule, 0, len(cfg.RoutingRules)),
		fallback: cfg.RoutingCfg.AgentRules,
		agents:   make(map[string]struct{}, len(cfg.Agents)),
	}
	for name := range cfg.Agents {
		rs.agents[name] = struct{}{}
	}

	for _, rule := range cfg.RoutingRules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, errdefs.Configuration("tenant %s: routing pattern %q: %v", cfg.TenantID, rule.Pattern, err)
		}
		if _, ok := rs.agents[rule.Agent]; !ok {
			return nil, errdefs.Configuration("tenant %s: routing rule targets undeclared agent %q", cfg.TenantID, rule.Agent)
		}
		rs.rules = append(rs.rules, compiledRule{re: re, agent: rule.Agent, priority: rule.Priority})
	}

	for name := range rs.fallback {
		if _, ok := rs.agents[name]; !ok {
			return nil, errdefs.Configuration("tenant %s: fallback rule for undeclared agent %q", cfg.TenantID, name)
		}
	}
	return rs, nil
}

// Select returns the agent id that should handle the request text.
// It never fails for a compiled rule set: when neither pattern rules nor
// keywords produce a hit it falls back to the lowest-ranked fallback agent,
// then to "chat", then to the first declared agent name.
func (rs *RuleSet) Select(text string) string {
	if agent, ok := rs.matchRules(text); ok {
		return agent
	}
	agent := rs.matchKeywords(text)
	log.Debug().
		Str("tenant", rs.tenantID).
		Str("agent", agent).
		Msg("No routing pattern matched, selected via fallback table")
	return agent
}

// matchRules collects every matching pattern rule and picks the winner:
// highest priority, earliest configured on ties. Strictly-greater
// comparison in configuration order implements the stable tie-break.
func (rs *RuleSet) matchRules(text string) (string, bool) {
	best := -1
	for i, rule := range rs.rules {
		if !rule.re.MatchString(text) {
			continue
		}
		if best < 0 || rule.priority > rs.rules[best].priority {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return rs.rules[best].agent, true
}

// matchKeywords ranks agents by case-insensitive keyword occurrence counts.
// Ties break toward the lower fallback_priority (the rank: 0 is first
// choice), then toward the lexicographically smaller agent name so the
// result is deterministic. With zero hits everywhere the lowest-ranked
// fallback agent wins outright; an empty keyword set is a legal
// always-eligible catch-all.
func (rs *RuleSet) matchKeywords(text string) string {
	lower := strings.ToLower(text)

	names := make([]string, 0, len(rs.fallback))
	for name := range rs.fallback {
		if _, declared := rs.agents[name]; declared {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	bestAgent := ""
	bestHits := -1
	bestRank := 0
	for _, name := range names {
		rule := rs.fallback[name]
		hits := 0
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			hits += strings.Count(lower, strings.ToLower(kw))
		}
		better := hits > bestHits ||
			(hits == bestHits && rule.FallbackPriority < bestRank)
		if better {
			bestAgent, bestHits, bestRank = name, hits, rule.FallbackPriority
		}
	}
	if bestAgent != "" {
		return bestAgent
	}

	// No fallback table at all. Prefer a declared chat agent, then the
	// first agent name in sorted order.
	if _, ok := rs.agents["chat"]; ok {
		return "chat"
	}
	declared := make([]string, 0, len(rs.agents))
	for name := range rs.agents {
		declared = append(declared, name)
	}
	sort.Strings(declared)
	if len(declared) > 0 {
		return declared[0]
	}
	return ""
}
