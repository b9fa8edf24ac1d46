package mods

import (
	"regexp"
	"strings"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// Exclusions is a compiled, read-only snapshot of exclusion rules. A nil
// *Exclusions excludes nothing.
type Exclusions struct {
	rules []compiledRule
}

type compiledRule struct {
	rule    model.ExclusionRule
	pattern *regexp.Regexp
}

// CompileExclusions keeps the active rules that constrain at least one field.
func CompileExclusions(rules []model.ExclusionRule) *Exclusions {
	ex := &Exclusions{}
	for _, r := range rules {
		if !r.Active || !r.HasCriteria() {
			continue
		}
		cr := compiledRule{rule: r}
		if r.NamePattern != "" {
			cr.pattern = LikePattern(r.NamePattern)
		}
		ex.rules = append(ex.rules, cr)
	}
	return ex
}

// Len is the number of effective rules.
func (ex *Exclusions) Len() int {
	if ex == nil {
		return 0
	}
	return len(ex.rules)
}

// Excludes reports whether any rule matches d.
func (ex *Exclusions) Excludes(d model.ModifierDescriptor) bool {
	if ex == nil {
		return false
	}
	for _, cr := range ex.rules {
		if cr.matches(d) {
			return true
		}
	}
	return false
}

// Filter returns the descriptors no rule matches.
func (ex *Exclusions) Filter(in []model.ModifierDescriptor) []model.ModifierDescriptor {
	if ex.Len() == 0 {
		return in
	}
	out := make([]model.ModifierDescriptor, 0, len(in))
	for _, d := range in {
		if !ex.Excludes(d) {
			out = append(out, d)
		}
	}
	return out
}

func (cr compiledRule) matches(d model.ModifierDescriptor) bool {
	if cr.rule.Group != "" && cr.rule.Group != d.Group {
		return false
	}
	if cr.rule.Tier != "" && cr.rule.Tier != d.Tier {
		return false
	}
	if cr.pattern != nil && !cr.pattern.MatchString(d.Name) {
		return false
	}
	return true
}

// Matches applies a single rule. Inactive and empty rules never match.
func Matches(rule model.ExclusionRule, d model.ModifierDescriptor) bool {
	return CompileExclusions([]model.ExclusionRule{rule}).Excludes(d)
}

// LikePattern converts a SQL LIKE pattern into an anchored, case-insensitive
// regexp: % matches any run, _ any single character.
func LikePattern(like string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range like {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
