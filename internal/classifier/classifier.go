// Package classifier maps free text onto the pipeline's controlled vocabularies.
//
// Classification is case-insensitive keyword containment evaluated in a fixed
// priority order: the first rule with a matching keyword wins, and no match
// yields the vocabulary's default. The order is policy. An input that mentions
// both team and cash problems is a hiring decision, not a funding one.
//
// Keywords match at the start of a word, so "hire" matches "hires" but
// "team" does not match "steamrolled". A keyword ending in a space must
// match a whole word.
package classifier

import (
	"strings"
	"unicode"
)

// Decision types.
const (
	DecisionHiring  = "hiring"
	DecisionFunding = "funding"
	DecisionPricing = "pricing"
	DecisionProduct = "product"
	DecisionPivot   = "pivot"
	DecisionGeneral = "general"
)

// DefaultIndustry is returned when no industry keyword matches.
const DefaultIndustry = "Technology"

// Rule assigns Label to any text containing one of Keywords.
type Rule struct {
	Label    string
	Keywords []string
}

// DecisionRules is the decision type priority order.
var DecisionRules = []Rule{
	{DecisionHiring, []string{"team", "hire", "hiring", "cofounder", "co-founder", "talent", "staff"}},
	{DecisionFunding, []string{"cash", "funding", "runway", "investor", "money", "capital", "raise"}},
	{DecisionPricing, []string{"pricing", "price", "monetiz", "monetis", "revenue model", "subscription"}},
	{DecisionProduct, []string{"market", "product", "customer", "demand", "competition"}},
	{DecisionPivot, []string{"pivot"}},
}

// IndustryRules is the industry priority order.
var IndustryRules = []Rule{
	{"Fintech", []string{"fintech", "payment", "banking", "lending", "crypto", "insurance"}},
	{"Healthcare", []string{"health", "telehealth", "medical", "clinic", "biotech", "pharma"}},
	{"E-commerce", []string{"e-commerce", "ecommerce", "marketplace", "retail", "shop"}},
	{"AI", []string{"artificial intelligence", "ai ", "machine learning", "llm"}},
	{"Education", []string{"education", "edtech", "learning", "school", "course"}},
	{"Media", []string{"media", "news", "video", "streaming", "content", "social"}},
	{"Transportation", []string{"transport", "mobility", "delivery", "logistics", "scooter", "ride"}},
	{"Food", []string{"food", "restaurant", "meal", "grocery", "beverage"}},
	{"Real Estate", []string{"real estate", "property", "housing", "proptech"}},
	{"SaaS", []string{"saas", "software", "b2b", "enterprise", "platform"}},
}

// Classify returns the label of the first rule matching text, or def.
func Classify(text string, rules []Rule, def string) string {
	padded := " " + words(text) + " "
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(padded, " "+kw) {
				return rule.Label
			}
		}
	}
	return def
}

// words lowercases text and turns every rune other than a letter, digit or
// hyphen into a space.
func words(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
}

// DecisionType classifies a failure reason or narrative.
func DecisionType(text string) string {
	return Classify(text, DecisionRules, DecisionGeneral)
}

// Industry classifies a company description or industry label.
func Industry(text string) string {
	return Classify(text, IndustryRules, DefaultIndustry)
}

// NormalizeDecisionType maps a suggested label into the vocabulary.
// An exact label wins; otherwise the suggestion and the fallback texts are
// classified in order, and the first non-default result is returned.
func NormalizeDecisionType(suggested string, fallback ...string) string {
	return normalize(suggested, DecisionRules, DecisionGeneral, fallback)
}

// NormalizeIndustry maps a suggested label into the industry vocabulary.
func NormalizeIndustry(suggested string, fallback ...string) string {
	return normalize(suggested, IndustryRules, DefaultIndustry, fallback)
}

func normalize(suggested string, rules []Rule, def string, fallback []string) string {
	s := strings.TrimSpace(suggested)
	for _, rule := range rules {
		if strings.EqualFold(s, rule.Label) {
			return rule.Label
		}
	}
	if strings.EqualFold(s, def) {
		return def
	}
	for _, text := range append([]string{s}, fallback...) {
		if text == "" {
			continue
		}
		if label := Classify(text, rules, def); label != def {
			return label
		}
	}
	return def
}
