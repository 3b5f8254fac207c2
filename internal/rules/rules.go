// Package rules implements the data-driven classification engine that
// derives categorical attributes (species, biome, forest class) from
// consolidated records. Rule sets are configuration, not code: each output
// attribute carries an ordered list of predicate rules plus a declared
// fallback, so coverage is inspectable and testable.
package rules

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/skogdata/forest-etl/internal/domain"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpGt Op = "gt"
	OpGe Op = "ge"
	OpIn Op = "in"
)

func parseOp(s string) (Op, error) {
	switch Op(s) {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn:
		return Op(s), nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// Condition is one predicate clause. Exactly one of Field or Attr is set:
// Field reads a consolidated record field, Attr reads an already-derived
// classification result. All clauses of a rule must hold for it to match.
type Condition struct {
	Field  string `yaml:"field,omitempty"`
	Attr   string `yaml:"attr,omitempty"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`

	op Op
}

// Rule is one priority-ordered decision: when every condition matches,
// the attribute resolves to Result and evaluation stops.
type Rule struct {
	Priority int         `yaml:"priority"`
	Result   string      `yaml:"result"`
	When     []Condition `yaml:"when"`
}

// RuleSet derives one output attribute. Rules are totally ordered by
// ascending priority; Fallback is the declared result when no rule matches.
type RuleSet struct {
	Attribute string   `yaml:"attribute"`
	DependsOn []string `yaml:"dependsOn,omitempty"`
	Fallback  string   `yaml:"fallback"`
	Rules     []Rule   `yaml:"rules"`
}

type rulesDoc struct {
	Attributes []RuleSet `yaml:"attributes"`
}

// Config is the validated rule configuration: one rule set per output
// attribute plus the fixed topological evaluation order.
type Config struct {
	sets  map[string]*RuleSet
	order []string
}

// Set returns the rule set for one attribute.
func (c *Config) Set(attribute string) (*RuleSet, bool) {
	s, ok := c.sets[attribute]
	return s, ok
}

// Order returns the attribute evaluation order: a topological order of the
// declared dependencies, stable with respect to declaration order.
func (c *Config) Order() []string {
	return c.order
}

// LoadFile reads and validates a rule configuration from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return cfg, nil
}

// Load parses and validates a rule configuration document. Malformed rule
// sets and dependency cycles are load-time ConfigErrors; nothing is
// deferred to evaluation time.
func Load(data []byte) (*Config, error) {
	var doc rulesDoc
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict()); err != nil {
		return nil, domain.Configf("parse rules document: %v", err)
	}
	if len(doc.Attributes) == 0 {
		return nil, domain.Configf("rules document declares no attributes")
	}

	cfg := &Config{sets: make(map[string]*RuleSet, len(doc.Attributes))}
	declared := make([]string, 0, len(doc.Attributes))

	for i := range doc.Attributes {
		set := &doc.Attributes[i]
		if set.Attribute == "" {
			return nil, domain.Configf("rule set %d: attribute name is required", i)
		}
		if _, dup := cfg.sets[set.Attribute]; dup {
			return nil, domain.Configf("attribute %q declared more than once", set.Attribute)
		}
		if set.Fallback == "" {
			return nil, domain.Configf("attribute %q: a fallback result is required", set.Attribute)
		}
		if err := validateRules(set); err != nil {
			return nil, err
		}
		cfg.sets[set.Attribute] = set
		declared = append(declared, set.Attribute)
	}

	for _, set := range cfg.sets {
		for _, dep := range set.DependsOn {
			if _, ok := cfg.sets[dep]; !ok {
				return nil, domain.Configf("attribute %q depends on undeclared attribute %q", set.Attribute, dep)
			}
		}
		for _, r := range set.Rules {
			for _, c := range r.When {
				if c.Attr != "" && !slices.Contains(set.DependsOn, c.Attr) {
					return nil, domain.Configf("attribute %q reads %q without declaring it in dependsOn", set.Attribute, c.Attr)
				}
			}
		}
	}

	order, err := topoOrder(declared, cfg.sets)
	if err != nil {
		return nil, err
	}
	cfg.order = order
	return cfg, nil
}

func validateRules(set *RuleSet) error {
	if len(set.Rules) == 0 {
		return domain.Configf("attribute %q declares no rules", set.Attribute)
	}

	seenPriority := make(map[int]bool, len(set.Rules))
	for i := range set.Rules {
		r := &set.Rules[i]
		if r.Result == "" {
			return domain.Configf("attribute %q rule at priority %d: result is required", set.Attribute, r.Priority)
		}
		if len(r.When) == 0 {
			return domain.Configf("attribute %q rule %q: at least one condition is required", set.Attribute, r.Result)
		}
		if seenPriority[r.Priority] {
			return domain.Configf("attribute %q: duplicate priority %d", set.Attribute, r.Priority)
		}
		seenPriority[r.Priority] = true

		for j := range r.When {
			if err := validateCondition(set.Attribute, &r.When[j]); err != nil {
				return err
			}
		}
	}

	// First-match-wins needs a total order; fix it once at load.
	slices.SortFunc(set.Rules, func(a, b Rule) int { return a.Priority - b.Priority })
	return nil
}

func validateCondition(attribute string, c *Condition) error {
	if (c.Field == "") == (c.Attr == "") {
		return domain.Configf("attribute %q: condition must set exactly one of field or attr", attribute)
	}

	op, err := parseOp(c.Op)
	if err != nil {
		return domain.Configf("attribute %q: %v", attribute, err)
	}
	c.op = op

	if op == OpIn {
		if len(c.Values) == 0 {
			return domain.Configf("attribute %q: operator in requires a values list", attribute)
		}
		return nil
	}
	if c.Value == nil {
		return domain.Configf("attribute %q: operator %s requires a value", attribute, op)
	}
	if c.Attr != "" && (op == OpLt || op == OpLe || op == OpGt || op == OpGe) {
		return domain.Configf("attribute %q: attribute results are categorical, operator %s is not allowed", attribute, op)
	}
	return nil
}

// topoOrder produces the evaluation order via Kahn's algorithm, scanning
// in declaration order so the result is stable. Any leftover attribute
// means a dependency cycle, which is a configuration error at load time,
// never an evaluation-time surprise.
func topoOrder(declared []string, sets map[string]*RuleSet) ([]string, error) {
	resolved := make(map[string]bool, len(declared))
	order := make([]string, 0, len(declared))

	for len(order) < len(declared) {
		progressed := false
		for _, name := range declared {
			if resolved[name] {
				continue
			}
			ready := true
			for _, dep := range sets[name].DependsOn {
				if !resolved[dep] {
					ready = false
					break
				}
			}
			if ready {
				resolved[name] = true
				order = append(order, name)
				progressed = true
			}
		}
		if !progressed {
			var cycle []string
			for _, name := range declared {
				if !resolved[name] {
					cycle = append(cycle, name)
				}
			}
			return nil, domain.Configf("dependency cycle among attributes: %v", cycle)
		}
	}
	return order, nil
}
