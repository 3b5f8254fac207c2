package rules

import (
	"fmt"
	"log/slog"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/mapping"
)

// Engine evaluates rule sets over fully-extracted records. Evaluation is
// deterministic and total: a predicate over a missing field is simply
// false, so classification itself can never fail at runtime.
type Engine struct {
	cfg    *Config
	table  *mapping.Table
	logger *slog.Logger
}

// NewEngine binds a rule configuration to a field-mapping table. Every
// field a predicate reads must be a declared target field; an unmapped
// reference is a configuration error reported here, not a silent
// never-matching predicate at evaluation time.
func NewEngine(cfg *Config, table *mapping.Table, logger *slog.Logger) (*Engine, error) {
	for _, attribute := range cfg.Order() {
		set, _ := cfg.Set(attribute)
		for _, r := range set.Rules {
			for _, c := range r.When {
				if c.Field == "" {
					continue
				}
				if _, ok := table.ByTarget(c.Field); !ok {
					return nil, domain.Configf("attribute %q reads unmapped field %q", attribute, c.Field)
				}
			}
		}
	}
	return &Engine{cfg: cfg, table: table, logger: logger}, nil
}

// Classify derives every output attribute for one record, in the fixed
// topological order, and stores the results on the record. The record's
// measurement fields are never modified.
func (e *Engine) Classify(rec *domain.Record) {
	for _, attribute := range e.cfg.Order() {
		set, _ := e.cfg.Set(attribute)
		rec.SetClassification(attribute, e.evaluate(set, rec))
	}
}

// evaluate resolves one attribute: rules run in ascending priority and the
// first fully-matching rule wins. Only exhaustion of all rules yields the
// declared fallback.
func (e *Engine) evaluate(set *RuleSet, rec *domain.Record) string {
	for _, r := range set.Rules {
		if e.matches(r.When, rec) {
			return r.Result
		}
	}
	return set.Fallback
}

func (e *Engine) matches(conditions []Condition, rec *domain.Record) bool {
	for i := range conditions {
		if !e.matchCondition(&conditions[i], rec) {
			return false
		}
	}
	return true
}

func (e *Engine) matchCondition(c *Condition, rec *domain.Record) bool {
	if c.Attr != "" {
		result, ok := rec.Classification(c.Attr)
		if !ok {
			return false
		}
		return compareText(result, c)
	}

	fm, _ := e.table.ByTarget(c.Field)
	if fm.Kind.IsBound() {
		// A rule can never fire purely off a bound: an absent
		// point-estimate sibling makes the predicate non-matching.
		if rec.Field(fm.Estimate).IsAbsent() {
			return false
		}
	}

	v := rec.Field(c.Field)
	if v.IsAbsent() {
		return false
	}
	return compareValue(v, c)
}

func compareValue(v domain.Value, c *Condition) bool {
	switch c.op {
	case OpLt, OpLe, OpGt, OpGe:
		f, ok := v.Float()
		if !ok {
			return false
		}
		threshold, ok := toFloat(c.Value)
		if !ok {
			return false
		}
		switch c.op {
		case OpLt:
			return f < threshold
		case OpLe:
			return f <= threshold
		case OpGt:
			return f > threshold
		default:
			return f >= threshold
		}
	case OpEq:
		return valueEquals(v, c.Value)
	case OpNe:
		return !valueEquals(v, c.Value)
	case OpIn:
		for _, candidate := range c.Values {
			if valueEquals(v, candidate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// valueEquals compares a record value against a configured literal,
// numerically when both sides are numeric, textually otherwise, so coded
// categorical fields match whether the config writes 1 or "1".
func valueEquals(v domain.Value, literal any) bool {
	if f, ok := v.Float(); ok {
		if lf, ok := toFloat(literal); ok {
			return f == lf
		}
	}
	s, ok := v.Text()
	if !ok {
		return false
	}
	return s == fmt.Sprintf("%v", literal)
}

func compareText(result string, c *Condition) bool {
	switch c.op {
	case OpEq:
		return result == fmt.Sprintf("%v", c.Value)
	case OpNe:
		return result != fmt.Sprintf("%v", c.Value)
	case OpIn:
		for _, candidate := range c.Values {
			if result == fmt.Sprintf("%v", candidate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// toFloat widens any YAML-decoded numeric literal to float64.
func toFloat(literal any) (float64, bool) {
	switch n := literal.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
