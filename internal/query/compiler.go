package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/mercato-next/internal/logger"

	"github.com/shopspring/decimal"
)

// RejectReason 子句被丢弃的原因
type RejectReason string

const (
	ReasonUnknownEntity      RejectReason = "unknown_entity"
	ReasonUnknownField       RejectReason = "unknown_field"
	ReasonUnknownOperator    RejectReason = "unknown_operator"
	ReasonOperatorNotAllowed RejectReason = "operator_not_allowed"
	ReasonBetweenOperand     RejectReason = "between_operand"
)

// Target 条件落点：主表列或关联表列
type Target struct {
	Relation string
	Column   string
}

// Outcome 单个子句的编译结果，只有 Accepted 与 Rejected 两种
type Outcome interface {
	outcome()
}

// Accepted 子句通过校验
type Accepted struct {
	Clause    FilterClause
	Target    Target
	Predicate Predicate
}

// Rejected 子句被丢弃
type Rejected struct {
	Clause FilterClause
	Reason RejectReason
}

func (Accepted) outcome() {}
func (Rejected) outcome() {}

// ClauseRecorder 记录子句编译结果
type ClauseRecorder interface {
	ObserveClause(entity string, accepted bool, reason string)
}

// Compiler 按白名单把子句编译为条件
type Compiler struct {
	registry *Registry
	recorder ClauseRecorder
}

// NewCompiler 创建编译器，recorder 可为空
func NewCompiler(registry *Registry, recorder ClauseRecorder) *Compiler {
	return &Compiler{registry: registry, recorder: recorder}
}

// Compile 编译子句，只保留通过校验的条件，后出现的同目标条件覆盖先出现的
func (c *Compiler) Compile(kind EntityKind, clauses []FilterClause) CompiledPredicate {
	pred := NewCompiledPredicate()
	for _, outcome := range c.Evaluate(kind, clauses) {
		if accepted, ok := outcome.(Accepted); ok {
			pred.set(accepted.Target, accepted.Predicate)
		}
	}
	return pred
}

// Evaluate 返回每个子句的编译结果，顺序与输入一致
func (c *Compiler) Evaluate(kind EntityKind, clauses []FilterClause) []Outcome {
	outcomes := make([]Outcome, 0, len(clauses))
	for _, clause := range clauses {
		outcome := c.evaluate(kind, clause)
		c.observe(kind, outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (c *Compiler) evaluate(kind EntityKind, clause FilterClause) Outcome {
	if _, ok := c.registry.Rules(kind); !ok {
		return Rejected{Clause: clause, Reason: ReasonUnknownEntity}
	}
	entry, ok := c.registry.Lookup(kind, clause.Field)
	if !ok {
		return Rejected{Clause: clause, Reason: ReasonUnknownField}
	}
	op, ok := ParseOperator(clause.Operator)
	if !ok {
		return Rejected{Clause: clause, Reason: ReasonUnknownOperator}
	}
	if !c.registry.IsOperatorAllowed(kind, op) {
		return Rejected{Clause: clause, Reason: ReasonOperatorNotAllowed}
	}

	pred := Predicate{Op: op}
	switch op {
	case OpLike:
		pred.Value = clause.RawValue
	case OpIn:
		pred.Values = coerceList(clause.RawValue, entry.Kind)
	case OpBetween:
		if len(clause.RawValues) != 2 {
			return Rejected{Clause: clause, Reason: ReasonBetweenOperand}
		}
		pred.Values = []any{
			coerceScalar(clause.RawValues[0], entry.Kind),
			coerceScalar(clause.RawValues[1], entry.Kind),
		}
	default:
		pred.Value = coerceScalar(clause.RawValue, entry.Kind)
	}
	return Accepted{
		Clause:    clause,
		Target:    Target{Relation: entry.Relation, Column: entry.Column},
		Predicate: pred,
	}
}

func (c *Compiler) observe(kind EntityKind, outcome Outcome) {
	switch o := outcome.(type) {
	case Accepted:
		if c.recorder != nil {
			c.recorder.ObserveClause(string(kind), true, "")
		}
	case Rejected:
		logger.Debugw("query_filter_clause_rejected",
			"entity", kind,
			"field", o.Clause.Field,
			"operator", o.Clause.Operator,
			"reason", o.Reason,
		)
		if c.recorder != nil {
			c.recorder.ObserveClause(string(kind), false, string(o.Reason))
		}
	}
}

// coerceScalar 数值字段尝试转为 int64/float64，金额字段转为 decimal，失败保留原字符串
func coerceScalar(raw string, kind ValueKind) any {
	switch kind {
	case KindText:
		return raw
	case KindBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return b
		}
		return raw
	case KindMoney:
		if d, ok := parseMoney(raw); ok {
			return d
		}
		return raw
	}
	if n, ok := parseNumber(raw); ok {
		return n
	}
	return raw
}

// coerceList 切分 in 操作数；数值字段丢弃无法解析的元素，结果可能为空
func coerceList(raw string, kind ValueKind) []any {
	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		switch kind {
		case KindText:
			if trimmed != "" {
				values = append(values, trimmed)
			}
		case KindBool:
			if b, err := strconv.ParseBool(trimmed); err == nil {
				values = append(values, b)
			}
		case KindMoney:
			if d, ok := parseMoney(trimmed); ok {
				values = append(values, d)
			}
		default:
			if n, ok := parseNumber(trimmed); ok {
				values = append(values, n)
			}
		}
	}
	return values
}

func parseNumber(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// parseMoney 金额按十进制精确解析，避免浮点误差
func parseMoney(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
