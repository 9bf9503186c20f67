package query

import "strings"

// Operator 过滤操作符
type Operator string

const (
	OpEq      Operator = "eq"
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpGt      Operator = "gt"
	OpLt      Operator = "lt"
	OpGte     Operator = "gte"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
)

// AllOperators 全部支持的操作符
var AllOperators = []Operator{OpEq, OpIn, OpLike, OpGt, OpLt, OpGte, OpLte, OpBetween}

// ParseOperator 解析操作符关键字（大小写不敏感）
func ParseOperator(raw string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllOperators {
		if op == known {
			return op, true
		}
	}
	return "", false
}

// Predicate 已校验的单个条件
// between 使用 Values[0]/Values[1] 作为闭区间上下界，in 使用 Values 作为候选集合
type Predicate struct {
	Op     Operator `json:"op"`
	Value  any      `json:"value,omitempty"`
	Values []any    `json:"values,omitempty"`
}

// CompiledPredicate 编译后的过滤条件
// Fields 以主表列名为键，Relations 以关联名 -> 关联表列名为键
type CompiledPredicate struct {
	Fields    map[string]Predicate            `json:"fields,omitempty"`
	Relations map[string]map[string]Predicate `json:"relations,omitempty"`
}

// NewCompiledPredicate 创建空条件
func NewCompiledPredicate() CompiledPredicate {
	return CompiledPredicate{
		Fields:    map[string]Predicate{},
		Relations: map[string]map[string]Predicate{},
	}
}

// IsEmpty 是否没有任何条件
func (p CompiledPredicate) IsEmpty() bool {
	return len(p.Fields) == 0 && len(p.Relations) == 0
}

// Field 读取主表条件
func (p CompiledPredicate) Field(column string) (Predicate, bool) {
	pred, ok := p.Fields[column]
	return pred, ok
}

// Nested 读取关联条件
func (p CompiledPredicate) Nested(relation, column string) (Predicate, bool) {
	group, ok := p.Relations[relation]
	if !ok {
		return Predicate{}, false
	}
	pred, ok := group[column]
	return pred, ok
}

// set 写入条件，同一目标后写覆盖先写
func (p *CompiledPredicate) set(target Target, pred Predicate) {
	if target.Relation == "" {
		if p.Fields == nil {
			p.Fields = map[string]Predicate{}
		}
		p.Fields[target.Column] = pred
		return
	}
	if p.Relations == nil {
		p.Relations = map[string]map[string]Predicate{}
	}
	group, ok := p.Relations[target.Relation]
	if !ok {
		group = map[string]Predicate{}
		p.Relations[target.Relation] = group
	}
	group[target.Column] = pred
}
