package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobeam/stringy"
)

// EntityKind 可过滤的实体类型
type EntityKind string

const (
	EntityOrder     EntityKind = "order"
	EntityOrderItem EntityKind = "order_item"
	EntityProduct   EntityKind = "product"
	EntityShop      EntityKind = "shop"
)

// ValueKind 字段取值类型，决定操作数的转换方式
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
	KindBool
	KindMoney
)

// AllowListEntry 允许过滤的字段
// Relation 为空表示主表字段，Column 为空时取 Field 的 snake_case
type AllowListEntry struct {
	Field    string
	Relation string
	Column   string
	Kind     ValueKind
}

// Relation 关联集合定义：related.ForeignKey = base.LocalKey
type Relation struct {
	Name       string
	Table      string
	ForeignKey string
	LocalKey   string
	SoftDelete bool
}

// EntityRules 单个实体的过滤规则
type EntityRules struct {
	Kind      EntityKind
	Table     string
	Entries   []AllowListEntry
	Operators []Operator
	Relations []Relation
}

// ErrInvalidRules 过滤规则定义非法
var ErrInvalidRules = errors.New("invalid filter rules")

type entityIndex struct {
	rules     EntityRules
	fields    map[string]AllowListEntry
	operators map[Operator]struct{}
	relations map[string]Relation
}

// Registry 只读的过滤白名单，启动时构建一次
type Registry struct {
	entities map[EntityKind]*entityIndex
}

// NewRegistry 校验并冻结过滤规则
func NewRegistry(rules ...EntityRules) (*Registry, error) {
	r := &Registry{entities: make(map[EntityKind]*entityIndex, len(rules))}
	for _, rule := range rules {
		idx, err := indexRules(rule)
		if err != nil {
			return nil, err
		}
		if _, exists := r.entities[rule.Kind]; exists {
			return nil, fmt.Errorf("%w: duplicate entity %q", ErrInvalidRules, rule.Kind)
		}
		r.entities[rule.Kind] = idx
	}
	return r, nil
}

// MustNewRegistry 与 NewRegistry 相同，出错时 panic
func MustNewRegistry(rules ...EntityRules) *Registry {
	r, err := NewRegistry(rules...)
	if err != nil {
		panic(err)
	}
	return r
}

func indexRules(rule EntityRules) (*entityIndex, error) {
	if strings.TrimSpace(string(rule.Kind)) == "" || strings.TrimSpace(rule.Table) == "" {
		return nil, fmt.Errorf("%w: entity kind and table are required", ErrInvalidRules)
	}
	idx := &entityIndex{
		fields:    make(map[string]AllowListEntry, len(rule.Entries)),
		operators: make(map[Operator]struct{}, len(rule.Operators)),
		relations: make(map[string]Relation, len(rule.Relations)),
	}
	for _, rel := range rule.Relations {
		if rel.Name == "" || rel.Table == "" || rel.ForeignKey == "" || rel.LocalKey == "" {
			return nil, fmt.Errorf("%w: %s relation %q is incomplete", ErrInvalidRules, rule.Kind, rel.Name)
		}
		if _, exists := idx.relations[rel.Name]; exists {
			return nil, fmt.Errorf("%w: %s relation %q declared twice", ErrInvalidRules, rule.Kind, rel.Name)
		}
		idx.relations[rel.Name] = rel
	}
	for _, op := range rule.Operators {
		if _, ok := ParseOperator(string(op)); !ok {
			return nil, fmt.Errorf("%w: %s operator %q is unknown", ErrInvalidRules, rule.Kind, op)
		}
		idx.operators[op] = struct{}{}
	}
	entries := make([]AllowListEntry, 0, len(rule.Entries))
	for _, entry := range rule.Entries {
		key := NormalizeFieldName(entry.Field)
		if key == "" {
			return nil, fmt.Errorf("%w: %s has an empty field", ErrInvalidRules, rule.Kind)
		}
		if _, exists := idx.fields[key]; exists {
			return nil, fmt.Errorf("%w: %s field %q declared twice", ErrInvalidRules, rule.Kind, key)
		}
		if entry.Relation != "" {
			if _, ok := idx.relations[entry.Relation]; !ok {
				return nil, fmt.Errorf("%w: %s field %q uses undeclared relation %q", ErrInvalidRules, rule.Kind, key, entry.Relation)
			}
		}
		entry.Field = key
		if entry.Column == "" {
			entry.Column = key
		}
		idx.fields[key] = entry
		entries = append(entries, entry)
	}
	rule.Entries = entries
	idx.rules = rule
	return idx, nil
}

// Lookup 查询字段是否在白名单内
func (r *Registry) Lookup(kind EntityKind, field string) (AllowListEntry, bool) {
	idx, ok := r.index(kind)
	if !ok {
		return AllowListEntry{}, false
	}
	entry, ok := idx.fields[NormalizeFieldName(field)]
	return entry, ok
}

// IsOperatorAllowed 判断实体是否允许该操作符
func (r *Registry) IsOperatorAllowed(kind EntityKind, op Operator) bool {
	idx, ok := r.index(kind)
	if !ok {
		return false
	}
	_, allowed := idx.operators[op]
	return allowed
}

// Rules 返回实体规则
func (r *Registry) Rules(kind EntityKind) (EntityRules, bool) {
	idx, ok := r.index(kind)
	if !ok {
		return EntityRules{}, false
	}
	return idx.rules, true
}

// Relation 返回实体的关联定义
func (r *Registry) Relation(kind EntityKind, name string) (Relation, bool) {
	idx, ok := r.index(kind)
	if !ok {
		return Relation{}, false
	}
	rel, ok := idx.relations[name]
	return rel, ok
}

func (r *Registry) index(kind EntityKind) (*entityIndex, bool) {
	if r == nil {
		return nil, false
	}
	idx, ok := r.entities[kind]
	return idx, ok
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// NormalizeFieldName 统一字段名为 snake_case（totalAmount -> total_amount）
// 非标识符形式的输入原样返回，交由白名单拒绝
func NormalizeFieldName(field string) string {
	trimmed := strings.TrimSpace(field)
	if !identifierPattern.MatchString(trimmed) {
		return trimmed
	}
	if strings.ToLower(trimmed) == trimmed {
		return trimmed
	}
	return stringy.New(trimmed).SnakeCase("?", "").ToLower()
}
