package query

import "strings"

const (
	clauseSeparator = "&"
	andSeparator    = ".and."
	partSeparator   = "."
)

// RawFilter 传输层原样传入的过滤表达式（单个字符串或字符串列表）
type RawFilter struct {
	values []string
	single bool
}

// FilterString 单字符串形式，允许以 & 连接多个子句
func FilterString(s string) RawFilter {
	return RawFilter{values: []string{s}, single: true}
}

// FilterList 列表形式，每个元素是一个或多个以 .and. 连接的子句
func FilterList(values ...string) RawFilter {
	return RawFilter{values: append([]string(nil), values...)}
}

// FilterFromQuery 按 query 参数个数选择形式
func FilterFromQuery(values []string) RawFilter {
	if len(values) == 1 {
		return FilterString(values[0])
	}
	return FilterList(values...)
}

// IsEmpty 是否没有任何非空表达式
func (f RawFilter) IsEmpty() bool {
	for _, v := range f.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FilterClause 单个解析后的子句
// 文本语法只填充 RawValue，RawValues 仅由 RangeClause 等程序化构造填充
type FilterClause struct {
	Field     string
	Operator  string
	RawValue  string
	RawValues []string
}

// RangeClause 构造 between 子句
func RangeClause(field, lower, upper string) FilterClause {
	return FilterClause{
		Field:     field,
		Operator:  string(OpBetween),
		RawValues: []string{lower, upper},
	}
}

// Parse 将原始表达式解析为有序子句序列，格式不完整的子句直接丢弃
func Parse(raw RawFilter) []FilterClause {
	entries := normalizeEntries(raw)
	clauses := make([]FilterClause, 0, len(entries))
	for _, entry := range entries {
		for _, part := range strings.Split(entry, andSeparator) {
			clause, ok := parseClause(part)
			if !ok {
				continue
			}
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

func normalizeEntries(raw RawFilter) []string {
	entries := make([]string, 0, len(raw.values))
	for _, v := range raw.values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		entries = append(entries, trimmed)
	}
	if raw.single && len(entries) == 1 && strings.Contains(entries[0], clauseSeparator) {
		split := strings.Split(entries[0], clauseSeparator)
		entries = entries[:0]
		for _, s := range split {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				entries = append(entries, trimmed)
			}
		}
	}
	return entries
}

func parseClause(text string) (FilterClause, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FilterClause{}, false
	}
	parts := strings.SplitN(text, partSeparator, 3)
	if len(parts) < 3 {
		return FilterClause{}, false
	}
	field := strings.TrimSpace(parts[0])
	operator := strings.TrimSpace(parts[1])
	if field == "" || operator == "" {
		return FilterClause{}, false
	}
	return FilterClause{
		Field:    field,
		Operator: operator,
		RawValue: parts[2],
	}, true
}
