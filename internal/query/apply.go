package query

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const likeEscapeChar = "!"

var likeEscaper = strings.NewReplacer(
	likeEscapeChar, likeEscapeChar+likeEscapeChar,
	"%", likeEscapeChar+"%",
	"_", likeEscapeChar+"_",
)

// Apply 将已校验的条件追加到查询上
// 列名只来自白名单，取值全部走绑定参数
func Apply(db *gorm.DB, rules EntityRules, pred CompiledPredicate) *gorm.DB {
	if db == nil || pred.IsEmpty() {
		return db
	}
	exprs := Expressions(db, rules, pred)
	if len(exprs) == 0 {
		return db
	}
	return db.Clauses(clause.Where{Exprs: exprs})
}

// Expressions 生成条件表达式，按列名排序保证 SQL 稳定
func Expressions(db *gorm.DB, rules EntityRules, pred CompiledPredicate) []clause.Expression {
	dialect := dialectName(db)
	exprs := make([]clause.Expression, 0, len(pred.Fields)+len(pred.Relations))

	for _, column := range sortedKeys(pred.Fields) {
		col := clause.Column{Table: rules.Table, Name: column}
		exprs = append(exprs, predicateExpressions(dialect, col, pred.Fields[column])...)
	}

	relNames := make([]string, 0, len(pred.Relations))
	for name := range pred.Relations {
		relNames = append(relNames, name)
	}
	sort.Strings(relNames)
	for _, name := range relNames {
		rel, ok := findRelation(rules, name)
		if !ok {
			continue
		}
		if expr := existsExpression(db, dialect, rules.Table, rel, pred.Relations[name]); expr != nil {
			exprs = append(exprs, expr)
		}
	}
	return exprs
}

func predicateExpressions(dialect string, col clause.Column, pred Predicate) []clause.Expression {
	switch pred.Op {
	case OpEq:
		return []clause.Expression{clause.Eq{Column: col, Value: pred.Value}}
	case OpGt:
		return []clause.Expression{clause.Gt{Column: col, Value: pred.Value}}
	case OpLt:
		return []clause.Expression{clause.Lt{Column: col, Value: pred.Value}}
	case OpGte:
		return []clause.Expression{clause.Gte{Column: col, Value: pred.Value}}
	case OpLte:
		return []clause.Expression{clause.Lte{Column: col, Value: pred.Value}}
	case OpIn:
		values := pred.Values
		if values == nil {
			values = []any{}
		}
		return []clause.Expression{clause.IN{Column: col, Values: values}}
	case OpBetween:
		if len(pred.Values) != 2 {
			return nil
		}
		return []clause.Expression{
			clause.Gte{Column: col, Value: pred.Values[0]},
			clause.Lte{Column: col, Value: pred.Values[1]},
		}
	case OpLike:
		pattern := "%" + likeEscaper.Replace(fmt.Sprint(pred.Value)) + "%"
		sql := fmt.Sprintf("? %s ? ESCAPE '%s'", likeOperatorByDialect(dialect), likeEscapeChar)
		return []clause.Expression{clause.Expr{SQL: sql, Vars: []interface{}{col, pattern}}}
	default:
		return nil
	}
}

// existsExpression 关联条件转为相关子查询 EXISTS (SELECT 1 FROM related WHERE ...)
func existsExpression(db *gorm.DB, dialect, baseTable string, rel Relation, group map[string]Predicate) clause.Expression {
	if len(group) == 0 {
		return nil
	}
	inner := []clause.Expression{
		clause.Expr{
			SQL: "? = ?",
			Vars: []interface{}{
				clause.Column{Table: rel.Table, Name: rel.ForeignKey},
				clause.Column{Table: baseTable, Name: rel.LocalKey},
			},
		},
	}
	if rel.SoftDelete {
		inner = append(inner, clause.Eq{Column: clause.Column{Table: rel.Table, Name: "deleted_at"}, Value: nil})
	}
	for _, column := range sortedKeys(group) {
		col := clause.Column{Table: rel.Table, Name: column}
		inner = append(inner, predicateExpressions(dialect, col, group[column])...)
	}
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table(rel.Table).
		Select("1").
		Clauses(clause.Where{Exprs: inner})
	return clause.Expr{SQL: "EXISTS (?)", Vars: []interface{}{sub}}
}

func findRelation(rules EntityRules, name string) (Relation, bool) {
	for _, rel := range rules.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return Relation{}, false
}

func sortedKeys(m map[string]Predicate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}
