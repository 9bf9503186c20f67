package query

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedClause struct {
	entity   string
	accepted bool
	reason   string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedClause
}

func (r *fakeRecorder) ObserveClause(entity string, accepted bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedClause{entity: entity, accepted: accepted, reason: reason})
}

func compileText(t *testing.T, kind EntityKind, filter string) CompiledPredicate {
	t.Helper()
	return NewCompiler(newTestRegistry(t), nil).Compile(kind, Parse(FilterString(filter)))
}

func TestCompileAcceptedClauseYieldsOneEntry(t *testing.T) {
	pred := compileText(t, EntityOrder, "status.eq.paid")
	require.Len(t, pred.Fields, 1)
	assert.Empty(t, pred.Relations)
	assert.Equal(t, Predicate{Op: OpEq, Value: "paid"}, pred.Fields["status"])
}

func TestCompileDropsUnknownFieldAndOperator(t *testing.T) {
	pred := compileText(t, EntityOrder, "password.eq.x&status.regex.a&status.like.pa")
	require.Len(t, pred.Fields, 1)
	assert.Equal(t, OpLike, pred.Fields["status"].Op)

	pred = compileText(t, EntityOrderItem, "quantity.like.2")
	assert.True(t, pred.IsEmpty())
}

func TestCompileLastWriteWins(t *testing.T) {
	pred := compileText(t, EntityOrder, "id.eq.1&id.gt.5")
	require.Len(t, pred.Fields, 1)
	assert.Equal(t, Predicate{Op: OpGt, Value: int64(5)}, pred.Fields["id"])
}

func TestCompileInCoercion(t *testing.T) {
	pred := compileText(t, EntityOrder, "id.in.1,2,3")
	assert.Equal(t, Predicate{Op: OpIn, Values: []any{int64(1), int64(2), int64(3)}}, pred.Fields["id"])

	pred = compileText(t, EntityOrder, "id.in.abc,def,123")
	assert.Equal(t, []any{int64(123)}, pred.Fields["id"].Values)
}

func TestCompileInAllInvalidYieldsEmptySet(t *testing.T) {
	pred := compileText(t, EntityOrder, "id.in.abc,def")
	got, ok := pred.Field("id")
	require.True(t, ok)
	assert.Equal(t, OpIn, got.Op)
	assert.NotNil(t, got.Values)
	assert.Empty(t, got.Values)
}

func TestCompileInOnTextFieldKeepsStrings(t *testing.T) {
	pred := compileText(t, EntityOrder, "status.in.paid, canceled ,")
	assert.Equal(t, []any{"paid", "canceled"}, pred.Fields["status"].Values)
}

func TestCompileBetweenTextOperandIsRejected(t *testing.T) {
	compiler := NewCompiler(newTestRegistry(t), nil)
	clauses := Parse(FilterString("total_amount.between.10,20"))

	assert.True(t, compiler.Compile(EntityOrder, clauses).IsEmpty())
	outcomes := compiler.Evaluate(EntityOrder, clauses)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonBetweenOperand, outcomes[0].(Rejected).Reason)
}

func TestCompileBetweenProgrammaticRange(t *testing.T) {
	compiler := NewCompiler(newTestRegistry(t), nil)
	pred := compiler.Compile(EntityOrder, []FilterClause{RangeClause("total_amount", "10", "20.5")})
	got := pred.Fields["total_amount"]
	assert.Equal(t, OpBetween, got.Op)
	require.Len(t, got.Values, 2)
	assertMoneyValue(t, "10", got.Values[0])
	assertMoneyValue(t, "20.5", got.Values[1])

	pred = compiler.Compile(EntityOrder, []FilterClause{{Field: "total_amount", Operator: "between", RawValues: []string{"1"}}})
	assert.True(t, pred.IsEmpty())
}

func TestCompileRelationNesting(t *testing.T) {
	pred := compileText(t, EntityOrder, "item_product_id.eq.7&status.eq.paid")
	assert.Len(t, pred.Fields, 1)
	require.Contains(t, pred.Relations, "items")
	assert.Equal(t, Predicate{Op: OpEq, Value: int64(7)}, pred.Relations["items"]["product_id"])
	_, topLevel := pred.Fields["item_product_id"]
	assert.False(t, topLevel)

	got, ok := pred.Nested("items", "product_id")
	require.True(t, ok)
	assert.Equal(t, OpEq, got.Op)
	_, ok = pred.Nested("missing", "product_id")
	assert.False(t, ok)
}

func assertMoneyValue(t *testing.T, want string, got any) {
	t.Helper()
	d, ok := got.(decimal.Decimal)
	require.True(t, ok, "expected decimal operand, got %T", got)
	assert.True(t, d.Equal(decimal.RequireFromString(want)), "want %s got %s", want, d)
}

func TestCompileMoneyOperandsStayExact(t *testing.T) {
	pred := compileText(t, EntityOrder, "total_amount.eq.0.1&item_amount.in.0.2,x,0.30")
	assertMoneyValue(t, "0.1", pred.Fields["total_amount"].Value)
	items := pred.Relations["items"]["amount"]
	require.Len(t, items.Values, 2)
	assertMoneyValue(t, "0.2", items.Values[0])
	assertMoneyValue(t, "0.3", items.Values[1])

	sum := pred.Fields["total_amount"].Value.(decimal.Decimal).Add(items.Values[0].(decimal.Decimal))
	assert.Equal(t, "0.3", sum.String())

	pred = compileText(t, EntityProduct, "price.lt.19.99&stock.gt.2")
	assertMoneyValue(t, "19.99", pred.Fields["price"].Value)
	assert.Equal(t, int64(2), pred.Fields["stock"].Value)
}

func TestCompileScalarCoercion(t *testing.T) {
	pred := compileText(t, EntityOrder, "total_amount.gte.12.50&id.lt.abc")
	assertMoneyValue(t, "12.50", pred.Fields["total_amount"].Value)
	assert.Equal(t, "abc", pred.Fields["id"].Value)

	pred = compileText(t, EntityOrder, "total_amount.gt.NaN&id.eq.Inf")
	assert.Equal(t, "NaN", pred.Fields["total_amount"].Value)
	assert.Equal(t, "Inf", pred.Fields["id"].Value)

	pred = compileText(t, EntityOrder, "order_no.eq.20240101")
	assert.Equal(t, "20240101", pred.Fields["order_no"].Value)

	pred = compileText(t, EntityProduct, "is_active.eq.true")
	assert.Equal(t, true, pred.Fields["is_active"].Value)
}

func TestCompileLikeKeepsRawString(t *testing.T) {
	pred := compileText(t, EntityProduct, "name.like.42")
	assert.Equal(t, Predicate{Op: OpLike, Value: "42"}, pred.Fields["name"])
}

func TestCompileOperatorIsCaseInsensitive(t *testing.T) {
	pred := compileText(t, EntityOrder, "id.GTE.3")
	assert.Equal(t, OpGte, pred.Fields["id"].Op)
}

func TestCompileUnknownEntityNeverPanics(t *testing.T) {
	compiler := NewCompiler(newTestRegistry(t), nil)
	outcomes := compiler.Evaluate(EntityKind("invoice"), Parse(FilterString("id.eq.1")))
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonUnknownEntity, outcomes[0].(Rejected).Reason)

	var nilRegistry *Registry
	assert.True(t, NewCompiler(nilRegistry, nil).Compile(EntityOrder, Parse(FilterString("id.eq.1"))).IsEmpty())
}

func TestCompileMalformedInputNeverPanics(t *testing.T) {
	compiler := NewCompiler(newTestRegistry(t), nil)
	inputs := []string{"", "&&&", ".and..and.", "...", "id.eq.", "id.in.", "id.in.,,,", "\x00.eq.1", "id.between.", "%.like.%"}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			compiler.Compile(EntityOrder, Parse(FilterString(input)))
		}, input)
	}
}

func TestEvaluateReportsEveryClause(t *testing.T) {
	recorder := &fakeRecorder{}
	compiler := NewCompiler(newTestRegistry(t), recorder)
	outcomes := compiler.Evaluate(EntityShop, Parse(FilterString("name.like.north&id.gt.1&secret.eq.1&id.nope.1")))
	require.Len(t, outcomes, 4)

	accepted, ok := outcomes[0].(Accepted)
	require.True(t, ok)
	assert.Equal(t, Target{Column: "name"}, accepted.Target)
	assert.Equal(t, ReasonOperatorNotAllowed, outcomes[1].(Rejected).Reason)
	assert.Equal(t, ReasonUnknownField, outcomes[2].(Rejected).Reason)
	assert.Equal(t, ReasonUnknownOperator, outcomes[3].(Rejected).Reason)

	require.Len(t, recorder.entries, 4)
	assert.Equal(t, recordedClause{entity: "shop", accepted: true}, recorder.entries[0])
	assert.Equal(t, recordedClause{entity: "shop", reason: "unknown_field"}, recorder.entries[2])
}
