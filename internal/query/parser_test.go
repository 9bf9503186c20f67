package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleStringSplitsOnAmpersand(t *testing.T) {
	clauses := Parse(FilterString("status.eq.paid&total_amount.gt.10"))
	require.Len(t, clauses, 2)
	assert.Equal(t, FilterClause{Field: "status", Operator: "eq", RawValue: "paid"}, clauses[0])
	assert.Equal(t, FilterClause{Field: "total_amount", Operator: "gt", RawValue: "10"}, clauses[1])
}

func TestParseAndSeparatorIsSynonymForAmpersand(t *testing.T) {
	withAnd := Parse(FilterString("status.eq.paid.and.total_amount.gt.10"))
	withAmp := Parse(FilterString("status.eq.paid&total_amount.gt.10"))
	assert.Equal(t, withAmp, withAnd)
}

func TestParseListDoesNotSplitOnAmpersand(t *testing.T) {
	clauses := Parse(FilterList("name.like.salt&pepper", "  ", "id.eq.3"))
	require.Len(t, clauses, 2)
	assert.Equal(t, "salt&pepper", clauses[0].RawValue)
	assert.Equal(t, "id", clauses[1].Field)
}

func TestParseDropsEmptyAndMalformedClauses(t *testing.T) {
	clauses := Parse(FilterList("", "   ", "status", "status.eq", ".eq.1", "id..1", "id.eq.1"))
	require.Len(t, clauses, 1)
	assert.Equal(t, FilterClause{Field: "id", Operator: "eq", RawValue: "1"}, clauses[0])
}

func TestParseKeepsDotsInValue(t *testing.T) {
	clauses := Parse(FilterString("customer_email.eq.a.b@example.com"))
	require.Len(t, clauses, 1)
	assert.Equal(t, "a.b@example.com", clauses[0].RawValue)
}

func TestParseTrimsFieldAndOperator(t *testing.T) {
	clauses := Parse(FilterString("  id . EQ .5  "))
	require.Len(t, clauses, 1)
	assert.Equal(t, "id", clauses[0].Field)
	assert.Equal(t, "EQ", clauses[0].Operator)
	assert.Equal(t, "5", clauses[0].RawValue)
}

func TestParsePreservesOrder(t *testing.T) {
	clauses := Parse(FilterString("x.eq.1&x.gt.5"))
	require.Len(t, clauses, 2)
	assert.Equal(t, "eq", clauses[0].Operator)
	assert.Equal(t, "gt", clauses[1].Operator)
}

func TestFilterFromQuery(t *testing.T) {
	assert.Len(t, Parse(FilterFromQuery([]string{"id.eq.1&id.eq.2"})), 2)
	assert.Len(t, Parse(FilterFromQuery([]string{"name.like.a&b", "id.eq.2"})), 2)
	assert.True(t, FilterFromQuery(nil).IsEmpty())
	assert.True(t, FilterList(" ", "").IsEmpty())
	assert.False(t, FilterString("id.eq.1").IsEmpty())
}

func TestRangeClauseCarriesTwoOperands(t *testing.T) {
	clause := RangeClause("total_amount", "10", "20")
	assert.Equal(t, "between", clause.Operator)
	assert.Equal(t, []string{"10", "20"}, clause.RawValues)
	assert.Empty(t, clause.RawValue)
}
