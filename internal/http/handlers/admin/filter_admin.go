package admin

import (
	"strings"

	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/query"

	"github.com/gin-gonic/gin"
)

type filterOutcomeView struct {
	Field     string           `json:"field"`
	Operator  string           `json:"operator"`
	Value     string           `json:"value"`
	Accepted  bool             `json:"accepted"`
	Reason    string           `json:"reason,omitempty"`
	Relation  string           `json:"relation,omitempty"`
	Column    string           `json:"column,omitempty"`
	Predicate *query.Predicate `json:"predicate,omitempty"`
}

// ExplainFilter 逐条说明过滤子句是否被接受
func (h *Handler) ExplainFilter(c *gin.Context) {
	kind := query.EntityKind(strings.TrimSpace(c.Param("entity")))
	if _, ok := h.Registry.Rules(kind); !ok {
		respondError(c, response.CodeNotFound, "unknown entity", nil)
		return
	}
	raw := query.FilterFromQuery(c.QueryArray(shared.FilterQueryKey))
	outcomes := h.QueryService.Explain(kind, raw)

	items := make([]filterOutcomeView, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch o := outcome.(type) {
		case query.Accepted:
			pred := o.Predicate
			items = append(items, filterOutcomeView{
				Field:     o.Clause.Field,
				Operator:  o.Clause.Operator,
				Value:     o.Clause.RawValue,
				Accepted:  true,
				Relation:  o.Target.Relation,
				Column:    o.Target.Column,
				Predicate: &pred,
			})
		case query.Rejected:
			items = append(items, filterOutcomeView{
				Field:    o.Clause.Field,
				Operator: o.Clause.Operator,
				Value:    o.Clause.RawValue,
				Reason:   string(o.Reason),
			})
		}
	}
	response.Success(c, gin.H{"entity": kind, "clauses": items})
}
