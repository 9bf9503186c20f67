package shared

import (
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/query"

	"github.com/gin-gonic/gin"
)

// FilterQueryKey 过滤表达式的 query 参数名，可重复出现
const FilterQueryKey = "filter"

// BindEnvelope 从请求读取过滤表达式与分页参数并编译为查询信封。
func BindEnvelope(c *gin.Context, svc *query.Service, kind query.EntityKind) query.Envelope {
	raw := query.FilterFromQuery(c.QueryArray(FilterQueryKey))
	return svc.CompileFilter(kind, raw, query.PageParams{
		Page:     c.Query("page"),
		PageSize: c.Query("page_size"),
	}, query.PageDefaults{})
}

// PaginationOf 由信封与总数生成分页信息。
func PaginationOf[T any](env query.Envelope, result query.PageResult[T]) response.Pagination {
	return response.Pagination{
		Page:      env.Page,
		PageSize:  env.PageSize,
		Total:     result.Count,
		TotalPage: result.TotalPages(env.PageSize),
	}
}

// RespondPage 返回分页列表。
func RespondPage[T any](c *gin.Context, env query.Envelope, result query.PageResult[T]) {
	response.SuccessWithPage(c, result.Data, PaginationOf(env, result))
}
