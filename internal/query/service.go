package query

// PageParams 传输层原样传入的分页参数
type PageParams struct {
	Page     string
	PageSize string
}

// Service 过滤编译入口：解析 -> 校验 -> 分页归一化
type Service struct {
	registry  *Registry
	compiler  *Compiler
	paginator Paginator
}

// NewService 创建过滤编译服务
func NewService(registry *Registry, paginator Paginator, recorder ClauseRecorder) *Service {
	return &Service{
		registry:  registry,
		compiler:  NewCompiler(registry, recorder),
		paginator: NewPaginator(paginator.DefaultPageSize, paginator.MaxPageSize),
	}
}

// Registry 返回白名单
func (s *Service) Registry() *Registry {
	return s.registry
}

// Paginator 返回分页策略
func (s *Service) Paginator() Paginator {
	return s.paginator
}

// CompileFilter 编译过滤表达式与分页参数，从不返回错误；defaults 零值回落到分页器默认值
func (s *Service) CompileFilter(kind EntityKind, raw RawFilter, page PageParams, defaults PageDefaults) Envelope {
	req := s.paginator.Normalize(page.Page, page.PageSize, defaults)
	return Envelope{
		Entity:    kind,
		Page:      req.Page,
		PageSize:  req.PageSize,
		Predicate: s.compiler.Compile(kind, Parse(raw)),
	}
}

// Explain 返回每个子句的编译结果，用于排查被忽略的过滤条件
func (s *Service) Explain(kind EntityKind, raw RawFilter) []Outcome {
	return s.compiler.Evaluate(kind, Parse(raw))
}

// Envelope 构造不带过滤条件的信封
func (s *Service) Envelope(kind EntityKind, page PageParams, defaults PageDefaults) Envelope {
	req := s.paginator.Normalize(page.Page, page.PageSize, defaults)
	return Envelope{
		Entity:    kind,
		Page:      req.Page,
		PageSize:  req.PageSize,
		Predicate: NewCompiledPredicate(),
	}
}

// WithClauses 在已有信封上追加程序化子句（如 RangeClause），同目标覆盖
func (s *Service) WithClauses(env Envelope, clauses ...FilterClause) Envelope {
	extra := s.compiler.Compile(env.Entity, clauses)
	merged := NewCompiledPredicate()
	for col, pred := range env.Predicate.Fields {
		merged.set(Target{Column: col}, pred)
	}
	for rel, group := range env.Predicate.Relations {
		for col, pred := range group {
			merged.set(Target{Relation: rel, Column: col}, pred)
		}
	}
	for col, pred := range extra.Fields {
		merged.set(Target{Column: col}, pred)
	}
	for rel, group := range extra.Relations {
		for col, pred := range group {
			merged.set(Target{Relation: rel, Column: col}, pred)
		}
	}
	env.Predicate = merged
	return env
}
