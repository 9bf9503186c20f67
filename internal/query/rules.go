package query

// DefaultRules 返回四类实体的过滤规则（每次调用新建，互不共享）
func DefaultRules() []EntityRules {
	return []EntityRules{
		orderRules(),
		orderItemRules(),
		productRules(),
		shopRules(),
	}
}

// NewDefaultRegistry 基于默认规则构建白名单
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultRules()...)
}

func orderRules() EntityRules {
	return EntityRules{
		Kind:  EntityOrder,
		Table: "orders",
		Entries: []AllowListEntry{
			{Field: "id"},
			{Field: "order_no", Kind: KindText},
			{Field: "shop_id"},
			{Field: "status", Kind: KindText},
			{Field: "currency", Kind: KindText},
			{Field: "total_amount", Kind: KindMoney},
			{Field: "customer_email", Kind: KindText},
			{Field: "created_at", Kind: KindText},
			{Field: "item_product_id", Relation: "items", Column: "product_id"},
			{Field: "item_quantity", Relation: "items", Column: "quantity"},
			{Field: "item_unit_price", Relation: "items", Column: "unit_price", Kind: KindMoney},
			{Field: "item_amount", Relation: "items", Column: "amount", Kind: KindMoney},
		},
		Operators: append([]Operator(nil), AllOperators...),
		Relations: []Relation{
			{Name: "items", Table: "order_items", ForeignKey: "order_id", LocalKey: "id", SoftDelete: true},
		},
	}
}

func orderItemRules() EntityRules {
	return EntityRules{
		Kind:  EntityOrderItem,
		Table: "order_items",
		Entries: []AllowListEntry{
			{Field: "id"},
			{Field: "order_id"},
			{Field: "product_id"},
			{Field: "quantity"},
			{Field: "unit_price", Kind: KindMoney},
			{Field: "amount", Kind: KindMoney},
			{Field: "order_status", Relation: "order", Column: "status", Kind: KindText},
		},
		Operators: []Operator{OpEq, OpIn, OpGt, OpLt, OpGte, OpLte, OpBetween},
		Relations: []Relation{
			{Name: "order", Table: "orders", ForeignKey: "id", LocalKey: "order_id", SoftDelete: true},
		},
	}
}

func productRules() EntityRules {
	return EntityRules{
		Kind:  EntityProduct,
		Table: "products",
		Entries: []AllowListEntry{
			{Field: "id"},
			{Field: "shop_id"},
			{Field: "sku", Kind: KindText},
			{Field: "name", Kind: KindText},
			{Field: "price", Kind: KindMoney},
			{Field: "stock"},
			{Field: "is_active", Kind: KindBool},
			{Field: "shop_name", Relation: "shop", Column: "name", Kind: KindText},
			{Field: "shop_status", Relation: "shop", Column: "status", Kind: KindText},
		},
		Operators: append([]Operator(nil), AllOperators...),
		Relations: []Relation{
			{Name: "shop", Table: "shops", ForeignKey: "id", LocalKey: "shop_id", SoftDelete: true},
		},
	}
}

func shopRules() EntityRules {
	return EntityRules{
		Kind:  EntityShop,
		Table: "shops",
		Entries: []AllowListEntry{
			{Field: "id"},
			{Field: "slug", Kind: KindText},
			{Field: "name", Kind: KindText},
			{Field: "status", Kind: KindText},
			{Field: "created_at", Kind: KindText},
			{Field: "product_name", Relation: "products", Column: "name", Kind: KindText},
			{Field: "product_price", Relation: "products", Column: "price", Kind: KindMoney},
			{Field: "product_is_active", Relation: "products", Column: "is_active", Kind: KindBool},
		},
		Operators: []Operator{OpEq, OpIn, OpLike, OpBetween},
		Relations: []Relation{
			{Name: "products", Table: "products", ForeignKey: "shop_id", LocalKey: "id", SoftDelete: true},
		},
	}
}
