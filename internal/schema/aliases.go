package schema

// defaultDefinitions is the sales schema the BI dashboard expects. Aliases cover
// the Ukrainian and English headers seen in merchant exports; each alias string
// belongs to exactly one field.
var defaultDefinitions = []Definition{
	{
		Field: TransactionDate,
		Type:  TypeDate,
		Aliases: []string{
			"transaction date", "дата", "дата замовлення", "дата продажу",
			"date", "order date", "sale date", "time", "datetime", "timestamp",
		},
	},
	{
		Field: TransactionID,
		Type:  TypeIdentifier,
		Aliases: []string{
			"transaction id", "id", "номер замовлення", "номер чека",
			"order id", "order number", "invoice", "invoice id", "receipt",
		},
	},
	{
		Field: ProductCategory,
		Type:  TypeCategory,
		Aliases: []string{
			"product category", "категорія", "категорія товару", "група товарів",
			"category", "product type",
		},
	},
	{
		Field: Quantity,
		Type:  TypeQuantity,
		Aliases: []string{
			"quantity", "кількість", "кіл-ть", "шт", "qty", "units", "units sold",
		},
	},
	{
		Field: PricePerUnit,
		Type:  TypeAmount,
		Aliases: []string{
			"price per unit", "ціна", "ціна за од", "ціна за одиницю",
			"price", "unit price",
		},
	},
	{
		Field: CostPerUnit,
		Type:  TypeAmount,
		Aliases: []string{
			"cost per unit", "собівартість", "закупівельна ціна",
			"cost", "unit cost", "purchase price",
		},
	},
	{
		Field: ClientRegion,
		Type:  TypeCategory,
		Aliases: []string{
			"client region", "регіон", "місто", "область", "регіон доставки",
			"region", "city", "location",
		},
	},
}
