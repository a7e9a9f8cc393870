package hypercube

// sampleCubeDefinition builds the sales cube used across the engine tests:
// three dimensions (time, geography, product), four measures and ten seed
// fact rows spanning 2023 Q1-Q4 and 2024 Q1-Q4.
func sampleCubeDefinition() *CubeDefinition {
	fact := func(year float64, quarter, month, region, country, state, category, item string, revenue, units, price float64, customer string) FactRow {
		return FactRow{
			Dimensions: map[string]map[string]Scalar{
				"time": {
					"year":    Num(year),
					"quarter": Str(quarter),
					"month":   Str(month),
				},
				"geography": {
					"region":  Str(region),
					"country": Str(country),
					"state":   Str(state),
				},
				"product": {
					"category": Str(category),
					"item":     Str(item),
				},
			},
			Metrics: map[string]Scalar{
				"revenue":  Num(revenue),
				"units":    Num(units),
				"price":    Num(price),
				"customer": Str(customer),
			},
		}
	}

	return &CubeDefinition{
		Name: "sales",
		Dimensions: []Dimension{
			{Name: "time", Hierarchy: []string{"year", "quarter", "month"}},
			{Name: "geography", Hierarchy: []string{"region", "country", "state"}},
			{Name: "product", Hierarchy: []string{"category", "item"}},
		},
		Measures: []Measure{
			{Name: "revenue", ValueField: "revenue", Aggregation: AggSum},
			{Name: "units", ValueField: "units", Aggregation: AggSum},
			{Name: "avgPrice", ValueField: "price", Aggregation: AggAvg},
			{Name: "customers", ValueField: "customer", Aggregation: AggDistinct},
		},
		Facts: []FactRow{
			fact(2023, "Q1", "Jan", "North America", "USA", "California", "Hardware", "Laptop", 1200, 4, 300, "acme"),
			fact(2023, "Q1", "Feb", "North America", "USA", "New York", "Hardware", "Desktop", 900, 2, 450, "globex"),
			fact(2023, "Q2", "Apr", "Europe", "Germany", "Bavaria", "Software", "Suite", 1500, 5, 300, "initech"),
			fact(2023, "Q2", "May", "Europe", "France", "Ile-de-France", "Software", "Suite", 1200, 3, 400, "acme"),
			fact(2023, "Q3", "Jul", "Asia", "Japan", "Tokyo", "Hardware", "Tablet", 2000, 6, 333.25, "umbrella"),
			fact(2023, "Q4", "Oct", "North America", "Canada", "Ontario", "Hardware", "Laptop", 1400, 4, 350, "globex"),
			fact(2024, "Q1", "Jan", "North America", "USA", "Texas", "Software", "Suite", 1300, 3, 433.25, "acme"),
			fact(2024, "Q2", "Apr", "Europe", "Germany", "Berlin", "Hardware", "Desktop", 800, 2, 400, "hooli"),
			fact(2024, "Q3", "Aug", "Asia", "China", "Shanghai", "Hardware", "Tablet", 1700, 4, 425, "initech"),
			fact(2024, "Q4", "Nov", "Europe", "UK", "England", "Software", "Suite", 900, 2, 450, "umbrella"),
		},
	}
}

// newSampleEngine registers the sales cube on a fresh engine.
func newSampleEngine(cfg Config) *Engine {
	eng := NewEngine(cfg)
	if err := eng.RegisterCube(sampleCubeDefinition()); err != nil {
		panic(err)
	}
	return eng
}
