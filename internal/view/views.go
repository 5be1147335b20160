package view

import (
	"econdash/internal/catalog"
	"econdash/internal/series"
)

// View names served under /api/views/{view}.
const (
	ViewDashboard       = "dashboard"
	ViewGDP             = "gdp"
	ViewInflation       = "inflation"
	ViewCreditCard      = "credit-card"
	ViewInternetBanking = "internet-banking"
	ViewMobilePurchases = "mobile-purchases"
	ViewAgeBreakdown    = "age-breakdown"
)

// Unit codes used to pick one measure out of multi-unit indicators.
const (
	UnitAccounts     = "ACCT"
	UnitTransactions = "TRANSACT"
	UnitPercent      = "PT"
)

const (
	// InflationFactor scales inflation observations for display.
	InflationFactor = 100
	// SubgroupCode is the Findex breakdown for internet payment users.
	SubgroupCode = "FINDEX_DEN_IPS"
	// axisPad widens chart axes on both sides.
	axisPad = 1
)

var definitions = []Definition{
	{
		Name:    ViewDashboard,
		Title:   "Malaysia Economic Dashboard",
		Metrics: []string{catalog.MetricGDP, catalog.MetricCreditCard, catalog.MetricOnlineMerchant, catalog.MetricInternetBanking},
		build:   buildDashboard,
	},
	{
		Name:    ViewGDP,
		Title:   "GDP per Capita and Growth Rate",
		Metrics: []string{catalog.MetricGDP},
		build:   buildGDP,
	},
	{
		Name:    ViewInflation,
		Title:   "Inflation vs GDP per Capita",
		Metrics: []string{catalog.MetricGDP, catalog.MetricInflation},
		build:   buildInflation,
	},
	{
		Name:    ViewCreditCard,
		Title:   "Credit Card Accounts vs GDP per Capita",
		Metrics: []string{catalog.MetricCreditCard, catalog.MetricGDP},
		build:   buildCreditCard,
	},
	{
		Name:    ViewInternetBanking,
		Title:   "Internet Banking vs GDP Over Time",
		Metrics: []string{catalog.MetricInternetBanking, catalog.MetricGDP},
		build:   buildInternetBanking,
	},
	{
		Name:    ViewMobilePurchases,
		Title:   "Mobile Online Purchases & GDP per Capita in Malaysia",
		Metrics: []string{catalog.MetricOnlineMerchant, catalog.MetricGDP},
		build:   buildMobilePurchases,
	},
	{
		Name:    ViewAgeBreakdown,
		Title:   "Online Merchant Payments by Age",
		Metrics: []string{catalog.MetricOnlineMerchant},
		build:   buildAgeBreakdown,
	},
}

// Card is one dashboard summary figure
type Card struct {
	Metric      string  `json:"metric"`
	Title       string  `json:"title"`
	Value       float64 `json:"value"`
	Decimals    int32   `json:"decimals"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

// DashboardData is the dashboard view model
type DashboardData struct {
	Cards []Card         `json:"cards"`
	GDP   []series.Point `json:"gdp"`
}

type cardSpec struct {
	metric   string
	title    string
	decimals int32
	filter   series.Predicates
}

var dashboardCards = []cardSpec{
	{metric: catalog.MetricGDP, title: "GDP per Capita (USD)", decimals: 2},
	{metric: catalog.MetricCreditCard, title: "Credit Card Accounts", decimals: 0},
	{metric: catalog.MetricOnlineMerchant, title: "Online Merchant Payments (%)", decimals: 2},
	{metric: catalog.MetricInternetBanking, title: "Internet Banking Transactions", decimals: 0, filter: series.UnitIs(UnitTransactions)},
}

func buildDashboard(in Inputs, _ Params) (any, Table) {
	data := DashboardData{Cards: make([]Card, 0, len(dashboardCards))}
	table := Table{Name: "dashboard_summary", Columns: []string{"Metric", "Average"}}

	for _, spec := range dashboardCards {
		card := Card{Metric: spec.metric, Title: spec.title, Decimals: spec.decimals}
		if r, ok := in[spec.metric]; !ok || !r.OK() {
			card.Unavailable = true
		} else {
			card.Value = series.Round(series.Mean(numericValues(series.Filter(r.Records, spec.filter))), spec.decimals)
		}
		data.Cards = append(data.Cards, card)
		table.Rows = append(table.Rows, Row{Label: spec.title, Values: []*float64{ptr(card.Value)}})
	}

	present := series.Filter(in.Records(catalog.MetricGDP), series.Predicates{RequireValue: true})
	data.GDP = series.SortByYear(series.Normalize(present, series.FieldTimePeriod, nil))
	return data, table
}

// GDPData is the GDP view model
type GDPData struct {
	Points     []series.Point  `json:"points"`
	Growth     []series.Growth `json:"growth,omitempty"`
	ValueAxis  Axis            `json:"value_axis"`
	GrowthAxis Axis            `json:"growth_axis"`
	Presets    []string        `json:"presets"`
}

func buildGDP(in Inputs, p Params) (any, Table) {
	all := gdpSeries(in)
	// growth uses the full series so the first year in range keeps its rate
	growth := roundGrowth(series.GrowthRates(all), 2)

	points := series.InRange(all, p.Range)
	inRange := series.GrowthInRange(growth, p.Range)

	data := GDPData{
		Points:     points,
		ValueAxis:  axisOf(series.Bounds(series.Values(points), 0)),
		GrowthAxis: axisOf(series.Bounds(series.DefinedPercents(inRange), axisPad)),
		Presets:    series.YearRangePresets,
	}

	table := Table{Name: "gdp_data", Columns: []string{"Year", "GDPperCapita"}}
	byYear := map[string]*float64{}
	if p.Combined {
		data.Growth = inRange
		table.Columns = append(table.Columns, "GrowthRate")
		for _, g := range inRange {
			byYear[g.Year] = g.Percent
		}
	}
	for _, pt := range points {
		row := Row{Label: pt.Key, Values: []*float64{ptr(pt.Value)}}
		if p.Combined {
			row.Values = append(row.Values, byYear[pt.Key])
		}
		table.Rows = append(table.Rows, row)
	}
	return data, table
}

// InflationData is the inflation view model. Either series may hold nil
// where the other has a year it lacks.
type InflationData struct {
	Years         []string   `json:"years"`
	GDP           []*float64 `json:"gdp"`
	Inflation     []*float64 `json:"inflation"`
	InflationAxis Axis       `json:"inflation_axis"`
	GDPAxis       Axis       `json:"gdp_axis"`
	Presets       []string   `json:"presets"`
}

func buildInflation(in Inputs, p Params) (any, Table) {
	gdp := series.InRange(gdpSeries(in), p.Range)
	inflation := series.InRange(series.SortByYear(series.NormalizeWith(
		series.Filter(in.Records(catalog.MetricInflation), numeric()),
		series.NormalizeOptions{Factor: InflationFactor},
	)), p.Range)

	data := InflationData{Presets: series.YearRangePresets}
	if len(gdp) == 0 {
		// GDP drives the axis; without it, show inflation on its own years
		a := series.Align(inflation, gdp, series.Union)
		data.Years, data.Inflation, data.GDP = a.Years, ptrs(a.Primary), a.Secondary
	} else {
		a := series.Align(gdp, inflation, series.Union)
		data.Years, data.GDP, data.Inflation = a.Years, ptrs(a.Primary), a.Secondary
	}
	data.InflationAxis = axisOf(series.BoundsNullable(data.Inflation, axisPad))
	data.GDPAxis = axisOf(series.BoundsNullable(data.GDP, 0))

	table := Table{Name: "inflation_data", Columns: []string{"Year", "InflationRate"}}
	if p.Combined {
		table.Name = "combined_data"
		table.Columns = append(table.Columns, "GDPperCapita")
	}
	for i, year := range data.Years {
		row := Row{Label: year, Values: []*float64{data.Inflation[i]}}
		if p.Combined {
			row.Values = append(row.Values, data.GDP[i])
		}
		table.Rows = append(table.Rows, row)
	}
	return data, table
}

// ComparisonData pairs a metric with GDP per capita over shared years
type ComparisonData struct {
	Years     []string   `json:"years"`
	Values    []float64  `json:"values"`
	GDP       []*float64 `json:"gdp"`
	ValueAxis Axis       `json:"value_axis"`
	GDPAxis   Axis       `json:"gdp_axis"`
}

func buildCreditCard(in Inputs, p Params) (any, Table) {
	credit := series.SortByYear(series.Normalize(
		series.Filter(in.Records(catalog.MetricCreditCard), series.UnitIs(UnitAccounts)),
		series.FieldTimePeriod, nil))
	return compareWithGDP(in, p, credit, "credit_card_data", "CreditCardAccounts")
}

func buildInternetBanking(in Inputs, p Params) (any, Table) {
	banking := series.SortByYear(series.NormalizeWith(
		series.Filter(in.Records(catalog.MetricInternetBanking), series.UnitIs(UnitTransactions)),
		series.NormalizeOptions{ApplyUnitMultiplier: true}))
	return compareWithGDP(in, p, banking, "internet_banking_data", "InternetBanking")
}

// compareWithGDP keeps the years both series cover. When GDP is unavailable
// the metric is shown alone rather than emptied by the intersection.
func compareWithGDP(in Inputs, p Params, values []series.Point, name, column string) (any, Table) {
	values = series.InRange(values, p.Range)
	gdp := series.InRange(gdpSeries(in), p.Range)

	mode := series.Intersect
	if len(gdp) == 0 {
		mode = series.Union
	}
	a := series.Align(values, gdp, mode)

	data := ComparisonData{
		Years:     a.Years,
		Values:    a.Primary,
		GDP:       a.Secondary,
		ValueAxis: axisOf(series.Bounds(a.Primary, 0)),
		GDPAxis:   axisOf(series.BoundsNullable(a.Secondary, 0)),
	}

	table := Table{Name: name, Columns: []string{"Year", column}}
	if p.Combined {
		table.Name = "combined_data"
		table.Columns = append(table.Columns, "GDPperCapita")
	}
	for i, year := range a.Years {
		row := Row{Label: year, Values: []*float64{ptr(a.Primary[i])}}
		if p.Combined {
			row.Values = append(row.Values, a.Secondary[i])
		}
		table.Rows = append(table.Rows, row)
	}
	return data, table
}

// MobileData is the mobile purchases view model
type MobileData struct {
	Years    []string   `json:"years"`
	Overall  []float64  `json:"overall"`
	Subgroup []*float64 `json:"subgroup"`
	GDP      []*float64 `json:"gdp"`
}

func buildMobilePurchases(in Inputs, p Params) (any, Table) {
	percent := series.Filter(in.Records(catalog.MetricOnlineMerchant), series.UnitIs(UnitPercent))
	byBreakdown := func(code string) []series.Point {
		recs := series.Filter(percent, series.Predicates{
			DimensionEquals: map[string]string{series.FieldCompBreakdown1: code},
		})
		return series.InRange(series.SortByYear(series.Normalize(recs, series.FieldTimePeriod, nil)), p.Range)
	}

	overall := byBreakdown(series.TotalCode)
	subgroup := byBreakdown(SubgroupCode)
	gdp := series.InRange(gdpSeries(in), p.Range)

	a := series.AlignMany(overall, series.Union, subgroup, gdp)
	data := MobileData{
		Years:    a.Years,
		Overall:  roundAll(a.Primary, 2),
		Subgroup: roundAllNullable(a.Secondary[0], 2),
		GDP:      a.Secondary[1],
	}

	table := Table{
		Name:    "mobile_purchases_data",
		Columns: []string{"Year", "MobilePurchaseOverall", "MobilePurchaseSubgroup", "GDPperCapita"},
	}
	for i, year := range data.Years {
		table.Rows = append(table.Rows, Row{
			Label:  year,
			Values: []*float64{ptr(data.Overall[i]), data.Subgroup[i], data.GDP[i]},
		})
	}
	return data, table
}

// BreakdownData is a single-year split of a metric by age group
type BreakdownData struct {
	Year   string         `json:"year"`
	Years  []string       `json:"years"`
	Slices []series.Point `json:"slices"`
}

func buildAgeBreakdown(in Inputs, p Params) (any, Table) {
	totals := series.Filter(in.Records(catalog.MetricOnlineMerchant), series.Predicates{
		DimensionEquals: series.TotalsOnly(),
		Custom:          func(r series.Record) bool { return r.UnitMeasure == UnitPercent },
	})

	years := distinctYears(totals)
	data := BreakdownData{Year: p.Year, Years: years, Slices: []series.Point{}}
	if data.Year == "" && len(years) > 0 {
		data.Year = years[len(years)-1]
	}
	if data.Year != "" {
		selected := series.Filter(totals, series.Predicates{TimePeriod: data.Year})
		data.Slices = series.Normalize(selected, series.FieldAge, series.AgeLabels)
	}

	table := Table{Name: "age_breakdown_" + data.Year, Columns: []string{"AgeGroup", "Value"}}
	for _, s := range data.Slices {
		table.Rows = append(table.Rows, Row{Label: s.Key, Values: []*float64{ptr(s.Value)}})
	}
	return data, table
}

// gdpSeries returns GDP per capita with unparseable observations dropped,
// ascending by year.
func gdpSeries(in Inputs) []series.Point {
	recs := series.Filter(in.Records(catalog.MetricGDP), numeric())
	return series.SortByYear(series.Normalize(recs, series.FieldTimePeriod, nil))
}

func numeric() series.Predicates {
	return series.Predicates{Custom: func(r series.Record) bool {
		_, ok := series.ToNumber(r.ObsValue)
		return ok
	}}
}

func numericValues(records []series.Record) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := series.ToNumber(r.ObsValue); ok {
			out = append(out, v)
		}
	}
	return out
}

func distinctYears(records []series.Record) []string {
	seen := map[string]bool{}
	years := []string{}
	for _, r := range records {
		if r.TimePeriod != "" && !seen[r.TimePeriod] {
			seen[r.TimePeriod] = true
			years = append(years, r.TimePeriod)
		}
	}
	series.SortYears(years)
	return years
}

func roundGrowth(growth []series.Growth, places int32) []series.Growth {
	out := make([]series.Growth, len(growth))
	for i, g := range growth {
		out[i] = series.Growth{Year: g.Year}
		if g.Percent != nil {
			out[i].Percent = ptr(series.Round(*g.Percent, places))
		}
	}
	return out
}

func roundAll(values []float64, places int32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = series.Round(v, places)
	}
	return out
}

func roundAllNullable(values []*float64, places int32) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = ptr(series.Round(*v, places))
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func ptrs(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		out[i] = ptr(values[i])
	}
	return out
}
