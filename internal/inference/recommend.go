package inference

import (
	"sqlpanel/internal/model"
)

// MaxPieCategories is the largest number of distinct X values still drawn
// as a pie.
const MaxPieCategories = 8

// InferSchema classifies each column of a positional result.
func InferSchema(columns []string, rows [][]any) []model.SchemaField {
	schema := make([]model.SchemaField, len(columns))
	for i, name := range columns {
		values := make([]any, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		schema[i] = model.SchemaField{Name: name, SemanticType: IdentifySemanticType(values)}
	}
	return schema
}

// RecommendChartType picks a chart from the types of the first two fields.
func RecommendChartType(schema []model.SchemaField, rows [][]any) model.ChartType {
	if len(schema) < 2 {
		return model.ChartBar
	}

	x, y := schema[0].SemanticType, schema[1].SemanticType
	switch {
	case x == model.SemanticNumber && y == model.SemanticNumber:
		return model.ChartScatter
	case x == model.SemanticDate && y == model.SemanticNumber:
		return model.ChartLine
	case x == model.SemanticString && y == model.SemanticNumber:
		if DistinctCount(rows, 0) <= MaxPieCategories {
			return model.ChartPie
		}
		return model.ChartBar
	default:
		return model.ChartBar
	}
}

// ResolveChartType only consults the recommendation when auto was requested.
func ResolveChartType(requested model.ChartType, schema []model.SchemaField, rows [][]any) model.ChartType {
	if requested == "" || requested == model.ChartAuto {
		return RecommendChartType(schema, rows)
	}
	return requested
}

// DistinctCount counts distinct stringified values in a column; nulls count
// as one value.
func DistinctCount(rows [][]any, column int) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if column >= len(row) {
			continue
		}
		key, ok := Stringify(row[column])
		if !ok {
			key = "\x00null"
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
