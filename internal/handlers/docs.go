package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func errorResponses(codes ...string) object {
	descriptions := map[string]string{
		"400": "Invalid indicator or year range",
		"404": "No data for selected range",
		"503": "Dataset or backing store unavailable",
	}
	out := object{}
	for _, code := range codes {
		out[code] = object{
			"description": descriptions[code],
			"content":     jsonContent(ref("ErrorResponse")),
		}
	}
	return out
}

func selectionParams(indicatorRequired bool) []object {
	return []object{
		{
			"name":        "indicator",
			"in":          "query",
			"description": "Indicator name exactly as listed by /api/indicators",
			"required":    indicatorRequired,
			"schema":      object{"type": "string"},
		},
		{
			"name":        "year_from",
			"in":          "query",
			"description": "First year, inclusive (default: configured range clamped to the data, or the first data year when only year_to is given)",
			"required":    false,
			"schema":      object{"type": "integer"},
		},
		{
			"name":        "year_to",
			"in":          "query",
			"description": "Last year, inclusive (default: configured range clamped to the data, or the last data year when only year_from is given)",
			"required":    false,
			"schema":      object{"type": "integer"},
		},
	}
}

func getOperation(summary, description string, params []object, ok object, errs ...string) object {
	responses := errorResponses(errs...)
	responses["200"] = ok
	op := object{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if params != nil {
		op["parameters"] = params
	}
	return object{"get": op}
}

func openAPIDocument() object {
	schemas := object{
		"Observation": object{
			"type": "object",
			"properties": object{
				"indicator": object{"type": "string"},
				"year":      object{"type": "integer"},
				"value":     object{"type": "number"},
			},
		},
		"Query": object{
			"type": "object",
			"properties": object{
				"indicator": object{"type": "string"},
				"year_from": object{"type": "integer"},
				"year_to":   object{"type": "integer"},
			},
		},
		"Summary": object{
			"type": "object",
			"properties": object{
				"latest_year":   object{"type": "integer"},
				"latest_value":  object{"type": "number"},
				"max_value":     object{"type": "number"},
				"average_value": object{"type": "number", "description": "Rounded to 2 decimals"},
				"count":         object{"type": "integer"},
			},
		},
		"FormattedSummary": object{
			"type": "object",
			"properties": object{
				"latest_value":  object{"type": "string", "example": "1,234.57"},
				"max_value":     object{"type": "string"},
				"average_value": object{"type": "string"},
			},
		},
		"ErrorResponse": object{
			"type": "object",
			"properties": object{
				"error":   object{"type": "string"},
				"message": object{"type": "string"},
				"code":    object{"type": "integer"},
			},
		},
	}

	observations := object{"type": "array", "items": ref("Observation")}

	paths := object{
		"/api/indicators": getOperation(
			"List indicators",
			"Distinct indicator names in lexicographic order",
			nil,
			object{"description": "Indicator catalog", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"indicators": object{"type": "array", "items": object{"type": "string"}},
					"count":      object{"type": "integer"},
				},
			})},
		),
		"/api/years": getOperation(
			"Year bounds",
			"Global minimum and maximum year plus the default selection",
			nil,
			object{"description": "Year bounds", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"min_year":     object{"type": "integer"},
					"max_year":     object{"type": "integer"},
					"default_from": object{"type": "integer"},
					"default_to":   object{"type": "integer"},
				},
			})},
			"503",
		),
		"/api/observations": getOperation(
			"Filter observations",
			"Observations of one indicator inside an inclusive year range, ascending by year",
			selectionParams(true),
			object{"description": "Filtered observations", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"query": ref("Query"),
					"data":  observations,
					"count": object{"type": "integer"},
				},
			})},
			"400", "404",
		),
		"/api/summary": getOperation(
			"Summarize a selection",
			"Latest, maximum and average value over the filtered observations",
			selectionParams(true),
			object{"description": "Summary", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"query":     ref("Query"),
					"summary":   ref("Summary"),
					"formatted": ref("FormattedSummary"),
				},
			})},
			"400", "404",
		),
		"/api/dashboard": getOperation(
			"Full dashboard state",
			"Catalog, bounds, observations and summary in one response. An empty selection returns a notice instead of a summary.",
			selectionParams(false),
			object{"description": "Dashboard view", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"indicators":   object{"type": "array", "items": object{"type": "string"}},
					"bounds":       object{"type": "object"},
					"query":        ref("Query"),
					"observations": observations,
					"summary":      ref("Summary"),
					"formatted":    ref("FormattedSummary"),
					"notice":       object{"type": "string"},
				},
			})},
			"400", "503",
		),
		"/api/chart.png": getOperation(
			"Trend chart",
			"Filled area chart of the selection",
			selectionParams(true),
			object{"description": "PNG image", "content": object{
				"image/png": object{"schema": object{"type": "string", "format": "binary"}},
			}},
			"400", "404",
		),
		"/api/export.xlsx": getOperation(
			"Export selection",
			"XLSX workbook with the observations and the summary",
			selectionParams(true),
			object{"description": "XLSX workbook", "content": object{
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": object{
					"schema": object{"type": "string", "format": "binary"},
				},
			}},
			"400", "404",
		),
		"/health": getOperation(
			"Health check",
			"Reports whether the API and its backing store are available",
			nil,
			object{"description": "API is healthy", "content": jsonContent(object{
				"type": "object",
				"properties": object{
					"status":    object{"type": "string"},
					"source":    object{"type": "string"},
					"timestamp": object{"type": "string", "format": "date-time"},
				},
			})},
			"503",
		),
		"/metrics": getOperation(
			"Prometheus metrics",
			"Prometheus metrics endpoint for monitoring",
			nil,
			object{"description": "Prometheus metrics in text format", "content": object{
				"text/plain": object{"schema": object{"type": "string"}},
			}},
		),
	}

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Climate Indicator Dashboard API",
			"description": "Read-only queries over national climate indicator time series",
			"version":     "1.0.0",
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths":      paths,
		"components": object{"schemas": schemas},
	}
}

// OpenAPISpec serves the OpenAPI 3.0 document for the dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
