package analysis

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

const resultSchema = `{
  "type": "object",
  "properties": {
    "project_overview": {"type": "string"},
    "contributions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "area": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "tech_stack": {"type": "array", "items": {"type": "string"}},
    "code_highlights": {"type": "array", "items": {"type": "string"}}
  }
}`

// maxRepairPasses bounds validate/repair rounds for one object
const maxRepairPasses = 3

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchema))
	})
	return compiledSchema, schemaErr
}

// repair validates obj against the result schema and coerces offending
// values in place. It returns one description per repair.
func repair(obj map[string]interface{}) ([]string, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, errors.InternalErrorf("result schema does not compile: %v", err)
	}

	var repairs []string
	for pass := 0; pass < maxRepairPasses; pass++ {
		result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
		if err != nil {
			return repairs, errors.SchemaErrorf(errors.OriginLLM, "result validation failed: %v", err)
		}
		if result.Valid() {
			return repairs, nil
		}

		for _, verr := range result.Errors() {
			if fixField(obj, strings.Split(verr.Field(), ".")) {
				repairs = append(repairs, verr.Field()+": "+verr.Description())
			}
		}
	}

	return repairs, errors.SchemaErrorf(errors.OriginLLM, "model output does not match the result shape")
}

// fixField coerces the value at path. Paths are gojsonschema field names
// such as "tech_stack", "tech_stack.1" or "contributions.0.area".
func fixField(obj map[string]interface{}, path []string) bool {
	if len(path) == 0 || path[0] == "(root)" {
		return false
	}

	key := path[0]
	val, ok := obj[key]
	if !ok {
		return false
	}

	if len(path) == 1 {
		if s, isString := val.(string); isString && (key == "tech_stack" || key == "code_highlights") {
			obj[key] = []interface{}{s}
			return true
		}
		delete(obj, key)
		return true
	}

	list, ok := val.([]interface{})
	if !ok {
		return false
	}
	idx, err := strconv.Atoi(path[1])
	if err != nil || idx < 0 || idx >= len(list) {
		return false
	}

	if key != "contributions" {
		list[idx] = stringify(list[idx])
		return true
	}

	if len(path) == 2 {
		if s, isString := list[idx].(string); isString {
			list[idx] = map[string]interface{}{"description": s}
		} else {
			list[idx] = map[string]interface{}{}
		}
		return true
	}

	entry, ok := list[idx].(map[string]interface{})
	if !ok {
		return false
	}
	if _, present := entry[path[2]]; !present {
		return false
	}
	entry[path[2]] = stringify(entry[path[2]])
	return true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// NormalizeObject converts a decoded JSON object into an AnalysisResult,
// coercing values of the wrong type and filling absent lists.
func NormalizeObject(obj map[string]interface{}) (models.AnalysisResult, error) {
	var result models.AnalysisResult

	repairs, err := repair(obj)
	for _, r := range repairs {
		slog.Warn("repaired analysis field", "detail", r)
	}
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return result, errors.SchemaErrorf(errors.OriginLLM, "re-encoding result: %v", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, errors.SchemaErrorf(errors.OriginLLM, "decoding result: %v", err)
	}

	result.Normalize()
	return result, nil
}

// ParseResult extracts and normalizes an AnalysisResult from raw model text
func ParseResult(raw string) (models.AnalysisResult, error) {
	obj, strategy, err := Extract(raw)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	slog.Debug("extracted analysis JSON", "strategy", strategy)
	return NormalizeObject(obj)
}
