package backend

import (
	"bytes"
	"encoding/json"

	"github.com/rohankatakam/gitfolio/internal/analysis"
	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

// Result converts the service payload into an AnalysisResult of the same
// shape the local analyzer produces. raw_analysis may be the structured
// object, a raw model string, or a {error, rawContent} object when the
// service could not parse its own model output.
func (r *GenerateResponse) Result() (models.AnalysisResult, error) {
	raw := bytes.TrimSpace(r.RawAnalysis)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		msg := "generate response has no raw_analysis"
		if r.Error != "" {
			msg += ": " + r.Error
		}
		return models.AnalysisResult{}, errors.SchemaErrorf(errors.OriginBackend, "%s", msg)
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return models.AnalysisResult{}, errors.SchemaErrorf(errors.OriginBackend, "raw_analysis is not valid JSON: %v", err)
	}

	switch v := value.(type) {
	case string:
		return retag(analysis.ParseResult(v))
	case map[string]interface{}:
		if content, ok := v["rawContent"].(string); ok {
			if _, hasError := v["error"]; hasError {
				return retag(analysis.ParseResult(content))
			}
		}
		return retag(analysis.NormalizeObject(v))
	default:
		return models.AnalysisResult{}, errors.SchemaErrorf(errors.OriginBackend, "raw_analysis has unexpected type %T", value)
	}
}

// retag attributes schema failures to the backend rather than the model
func retag(result models.AnalysisResult, err error) (models.AnalysisResult, error) {
	if e, ok := errors.As(err); ok && e.Type == errors.ErrorTypeSchema {
		e.Origin = errors.OriginBackend
	}
	return result, err
}
