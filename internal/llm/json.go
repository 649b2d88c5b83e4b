package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cv-processor/internal/cv"

	"github.com/mitchellh/mapstructure"
)

var errNoJSONObject = errors.New("no JSON object in model response")

// RecoverJSON pulls a JSON object out of a free-form model response.
// It parses the span between the first '{' and the last '}'; if that
// fails it strips a fenced code block and tries the span once more.
func RecoverJSON(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)

	obj, err := decodeBraceSpan(raw)
	if err == nil {
		return obj, nil
	}

	obj, err = decodeBraceSpan(stripFences(raw))
	if err != nil {
		return nil, fmt.Errorf("recover json: %w", err)
	}
	return obj, nil
}

func decodeBraceSpan(s string) (map[string]interface{}, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, errNoJSONObject
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func stripFences(s string) string {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(s, fence)
		if start == -1 {
			continue
		}
		start += len(fence)
		end := strings.LastIndex(s, "```")
		if end > start {
			return strings.TrimSpace(s[start:end])
		}
		return s
	}
	return s
}

// modelFields mirrors the object the prompt asks for. Values are decoded
// weakly: numbers become strings and a bare string becomes a one-item list.
type modelFields struct {
	Name    string   `mapstructure:"name"`
	Email   string   `mapstructure:"email"`
	Phone   string   `mapstructure:"phone"`
	Skills  []string `mapstructure:"skills"`
	Summary string   `mapstructure:"summary"`
}

func decodeFields(obj map[string]interface{}) (*cv.Fields, error) {
	// JSON null leaves the zero value in place.
	for k, v := range obj {
		if v == nil {
			delete(obj, k)
		}
	}

	var mf modelFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &mf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, fmt.Errorf("decode model fields: %w", err)
	}

	fields := &cv.Fields{
		Name:    mf.Name,
		Email:   mf.Email,
		Phone:   mf.Phone,
		Skills:  mf.Skills,
		Summary: mf.Summary,
	}
	fields.Normalize()
	return fields, nil
}
