package answers

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// Response types with a dedicated value shape.
const (
	ResponseYesNo = "yes_no"
	ResponseText  = "text"
)

// Coerce checks v against a question's response type and returns the value
// to store. Text spellings of yes/no are accepted for yes_no questions.
// Every other response type, text included, stores the value as text.
func Coerce(v api.Value, responseType string) (api.Value, error) {
	if v.IsZero() {
		return v, api.NewValidationError("value", "is required")
	}

	switch strings.ToLower(strings.TrimSpace(responseType)) {
	case ResponseYesNo:
		if v.Kind == api.KindYesNo {
			return v, nil
		}
		b, ok := api.ParseYesNo(v.Text)
		if !ok {
			return v, api.NewValidationError("value", "%q is not a yes/no answer", v.Text)
		}
		return api.YesNo(b), nil
	default:
		if v.Kind == api.KindText {
			return v, nil
		}
		return api.Text(v.String()), nil
	}
}

// Encode renders v for the answers.value column.
func Encode(v api.Value) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding answer value: %w", err)
	}
	return datatypes.JSON(b), nil
}

// Decode reads a stored answers.value column. Legacy bare JSON values are
// accepted.
func Decode(raw datatypes.JSON) (api.Value, error) {
	var v api.Value
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding answer value: %w", err)
	}
	return v, nil
}
