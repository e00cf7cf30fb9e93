package resolver

import (
	"context"
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// validateStrict runs kin-openapi's document validation. Swagger 2.0
// documents are converted to OpenAPI 3 first.
func validateStrict(ctx context.Context, raw []byte, tree map[string]any, family string) error {
	var doc *openapi3.T
	if family == family2 {
		data, err := json.Marshal(tree)
		if err != nil {
			return strictError(err)
		}
		var v2 openapi2.T
		if err := json.Unmarshal(data, &v2); err != nil {
			return strictError(err)
		}
		if doc, err = openapi2conv.ToV3(&v2); err != nil {
			return strictError(err)
		}
	} else {
		loader := openapi3.NewLoader()
		loader.Context = ctx
		var err error
		if doc, err = loader.LoadFromData(raw); err != nil {
			return strictError(err)
		}
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return strictError(err)
	}
	return nil
}

func strictError(err error) *SpecError {
	return &SpecError{Kind: KindMalformed, Message: "document failed strict validation", Cause: err}
}
