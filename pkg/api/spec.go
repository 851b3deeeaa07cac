package api

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// SpecYAML is the raw OpenAPI document served at /openapi.yaml
//
//go:embed openapi.yaml
var SpecYAML []byte

// GetSwagger returns the parsed and validated OpenAPI document
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(SpecYAML)
	if err != nil {
		return nil, fmt.Errorf("error loading openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("error validating openapi document: %w", err)
	}
	return swagger, nil
}
