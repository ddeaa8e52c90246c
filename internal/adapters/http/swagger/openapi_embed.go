package swagger

import _ "embed"

// OpenAPI holds the embedded OpenAPI document served on /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
