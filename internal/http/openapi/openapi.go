// Package openapi embeds the OpenAPI description of the cart checkout API.
package openapi

import _ "embed"

// YAML contains the embedded OpenAPI document served at /openapi.yaml.
//
//go:embed openapi.yaml
var YAML []byte
