// Package api embeds the OpenAPI contract served at /openapi.yml.
package api

import _ "embed"

//go:embed openapi.yml
var Spec []byte
