package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "address":          {"type": "string", "pattern": "^https?://"},
    "namespace":        {"type": "string"},
    "token":            {"type": "string"},
    "token_source":     {"type": "string", "pattern": "^(env|keyring|static:.+|aws-sm://.+|aws-ssm://.+|gcp-sm://projects/[^/]+/secrets/[^/#]+(/versions/[^/#]+)?(#.+)?|azure-kv://[^/]+/[^/]+(/[^/]+)?)$"},
    "headers":          {"type": "object", "additionalProperties": {"type": "string"}},
    "secret_shares":    {"type": "integer", "minimum": 1, "maximum": 255},
    "secret_threshold": {"type": "integer", "minimum": 1, "maximum": 255},
    "timeout_ms":       {"type": "integer", "minimum": 1},
    "tls": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "ca_cert":     {"type": "string"},
        "client_cert": {"type": "string"},
        "client_key":  {"type": "string"},
        "skip_verify": {"type": "boolean"}
      }
    },
    "aws": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "region":            {"type": "string"},
        "endpoint":          {"type": "string", "pattern": "^https?://"},
        "profile":           {"type": "string"},
        "access_key_id":     {"type": "string"},
        "secret_access_key": {"type": "string"},
        "role_arn":          {"type": "string", "pattern": "^arn:aws[a-z-]*:iam::"},
        "external_id":       {"type": "string"}
      },
      "dependencies": {
        "access_key_id":     ["secret_access_key"],
        "secret_access_key": ["access_key_id"]
      }
    },
    "gcp": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "credentials_file":            {"type": "string"},
        "impersonate_service_account": {"type": "string", "pattern": "^[^@]+@[^@]+$"}
      }
    },
    "azure": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "tenant_id":                  {"type": "string"},
        "client_id":                  {"type": "string"},
        "client_secret":              {"type": "string"},
        "managed_identity_client_id": {"type": "string"}
      },
      "dependencies": {
        "client_secret": ["tenant_id", "client_id"]
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(definitionSchema)

// validateSchema checks a decoded YAML document against the config schema.
func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}
	return nil
}
