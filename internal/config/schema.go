package config

// schemaJSON is the embedded JSON Schema for an LMN VM config file. It is
// compiled once at package init and used to validate every loaded document
// before it is unmarshaled into a fileConfig, following the same
// NewCompiler/AddResource/Compile shape the corpus's types.Validator uses
// for parameter schemas.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "schemaVersion": { "type": "string" },
    "max_operations": { "type": "integer", "minimum": 1 },
    "max_stack_depth": { "type": "integer", "minimum": 1 },
    "max_saturate_iterations": { "type": "integer", "minimum": 1 },
    "max_bindings": { "type": "integer", "minimum": 1 },
    "trace_enabled": { "type": "boolean" }
  }
}`

// CurrentSchemaVersion is the schema version this build was written against.
// Config files with an older compatible major version still load, with a
// warning, rather than failing closed - see Load.
const CurrentSchemaVersion = "v1.0.0"
