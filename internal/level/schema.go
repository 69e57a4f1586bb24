package level

import "github.com/invopop/jsonschema"

// Schema describes the level file format for editors and validators.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(File))
	schema.Title = "Elemental Cave Level"
	schema.Description = "Validates level files loaded by the level catalog"
	return schema
}
