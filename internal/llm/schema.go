package llm

// Type is a JSON schema type.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Schema is the provider-neutral description of the expected output.
// Properties are kept in Order so prompts and provider payloads are stable.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Order       []string
	Required    []string
	Items       *Schema
	Minimum     *float64
	Maximum     *float64
}

// Object builds an object schema. Every listed property is required.
func Object(props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Order = append(s.Order, p.Name)
		s.Required = append(s.Required, p.Name)
	}
	return s
}

// Property is a named field of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Field pairs a name with its schema.
func Field(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func Integer(description string, min, max float64) *Schema {
	return &Schema{Type: TypeInteger, Description: description, Minimum: &min, Maximum: &max}
}

func ArrayOf(description string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: items}
}

// JSONSchema renders s as a JSON Schema document. Bounds are left out when
// withBounds is false for providers whose strict mode rejects them.
func (s *Schema) JSONSchema(withBounds bool) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	switch s.Type {
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.Order {
			props[name] = s.Properties[name].JSONSchema(withBounds)
		}
		out["properties"] = props
		required := s.Required
		if required == nil {
			required = []string{}
		}
		out["required"] = required
		out["additionalProperties"] = false
	case TypeArray:
		if s.Items != nil {
			out["items"] = s.Items.JSONSchema(withBounds)
		}
	}
	if withBounds {
		if s.Minimum != nil {
			out["minimum"] = *s.Minimum
		}
		if s.Maximum != nil {
			out["maximum"] = *s.Maximum
		}
	}
	return out
}
