/*
Package schema defines typed schemas for environment-style configuration.

A schema maps variable names to field specs. Each spec is normalized into a
Descriptor bound to a registry Type, and applying the schema to a raw
string map yields typed values.

# Schema Definition

A schema in YAML:

	PORT:      number
	HOST:      { type: string, default: localhost }
	DEBUG:     { type: boolean, required: false }
	RATE:      { type: percent, max: 0.5 }
	ADMINS:    { type: emails, help: "comma separated" }
	API_TOKEN: { type: string, destruct: 10m }

The same schema in Go:

	s, err := schema.New([]schema.Entry{
		schema.F("PORT", schema.Number),
		schema.F("HOST", schema.Field{Type: "string", Default: "localhost"}),
		schema.F("DEBUG", schema.Field{Type: "boolean", Required: schema.Bool(false)}),
		schema.F("API_TOKEN", schema.Field{Type: "string", Destruct: "10m"}),
	})

# Field Shapes

A spec may be a type name, an Alias or reflect.Type, a Field, or a
map[string]any. A Field without a type is optional and untyped.

# Types

Builtin types:

  - any:      no cast or validation
  - string:   min, max (length), enum, match
  - number:   float64; min, max, integer
  - float:    same as number
  - percent:  "25%" becomes 0.25; min 0, max 1
  - boolean:  truthy and falsy literal lists
  - array:    delimiter, items, min, max (count)
  - set:      array without duplicates
  - date:     time.Time; min, max
  - duration: time.Duration; unit for bare numbers, min, max
  - email:    lowercased address
  - emails:   list of email
  - keyvals:  map[string]any from k=v pairs or {...}; keys
  - object:   same as keyvals
  - mongouri: mongodb:// or mongodb+srv:// connection string
  - regexp:   /pattern/flags; literal
  - style:    terminal style names such as bold.red
  - uri:      *url.URL; protocols
  - file:     path to an existing regular file; exists

Additional types are added with Registry.Register. A type may borrow the
cast or validator of another type with CastRef and ValidateRef. References
resolve in exactly one hop.

# Apply Order

For each field: a DefaultRaw value is returned as-is; an empty value takes
the Default; optional empty values become nil; the value is cast, checked
for presence, and validated; fields with Destruct are wrapped in a
destruct.Cell. Errors are *FieldError values naming the field.
*/
package schema
