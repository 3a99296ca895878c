package schema

import (
	"net/url"
	"reflect"
	"regexp"
	"time"
)

// Alias names a registry type the way a native type would in shorthand
// schemas: schema.New([]Entry{F("PORT", schema.Number)}).
type Alias string

// Native aliases.
const (
	Any      Alias = "any"
	String   Alias = "string"
	Number   Alias = "number"
	Boolean  Alias = "boolean"
	Array    Alias = "array"
	Set      Alias = "set"
	RegExp   Alias = "regexp"
	Date     Alias = "date"
	Duration Alias = "duration"
	Object   Alias = "object"
	URL      Alias = "uri"
)

// goTypeAliases maps Go types to the registry type that produces them.
var goTypeAliases = map[reflect.Type]string{
	reflect.TypeOf(""):                       "string",
	reflect.TypeOf(float64(0)):               "number",
	reflect.TypeOf(float32(0)):               "number",
	reflect.TypeOf(int(0)):                   "number",
	reflect.TypeOf(int64(0)):                 "number",
	reflect.TypeOf(false):                    "boolean",
	reflect.TypeOf([]any(nil)):               "array",
	reflect.TypeOf([]string(nil)):            "array",
	reflect.TypeOf(map[string]struct{}(nil)): "set",
	reflect.TypeOf((*regexp.Regexp)(nil)):    "regexp",
	reflect.TypeOf(time.Time{}):              "date",
	reflect.TypeOf(time.Duration(0)):         "duration",
	reflect.TypeOf(map[string]any(nil)):      "object",
	reflect.TypeOf(map[string]string(nil)):   "keyvals",
	reflect.TypeOf((*url.URL)(nil)):          "uri",
	reflect.TypeOf(url.URL{}):                "uri",
}

// aliasName returns the registry name for an alias value, if v is one.
func aliasName(v any) (string, bool) {
	switch a := v.(type) {
	case Alias:
		return string(a), true
	case reflect.Type:
		name, ok := goTypeAliases[a]
		if !ok {
			return "", false
		}
		return name, true
	default:
		return "", false
	}
}

// isAlias reports whether v is an alias-shaped value, known or not.
func isAlias(v any) bool {
	switch v.(type) {
	case Alias, reflect.Type:
		return true
	default:
		return false
	}
}
