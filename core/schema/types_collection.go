package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

func arrayType() *Type {
	return &Type{
		Name:     "array",
		Cast:     CastWith(castArray),
		Validate: ValidateWith(validateArray),
		Uncast:   uncastArray,
		Describe: describeList("list"),
		Defaults: map[string]any{"delimiter": ","},
	}
}

func setType() *Type {
	return &Type{
		Name:     "set",
		Cast:     CastWith(castSet),
		Validate: ValidateRef("array"),
		Uncast:   uncastArray,
		Describe: describeList("unique list"),
		Defaults: map[string]any{"delimiter": ","},
	}
}

func emailsType() *Type {
	return &Type{
		Name:     "emails",
		Cast:     CastRef("array"),
		Validate: ValidateRef("array"),
		Uncast:   uncastArray,
		Describe: describeList("email list"),
		Defaults: map[string]any{"delimiter": ",", "items": "email"},
	}
}

// itemDescriptor normalizes the "items" option of a list field.
func (d *Descriptor) itemDescriptor() (*Descriptor, error) {
	spec, ok := d.Option("items")
	if !ok {
		return nil, nil
	}
	item, err := d.registryOrDefault().Normalize(d.Name+"[]", spec)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	item.Required = true
	return item, nil
}

// castItem casts and validates a single list element.
func (d *Descriptor) castItem(raw string) (any, error) {
	reg := d.registryOrDefault()

	cast, err := reg.ResolveCast(d.Cast)
	if err != nil {
		return nil, err
	}
	var v any = raw
	if cast != nil {
		if v, err = cast(raw, d); err != nil {
			return nil, err
		}
	}

	validate, err := reg.ResolveValidate(d.Validate)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(v, d); err != nil {
			if err == ErrValidation {
				return nil, fmt.Errorf("%q is not a valid %s", raw, d.Type)
			}
			return nil, err
		}
	}
	return v, nil
}

func splitList(raw, delimiter string) []string {
	var parts []string
	for _, part := range strings.Split(raw, delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func castArray(raw string, d *Descriptor) (any, error) {
	parts := splitList(raw, d.stringOption("delimiter", ","))

	item, err := d.itemDescriptor()
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(parts))
	for i, part := range parts {
		if item == nil {
			out = append(out, part)
			continue
		}
		v, err := item.castItem(part)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func castSet(raw string, d *Descriptor) (any, error) {
	v, err := castArray(raw, d)
	if err != nil {
		return nil, err
	}
	items := v.([]any)

	seen := make(map[string]bool, len(items))
	out := make([]any, 0, len(items))
	for _, item := range items {
		key := fmt.Sprint(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out, nil
}

func validateArray(v any, d *Descriptor) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected a list, got %s", typeOf(v))
	}
	n := float64(len(items))
	if min, ok := d.floatOption("min"); ok && n < min {
		return fmt.Errorf("fewer than %s items", formatFloat(min))
	}
	if max, ok := d.floatOption("max"); ok && n > max {
		return fmt.Errorf("more than %s items", formatFloat(max))
	}
	return nil
}

func uncastArray(v any, d *Descriptor) (string, error) {
	items, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("expected a list, got %s", typeOf(v))
	}

	item, err := d.itemDescriptor()
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(items))
	for _, el := range items {
		if item == nil {
			parts = append(parts, fmt.Sprint(el))
			continue
		}
		s, err := item.UncastValue(el)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, d.stringOption("delimiter", ",")), nil
}

func describeList(name string) DescribeFunc {
	return func(d *Descriptor) string {
		desc := fmt.Sprintf("%s separated by %q", name, d.stringOption("delimiter", ","))
		if items, ok := d.Option("items"); ok {
			desc = fmt.Sprintf("%s of %v", desc, items)
		}
		return desc
	}
}

func keyvalsType() *Type {
	return &Type{
		Name:     "keyvals",
		Cast:     CastWith(castKeyvals),
		Validate: ValidateWith(validateKeyvals),
		Uncast:   uncastKeyvals,
		Describe: func(d *Descriptor) string {
			return fmt.Sprintf("key%svalue pairs separated by %q",
				d.stringOption("separator", "="), d.stringOption("delimiter", ","))
		},
		Defaults: map[string]any{"delimiter": ",", "separator": "="},
	}
}

func objectType() *Type {
	return &Type{
		Name:     "object",
		Cast:     CastRef("keyvals"),
		Validate: ValidateRef("keyvals"),
		Uncast:   uncastKeyvals,
		Describe: func(*Descriptor) string { return "object ({...} or key=value pairs)" },
		Defaults: map[string]any{"delimiter": ",", "separator": "="},
	}
}

func castKeyvals(raw string, d *Descriptor) (any, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "{") {
		var out map[string]any
		if err := yaml.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("invalid object literal: %w", err)
		}
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}

	sep := d.stringOption("separator", "=")
	out := make(map[string]any)
	for _, pair := range splitList(s, d.stringOption("delimiter", ",")) {
		key, value, ok := strings.Cut(pair, sep)
		if !ok {
			return nil, fmt.Errorf("%q is not a key%svalue pair", pair, sep)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%q has an empty key", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func validateKeyvals(v any, d *Descriptor) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("expected key/value pairs, got %s", typeOf(v))
	}
	for _, key := range d.stringsOption("keys") {
		if _, ok := m[key]; !ok {
			return fmt.Errorf("missing key %q", key)
		}
	}
	return nil
}

func uncastKeyvals(v any, d *Descriptor) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("expected key/value pairs, got %s", typeOf(v))
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sep := d.stringOption("separator", "=")
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+sep+fmt.Sprint(m[k]))
	}
	return strings.Join(pairs, d.stringOption("delimiter", ",")), nil
}

// knownStyles are the terminal style names accepted by the style type.
var knownStyles = map[string]bool{
	"reset": true, "bold": true, "dim": true, "italic": true, "underline": true,
	"inverse": true, "hidden": true, "strikethrough": true,
	"black": true, "red": true, "green": true, "yellow": true, "blue": true,
	"magenta": true, "cyan": true, "white": true, "gray": true, "grey": true,
	"bgblack": true, "bgred": true, "bggreen": true, "bgyellow": true,
	"bgblue": true, "bgmagenta": true, "bgcyan": true, "bgwhite": true,
}

func styleType() *Type {
	return &Type{
		Name:     "style",
		Cast:     CastWith(castStyle),
		Validate: ValidateWith(validateStyle),
		Uncast: func(v any, _ *Descriptor) (string, error) {
			items, ok := v.([]any)
			if !ok {
				return "", fmt.Errorf("expected a style list, got %s", typeOf(v))
			}
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, fmt.Sprint(item))
			}
			return strings.Join(parts, "."), nil
		},
		Describe: func(*Descriptor) string { return "terminal style (e.g. bold.red)" },
	}
}

func castStyle(raw string, _ *Descriptor) (any, error) {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == '.' || r == ',' || r == ' ' || r == '\t'
	})
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out, nil
}

func validateStyle(v any, _ *Descriptor) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected a style list, got %s", typeOf(v))
	}
	if len(items) == 0 {
		return fmt.Errorf("empty style")
	}
	for _, item := range items {
		name := fmt.Sprint(item)
		if !knownStyles[name] {
			return fmt.Errorf("unknown style %q", name)
		}
	}
	return nil
}
