package schema

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(
	`^[a-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`,
)

func emailType() *Type {
	return &Type{
		Name: "email",
		Cast: CastWith(func(raw string, _ *Descriptor) (any, error) {
			return strings.ToLower(strings.TrimSpace(raw)), nil
		}),
		Validate: ValidateWith(func(v any, _ *Descriptor) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected an email address, got %s", typeOf(v))
			}
			if !emailRegex.MatchString(s) {
				return fmt.Errorf("%q is not a valid email address", s)
			}
			return nil
		}),
		Describe: func(*Descriptor) string { return "email address" },
	}
}

func mongoURIType() *Type {
	return &Type{
		Name: "mongouri",
		Cast: CastWith(func(raw string, _ *Descriptor) (any, error) {
			return strings.TrimSpace(raw), nil
		}),
		Validate: ValidateWith(func(v any, _ *Descriptor) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a mongodb uri, got %s", typeOf(v))
			}
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") || u.Host == "" {
				return fmt.Errorf("not a valid mongodb uri")
			}
			return nil
		}),
		Describe: func(*Descriptor) string { return "mongodb:// or mongodb+srv:// connection string" },
	}
}

func uriType() *Type {
	return &Type{
		Name: "uri",
		Cast: CastWith(func(raw string, _ *Descriptor) (any, error) {
			u, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid uri: %w", err)
			}
			return u, nil
		}),
		Validate: ValidateWith(validateURI),
		Uncast: func(v any, _ *Descriptor) (string, error) {
			u, ok := v.(*url.URL)
			if !ok {
				return "", fmt.Errorf("expected a uri, got %s", typeOf(v))
			}
			return u.String(), nil
		},
		Describe: func(d *Descriptor) string {
			if protocols := d.stringsOption("protocols"); len(protocols) > 0 {
				return "uri (" + strings.Join(protocols, "|") + ")"
			}
			return "absolute uri"
		},
	}
}

func validateURI(v any, d *Descriptor) error {
	u, ok := v.(*url.URL)
	if !ok {
		return fmt.Errorf("expected a uri, got %s", typeOf(v))
	}
	if u.Scheme == "" {
		return fmt.Errorf("%q is not an absolute uri", u.String())
	}
	if u.Host == "" && u.Opaque == "" && u.Scheme != "file" {
		return fmt.Errorf("%q has no host", u.String())
	}
	if protocols := d.stringsOption("protocols"); len(protocols) > 0 {
		for _, p := range protocols {
			if strings.EqualFold(strings.TrimSuffix(p, ":"), u.Scheme) {
				return nil
			}
		}
		return fmt.Errorf("protocol %q not allowed", u.Scheme)
	}
	return nil
}

func regexpType() *Type {
	return &Type{
		Name: "regexp",
		Cast: CastWith(func(raw string, d *Descriptor) (any, error) {
			return compileRegexp(raw, d.boolOption("literal", false))
		}),
		Validate: ValidateWith(func(v any, _ *Descriptor) error {
			if _, ok := v.(*regexp.Regexp); !ok {
				return fmt.Errorf("expected a regular expression, got %s", typeOf(v))
			}
			return nil
		}),
		Uncast: func(v any, _ *Descriptor) (string, error) {
			re, ok := v.(*regexp.Regexp)
			if !ok {
				return "", fmt.Errorf("expected a regular expression, got %s", typeOf(v))
			}
			return "/" + re.String() + "/", nil
		},
		Describe: func(d *Descriptor) string {
			if d.boolOption("literal", false) {
				return "regular expression (/pattern/flags) or plain text"
			}
			return "regular expression (/pattern/flags)"
		},
	}
}

// compileRegexp parses "/pattern/flags". Undelimited input is quoted as
// literal text when literal is set, and rejected otherwise.
func compileRegexp(raw string, literal bool) (*regexp.Regexp, error) {
	s := strings.TrimSpace(raw)

	last := strings.LastIndex(s, "/")
	if !strings.HasPrefix(s, "/") || last <= 0 {
		if !literal {
			return nil, fmt.Errorf("%q is not a /pattern/flags regular expression", raw)
		}
		return regexp.Compile(regexp.QuoteMeta(s))
	}

	pattern, flags := s[1:last], s[last+1:]
	for _, f := range flags {
		if !strings.ContainsRune("imsU", f) {
			return nil, fmt.Errorf("unknown regexp flag %q", f)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}
	return re, nil
}

func fileType() *Type {
	return &Type{
		Name: "file",
		Cast: CastWith(func(raw string, _ *Descriptor) (any, error) {
			return filepath.Clean(strings.TrimSpace(raw)), nil
		}),
		Validate: ValidateWith(validateFile),
		Describe: func(d *Descriptor) string {
			if d.boolOption("exists", true) {
				return "path to an existing file"
			}
			return "file path"
		},
		Defaults: map[string]any{"exists": true},
	}
}

func validateFile(v any, d *Descriptor) error {
	path, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected a file path, got %s", typeOf(v))
	}
	if !d.boolOption("exists", true) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %q does not exist", path)
		}
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", path)
	}
	return nil
}
