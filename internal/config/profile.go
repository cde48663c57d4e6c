package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed profile_schema.cue
var profileSchema string

// Profile is a reusable shell setup loaded from a CUE file:
//
//	properties: {
//		"sqlite.foreign_keys": "ON"
//	}
//	resources: [
//		{target: "data/t.csv", data: "a,b\n1,2"},
//		{target: "data/u.csv", source: "fixtures/u.csv"},
//	]
//	output: "last"
type Profile struct {
	Properties map[string]string `json:"properties,omitempty"`
	Resources  []ResourceSpec    `json:"resources,omitempty"`
	Output     string            `json:"output,omitempty"`
}

// ResourceSpec describes one staged resource. Exactly one of Source and Data
// is set. Data is a pointer so an empty literal is distinct from none.
type ResourceSpec struct {
	Target string  `json:"target"`
	Source string  `json:"source,omitempty"`
	Data   *string `json:"data,omitempty"`
}

// Configurable is the pre-start surface a profile is applied to.
type Configurable interface {
	SetProperty(key, value string) error
	AddResource(target, data string) error
	AddResourceFile(target, source string) error
}

// ProfileError reports a profile that failed to load or validate.
type ProfileError struct {
	Path    string
	Message string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

// LoadProfile reads the CUE profile at path and validates it against the
// profile schema. Unknown fields are rejected. Relative resource sources are
// resolved against the profile's directory.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return parseProfile(path, data)
}

func parseProfile(path string, data []byte) (*Profile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(profileSchema, cue.Filename("profile_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &ProfileError{Path: path, Message: cueerrors.Details(err, nil)}
	}

	unified := schema.LookupPath(cue.ParsePath("#Profile")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &ProfileError{Path: path, Message: cueerrors.Details(err, nil)}
	}

	var p Profile
	if err := unified.Decode(&p); err != nil {
		return nil, &ProfileError{Path: path, Message: fmt.Sprintf("decode: %v", err)}
	}

	base := filepath.Dir(path)
	for i := range p.Resources {
		r := &p.Resources[i]
		if (r.Source == "") == (r.Data == nil) {
			return nil, &ProfileError{
				Path:    path,
				Message: fmt.Sprintf("resources[%d] (%s): exactly one of source or data is required", i, r.Target),
			}
		}
		if r.Source != "" && !filepath.IsAbs(r.Source) {
			r.Source = filepath.Join(base, r.Source)
		}
	}

	return &p, nil
}

// Apply registers the profile's properties, in key order, and its resources,
// in declaration order. The first failure is returned.
func (p *Profile) Apply(c Configurable) error {
	for _, k := range Properties(p.Properties).Keys() {
		if err := c.SetProperty(k, p.Properties[k]); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
	}
	for i, r := range p.Resources {
		var err error
		if r.Data != nil {
			err = c.AddResource(r.Target, *r.Data)
		} else {
			err = c.AddResourceFile(r.Target, r.Source)
		}
		if err != nil {
			return fmt.Errorf("resources[%d]: %w", i, err)
		}
	}
	return nil
}
