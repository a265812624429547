package selector

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

// Registry holds selector profiles keyed by name and version.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]map[string]Profile // name -> canonical version -> profile
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]map[string]Profile)}
}

// DefaultRegistry returns a registry preloaded with the built-in profiles.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadDefault(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates p and adds it. Registering the same name@version twice
// is an error.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	v, _ := parseVersion(p.Version)

	r.mu.Lock()
	defer r.mu.Unlock()
	versions, ok := r.profiles[p.Name]
	if !ok {
		versions = make(map[string]Profile)
		r.profiles[p.Name] = versions
	}
	if _, dup := versions[v]; dup {
		return fmt.Errorf("selector: profile %s already registered", p.Ref())
	}
	versions[v] = p
	return nil
}

// Lookup resolves ref, either "name" for the latest version or
// "name@version" for an exact one.
func (r *Registry) Lookup(ref string) (Profile, error) {
	name, version, pinned := strings.Cut(ref, "@")

	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.profiles[name]
	if !ok || len(versions) == 0 {
		return Profile{}, fmt.Errorf("selector: unknown profile %q", name)
	}
	if pinned {
		v, err := parseVersion(version)
		if err != nil {
			return Profile{}, fmt.Errorf("selector: profile ref %q: %w", ref, err)
		}
		p, ok := versions[v]
		if !ok {
			return Profile{}, fmt.Errorf("selector: profile %q has no version %s", name, version)
		}
		return p, nil
	}

	var latest string
	for v := range versions {
		if latest == "" || semver.Compare(v, latest) > 0 {
			latest = v
		}
	}
	return versions[latest], nil
}

// List returns every registered profile ordered by name, then version.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Profile
	for _, versions := range r.profiles {
		for _, p := range versions {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		vi, _ := parseVersion(out[i].Version)
		vj, _ := parseVersion(out[j].Version)
		return semver.Compare(vi, vj) < 0
	})
	return out
}

// LoadDefault registers the profiles compiled into the binary.
func (r *Registry) LoadDefault() error {
	entries, err := fs.ReadDir(builtinProfiles, "profiles")
	if err != nil {
		return fmt.Errorf("selector: reading built-in profiles: %w", err)
	}
	for _, e := range entries {
		data, err := builtinProfiles.ReadFile(path.Join("profiles", e.Name()))
		if err != nil {
			return fmt.Errorf("selector: reading %s: %w", e.Name(), err)
		}
		if err := r.loadBytes(data, e.Name()); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile registers the profiles in a YAML file. A file may hold one
// profile or several as separate YAML documents.
func (r *Registry) LoadFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("selector: reading profile file: %w", err)
	}
	return r.loadBytes(data, file)
}

func (r *Registry) loadBytes(data []byte, source string) error {
	profiles, err := Decode(data)
	if err != nil {
		return fmt.Errorf("selector: %s: %w", source, err)
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return fmt.Errorf("selector: %s: %w", source, err)
		}
	}
	return nil
}

// Decode parses one or more YAML documents into profiles.
func Decode(data []byte) ([]Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []Profile
	for {
		var p Profile
		err := dec.Decode(&p)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding profile: %w", err)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no profile documents found")
	}
	return out, nil
}

// Encode renders a profile as YAML.
func Encode(p Profile) ([]byte, error) {
	return yaml.Marshal(p)
}

func parseVersion(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("version is required")
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("version %q is not valid semver", v)
	}
	return semver.Canonical(v), nil
}
