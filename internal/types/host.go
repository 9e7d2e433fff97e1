package types

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultUser is used when a host does not name one.
const DefaultUser = "root"

const hostIDPattern = `^[a-zA-Z0-9_][a-zA-Z0-9_\-]*$`

var hostIDRegexp = regexp.MustCompile(hostIDPattern)

// tagOperators are the characters reserved by the tag query language.
const tagOperators = "!&|()"

// tagSpace separates tags in a query and may not appear inside one. Other
// Unicode spaces are ordinary tag characters.
const tagSpace = " \t\n\r\f\v"

// HostID identifies a host in the inventory.
type HostID struct {
	s string
}

// NewHostID validates src and returns it as a HostID.
func NewHostID(src string) (HostID, error) {
	if !hostIDRegexp.MatchString(src) {
		return HostID{}, Errorf(ErrInvalidHostID, "ID %q does not match regex %s", src, hostIDPattern)
	}
	return HostID{s: src}, nil
}

// MustHostID is NewHostID for literals known to be valid.
func MustHostID(src string) HostID {
	id, err := NewHostID(src)
	if err != nil {
		panic(err)
	}
	return id
}

func (id HostID) String() string { return id.s }

// IsZero reports whether id was never constructed.
func (id HostID) IsZero() bool { return id.s == "" }

func (id HostID) MarshalText() ([]byte, error) { return []byte(id.s), nil }

func (id *HostID) UnmarshalText(text []byte) error {
	parsed, err := NewHostID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *HostID) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(raw))
}

// HostTag is a label used to select hosts with a tag query.
type HostTag struct {
	s string
}

// IsTagRune reports whether r may appear inside a tag. The tag query lexer
// shares this definition.
func IsTagRune(r rune) bool {
	return !IsTagSpace(r) && !strings.ContainsRune(tagOperators, r)
}

// IsTagSpace reports whether r is ASCII whitespace.
func IsTagSpace(r rune) bool {
	return strings.ContainsRune(tagSpace, r)
}

// NewHostTag validates src and returns it as a HostTag.
func NewHostTag(src string) (HostTag, error) {
	if src == "" {
		return HostTag{}, Errorf(ErrInvalidHostTag, "tag must not be empty")
	}
	for _, r := range src {
		if !IsTagRune(r) {
			return HostTag{}, Errorf(ErrInvalidHostTag,
				"tag %q contains %q; tags may not contain whitespace or any of %q", src, r, tagOperators)
		}
	}
	return HostTag{s: src}, nil
}

// MustHostTag is NewHostTag for literals known to be valid.
func MustHostTag(src string) HostTag {
	tag, err := NewHostTag(src)
	if err != nil {
		panic(err)
	}
	return tag
}

func (t HostTag) String() string { return t.s }

func (t HostTag) MarshalText() ([]byte, error) { return []byte(t.s), nil }

func (t *HostTag) UnmarshalText(text []byte) error {
	parsed, err := NewHostTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *HostTag) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(raw))
}

// Host represents one machine in the inventory.
type Host struct {
	ID      HostID         `json:"id"      toml:"id"      yaml:"id"`
	Address string         `json:"address" toml:"address" yaml:"address"` // host:port
	User    string         `json:"user"    toml:"user"    yaml:"user"`
	Tags    []HostTag      `json:"tags"    toml:"tags"    yaml:"tags"`
	Vars    map[string]any `json:"vars"    toml:"vars"    yaml:"vars"`
}

// NewHost returns a host with the default user and no tags or vars.
func NewHost(id HostID, address string) *Host {
	return &Host{
		ID:      id,
		Address: address,
		User:    DefaultUser,
		Tags:    []HostTag{},
		Vars:    map[string]any{},
	}
}

// Normalize fills the defaults a decoded document may have left out.
func (h *Host) Normalize() {
	if h.User == "" {
		h.User = DefaultUser
	}
	if h.Tags == nil {
		h.Tags = []HostTag{}
	}
	if h.Vars == nil {
		h.Vars = map[string]any{}
	}
}

func (h *Host) WithUser(user string) *Host {
	h.User = user
	return h
}

func (h *Host) AddTag(tag HostTag) *Host {
	h.Tags = append(h.Tags, tag)
	return h
}

// RemoveTag drops every occurrence of tag.
func (h *Host) RemoveTag(tag HostTag) *Host {
	h.Tags = lo.Without(h.Tags, tag)
	return h
}

func (h *Host) SetVar(key string, val any) *Host {
	if h.Vars == nil {
		h.Vars = map[string]any{}
	}
	h.Vars[key] = val
	return h
}

func (h *Host) RemoveVar(key string) *Host {
	delete(h.Vars, key)
	return h
}

// TagStrings returns the host tags as plain strings, in order.
func (h Host) TagStrings() []string {
	return lo.Map(h.Tags, func(t HostTag, _ int) string { return t.String() })
}
