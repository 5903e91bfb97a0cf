// Package uri implements the structured resource identifiers used to address
// nodes in the discovery tree.
//
// The text form is "//authority/entity/version/resource". Every element after
// the leading "//" is one segment. The root has no segments and is written "/".
package uri

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	rootText   = "/"
	schemeMark = "//"
	separator  = "/"
)

var (
	ErrEmpty         = errors.New("uri: empty")
	ErrMissingPrefix = errors.New("uri: missing leading \"//\"")
	ErrEmptySegment  = errors.New("uri: empty segment")
	ErrIllegalChar   = errors.New("uri: illegal character")
)

// Root is the URI of the tree root.
var Root = URI{}

// URI is an immutable ordered sequence of non-empty segments.
type URI struct {
	segments []string
	key      string
}

// Parse parses the text form of a URI.
func Parse(s string) (URI, error) {
	if s == "" {
		return URI{}, ErrEmpty
	}
	if s == rootText {
		return Root, nil
	}
	if !strings.HasPrefix(s, schemeMark) {
		return URI{}, fmt.Errorf("%w: %q", ErrMissingPrefix, s)
	}
	segs := strings.Split(s[len(schemeMark):], separator)
	for _, seg := range segs {
		if err := checkSegment(seg); err != nil {
			return URI{}, fmt.Errorf("%w in %q", err, s)
		}
	}
	return URI{segments: segs, key: s}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// New builds a URI from its segments.
func New(segments ...string) (URI, error) {
	for _, seg := range segments {
		if err := checkSegment(seg); err != nil {
			return URI{}, err
		}
	}
	cp := make([]string, len(segments))
	copy(cp, segments)
	return fromSegments(cp), nil
}

func fromSegments(segs []string) URI {
	if len(segs) == 0 {
		return Root
	}
	return URI{segments: segs, key: schemeMark + strings.Join(segs, separator)}
}

func checkSegment(seg string) error {
	if seg == "" {
		return ErrEmptySegment
	}
	for _, r := range seg {
		switch {
		case r == '/', r == '#', r == '?':
			return fmt.Errorf("%w %q", ErrIllegalChar, r)
		case unicode.IsSpace(r), unicode.IsControl(r):
			return fmt.Errorf("%w %q", ErrIllegalChar, r)
		}
	}
	return nil
}

// String returns the canonical text form.
func (u URI) String() string {
	if len(u.segments) == 0 {
		return rootText
	}
	return u.key
}

// Key returns the canonical text form; it identifies the URI in maps.
func (u URI) Key() string { return u.String() }

func (u URI) IsRoot() bool { return len(u.segments) == 0 }

// Len returns the number of segments.
func (u URI) Len() int { return len(u.segments) }

// Segments returns a copy of the segments.
func (u URI) Segments() []string {
	cp := make([]string, len(u.segments))
	copy(cp, u.segments)
	return cp
}

// Last returns the final segment, or "" for the root.
func (u URI) Last() string {
	if len(u.segments) == 0 {
		return ""
	}
	return u.segments[len(u.segments)-1]
}

// Parent returns the URI with the final segment removed. The root is its own parent.
func (u URI) Parent() URI {
	if len(u.segments) <= 1 {
		return Root
	}
	return u.Prefix(len(u.segments) - 1)
}

// Prefix returns the URI made of the first n segments.
func (u URI) Prefix(n int) URI {
	if n <= 0 {
		return Root
	}
	if n >= len(u.segments) {
		return u
	}
	return fromSegments(u.segments[:n:n])
}

// Child returns u extended by one segment.
func (u URI) Child(seg string) (URI, error) {
	if err := checkSegment(seg); err != nil {
		return URI{}, err
	}
	segs := make([]string, len(u.segments)+1)
	copy(segs, u.segments)
	segs[len(u.segments)] = seg
	return fromSegments(segs), nil
}

func (u URI) Equal(o URI) bool {
	if len(u.segments) != len(o.segments) {
		return false
	}
	for i := range u.segments {
		if u.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// Compare orders URIs segment by segment; a proper prefix sorts first.
func (u URI) Compare(o URI) int {
	n := len(u.segments)
	if len(o.segments) < n {
		n = len(o.segments)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(u.segments[i], o.segments[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(u.segments) < len(o.segments):
		return -1
	case len(u.segments) > len(o.segments):
		return 1
	}
	return 0
}

func (u URI) Less(o URI) bool { return u.Compare(o) < 0 }

// HasPrefix reports whether p is u or an ancestor of u.
func (u URI) HasPrefix(p URI) bool {
	if len(p.segments) > len(u.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != u.segments[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether u is a strict ancestor of o.
func (u URI) IsAncestorOf(o URI) bool {
	return len(u.segments) < len(o.segments) && o.HasPrefix(u)
}

// IsChildOf reports whether u extends p by exactly one segment.
func (u URI) IsChildOf(p URI) bool {
	return len(u.segments) == len(p.segments)+1 && u.HasPrefix(p)
}

// Ancestors returns every strict ancestor of u, nearest first, ending with the root.
func (u URI) Ancestors() []URI {
	if len(u.segments) == 0 {
		return nil
	}
	out := make([]URI, 0, len(u.segments))
	for n := len(u.segments) - 1; n >= 0; n-- {
		out = append(out, u.Prefix(n))
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (u URI) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URI) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = p
	return nil
}
