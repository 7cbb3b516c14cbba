// Package platform defines the set of build platforms a content root can be
// packaged for.
//
// A Platform is a bit flag. Several platforms can be combined into one value
// and expanded back into individual platforms with Expand, which always
// yields them in declaration order.
package platform

import (
	"fmt"
	"strings"
)

// Platform is one build platform or a combination of several.
type Platform uint32

const (
	Windows Platform = 1 << iota
	OSX
	Linux
	IOS
	Android
	WebGL
	TVOS
)

// None is the empty platform set.
const None Platform = 0

// All is the union of every known platform.
const All = Windows | OSX | Linux | IOS | Android | WebGL | TVOS

// declared lists individual platforms in declaration order with their names.
var declared = []struct {
	p    Platform
	name string
}{
	{Windows, "windows"},
	{OSX, "osx"},
	{Linux, "linux"},
	{IOS, "ios"},
	{Android, "android"},
	{WebGL, "webgl"},
	{TVOS, "tvos"},
}

// aliases accepted by Parse in addition to the canonical names.
var aliases = map[string]Platform{
	"win":     Windows,
	"win64":   Windows,
	"macos":   OSX,
	"mac":     OSX,
	"iphone":  IOS,
	"appletv": TVOS,
	"web":     WebGL,
}

// Parse returns the platform for a single name. Matching is case-insensitive.
func Parse(name string) (Platform, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, d := range declared {
		if d.name == n {
			return d.p, nil
		}
	}
	if p, ok := aliases[n]; ok {
		return p, nil
	}
	return None, fmt.Errorf("unknown platform '%s' — known platforms: %s", name, strings.Join(Names(), ", "))
}

// ParseList parses each name and returns them in the given order.
// Names may also be '|' or ',' separated combinations.
func ParseList(names []string) ([]Platform, error) {
	out := make([]Platform, 0, len(names))
	for _, raw := range names {
		for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' }) {
			p, err := Parse(part)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// Names returns the canonical names of all platforms in declaration order.
func Names() []string {
	names := make([]string, 0, len(declared))
	for _, d := range declared {
		names = append(names, d.name)
	}
	return names
}

// Expand splits a combined value into individual platforms in declaration
// order. Unknown bits are ignored.
func (p Platform) Expand() []Platform {
	var out []Platform
	for _, d := range declared {
		if p&d.p != 0 {
			out = append(out, d.p)
		}
	}
	return out
}

// Has reports whether every platform in q is also in p.
func (p Platform) Has(q Platform) bool {
	return q != None && p&q == q
}

// IsSingle reports whether p is exactly one known platform.
func (p Platform) IsSingle() bool {
	return len(p.Expand()) == 1 && p&^All == 0
}

// String returns the canonical name, or a '|' joined list for combinations.
func (p Platform) String() string {
	if p == None {
		return "none"
	}
	parts := p.Expand()
	names := make([]string, 0, len(parts))
	for _, q := range parts {
		for _, d := range declared {
			if d.p == q {
				names = append(names, d.name)
			}
		}
	}
	if rest := p &^ All; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(text []byte) error {
	list, err := ParseList([]string{string(text)})
	if err != nil {
		return err
	}
	*p = Union(list...)
	return nil
}

// Union combines platforms into one value.
func Union(ps ...Platform) Platform {
	var out Platform
	for _, p := range ps {
		out |= p
	}
	return out
}
