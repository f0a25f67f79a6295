// Package fspath provides the normalized build path used throughout the
// operation graph.
//
// Paths use forward slashes on every platform. A path is absolute when it
// starts with "/" or a drive designator ("C:"). A trailing "/" marks a
// directory; a directory has no file name.
//
//	C:/Work/out.txt   absolute file
//	C:/Work/obj/      absolute directory
//	../lib/a.lib      relative file
package fspath

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Path is a normalized path. The zero value is the relative current
// directory and its only representation, so two Paths are == exactly when
// their String forms match.
type Path struct {
	value string
}

const currentDirectory = "./"

// Parse normalizes s into a Path.
//
// Backslashes become slashes, the string is NFC normalized, "." segments
// are dropped and ".." segments are folded. ".." above an absolute root is
// clamped at the root; leading ".." segments of a relative path are kept.
func Parse(s string) Path {
	s = norm.NFC.String(strings.ReplaceAll(s, `\`, "/"))
	root, rest := splitRoot(s)

	parts := strings.Split(rest, "/")
	dir := rest == "" || strings.HasSuffix(rest, "/")
	segments := make([]string, 0, len(parts))
	for i, part := range parts {
		last := i == len(parts)-1
		switch part {
		case "":
		case ".":
			if last {
				dir = true
			}
		case "..":
			if last {
				dir = true
			}
			switch {
			case len(segments) > 0 && segments[len(segments)-1] != "..":
				segments = segments[:len(segments)-1]
			case root != "":
				// Clamped at the root
			default:
				segments = append(segments, "..")
			}
		default:
			segments = append(segments, part)
		}
	}
	return build(root, segments, dir)
}

// splitRoot returns the root designator ("/", "C:/" or "") and the remainder.
func splitRoot(s string) (string, string) {
	if strings.HasPrefix(s, "/") {
		return "/", s[1:]
	}
	if len(s) >= 2 && s[1] == ':' && isDriveLetter(s[0]) {
		drive := strings.ToUpper(s[:1])
		return drive + ":/", strings.TrimPrefix(s[2:], "/")
	}
	return "", s
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func build(root string, segments []string, dir bool) Path {
	if root == "" && len(segments) == 0 {
		return Path{}
	}
	v := root + strings.Join(segments, "/")
	if dir && len(segments) > 0 {
		v += "/"
	}
	return Path{value: v}
}

// split returns the root designator and the path segments.
func (p Path) split() (string, []string) {
	root, rest := splitRoot(p.String())
	if rest == "" || rest == currentDirectory {
		return root, nil
	}
	return root, strings.Split(strings.TrimSuffix(rest, "/"), "/")
}

// String returns the normalized form.
func (p Path) String() string {
	if p.value == "" {
		return currentDirectory
	}
	return p.value
}

// IsAbsolute reports whether the path starts at a root.
func (p Path) IsAbsolute() bool {
	root, _ := splitRoot(p.String())
	return root != ""
}

// HasFileName reports whether the path names a file rather than a directory.
func (p Path) HasFileName() bool {
	return !strings.HasSuffix(p.String(), "/")
}

// FileName returns the last segment of a file path, or "" for a directory.
func (p Path) FileName() string {
	if !p.HasFileName() {
		return ""
	}
	s := p.String()
	return s[strings.LastIndex(s, "/")+1:]
}

// Parent returns the directory containing p. It returns false for a root or
// the relative current directory.
func (p Path) Parent() (Path, bool) {
	root, segments := p.split()
	if len(segments) == 0 {
		return Path{}, false
	}
	return build(root, segments[:len(segments)-1], true), true
}

// EnsureDirectory returns p with a trailing "/".
func (p Path) EnsureDirectory() Path {
	if !p.HasFileName() {
		return p
	}
	return Path{value: p.String() + "/"}
}

// Join resolves rel against base. base is treated as a directory. An
// absolute rel is returned unchanged.
func Join(base, rel Path) Path {
	if rel.IsAbsolute() {
		return rel
	}
	return Parse(base.EnsureDirectory().String() + rel.String())
}

// IsWithin reports whether p is dir or lies beneath it.
func (p Path) IsWithin(dir Path) bool {
	prefix := dir.EnsureDirectory().String()
	return strings.HasPrefix(p.EnsureDirectory().String(), prefix)
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}
