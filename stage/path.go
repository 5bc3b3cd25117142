package stage

import (
	"fmt"
	"strings"
)

// Path identifies a prim by its absolute location in the stage hierarchy,
// e.g. "/World/Robot/base_link". The root path "/" addresses the pseudo-root,
// which holds no data of its own.
type Path string

// RootPath is the path of the stage pseudo-root.
const RootPath Path = "/"

// ParsePath validates a path string. Paths must be absolute, use "/" as the
// separator, and contain no empty segments.
func ParsePath(s string) (Path, error) {
	if s == "/" {
		return RootPath, nil
	}
	if !strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("path %q is not absolute", s)
	}
	if strings.HasSuffix(s, "/") {
		return "", fmt.Errorf("path %q has a trailing separator", s)
	}
	for _, seg := range strings.Split(s[1:], "/") {
		if seg == "" {
			return "", fmt.Errorf("path %q contains an empty segment", s)
		}
	}
	return Path(s), nil
}

// String returns the path as a plain string.
func (p Path) String() string {
	return string(p)
}

// IsRoot reports whether p is the pseudo-root path.
func (p Path) IsRoot() bool {
	return p == RootPath
}

// Name returns the final segment of the path, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	idx := strings.LastIndexByte(string(p), '/')
	return string(p[idx+1:])
}

// Parent returns the path one level up. The root is its own parent.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return RootPath
	}
	idx := strings.LastIndexByte(string(p), '/')
	if idx == 0 {
		return RootPath
	}
	return p[:idx]
}

// AppendChild returns the path of a child prim named name.
func (p Path) AppendChild(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return p + Path("/"+name)
}

// Segments returns the path split into prim names. The root has none.
func (p Path) Segments() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(string(p[1:]), "/")
}

// HasPrefix reports whether ancestor is a prefix of p along prim boundaries:
// "/World/A" has prefix "/World" but not "/Wo".
func (p Path) HasPrefix(ancestor Path) bool {
	if ancestor.IsRoot() {
		return true
	}
	if p == ancestor {
		return true
	}
	return strings.HasPrefix(string(p), string(ancestor)+"/")
}

// Depth returns the number of segments in the path. The root has depth zero.
func (p Path) Depth() int {
	return len(p.Segments())
}
