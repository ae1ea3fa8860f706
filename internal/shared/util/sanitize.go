package util

import (
	"path"
	"strings"
	"unicode"
)

const maxFileNameLen = 128

// SafeFileName reduces a client-supplied upload name to something safe to
// log: no directories, no control characters, bounded length.
func SafeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	if len(name) > maxFileNameLen {
		name = name[len(name)-maxFileNameLen:]
	}
	return name
}
