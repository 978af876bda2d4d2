package event

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RenameSep is the literal separator joining the "from" and "to" halves of
// a Rename event's path. It must never appear inside a legal path component
// (spec §3, §6) — ValidatePath rejects any raw filesystem path containing it
// before it is admitted to the pipeline.
const RenameSep = "$-$"

// NormalizePath converts an OS-native relative path to the canonical form
// stored in events: forward slashes, NFC-normalized Unicode (teacher:
// observer_local.go's nfcNormalize, needed for cross-platform path equality
// when the same file is named differently by two filesystems' Unicode
// normalization forms), and no leading/trailing slash.
func NormalizePath(p string) string {
	p = filepathToSlash(p)
	p = norm.NFC.String(p)
	p = strings.Trim(path.Clean(p), "/")

	if p == "." {
		return ""
	}

	return p
}

// filepathToSlash converts OS-native path separators to forward slashes
// without depending on path/filepath (which is OS-specific at build time;
// sync paths always originate as either OS paths from fsnotify or
// forward-slash paths from the wire, so a literal backslash replace
// suffices here).
func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ValidatePath enforces invariant I1: relative, non-empty, normalized (no
// "." or ".." components, no doubled slashes), and free of the RenameSep
// literal (spec §6 — implementations MUST reject any source event whose
// path contains it before admitting it to the pipeline).
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("event: path is empty")
	}

	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("event: path %q is absolute, want relative", p)
	}

	if strings.Contains(p, RenameSep) {
		return fmt.Errorf("event: path %q contains reserved separator %q", p, RenameSep)
	}

	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return fmt.Errorf("event: path %q has an empty segment (doubled slash)", p)
		case ".", "..":
			return fmt.Errorf("event: path %q is not normalized (contains %q)", p, seg)
		}
	}

	return nil
}

// JoinRename joins the "from" and "to" halves of a rename into the single
// path string a Rename event carries on the wire (spec §3).
func JoinRename(from, to string) string {
	return from + RenameSep + to
}

// SplitRename splits a Rename event's path into its "from" and "to" halves.
// ok is false if the path does not contain exactly one RenameSep.
func SplitRename(p string) (from, to string, ok bool) {
	parts := strings.Split(p, RenameSep)
	if len(parts) != 2 {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// IsUnderDir reports whether path p lies at or below directory dir
// (p == dir or p starts with "dir/"). Used by the compactor's dominance
// pass to implement invariant I4 (no surviving event under a removed
// directory).
func IsUnderDir(p, dir string) bool {
	if p == dir {
		return true
	}

	return strings.HasPrefix(p, dir+"/")
}

// RewriteUnderRename rewrites path p, which lies under the renamed
// directory oldDir, to lie under newDir instead. Used by the compactor's
// dominance pass (spec §4.3's "surviving Modify on a path p whose prefix
// has been renamed" rule).
func RewriteUnderRename(p, oldDir, newDir string) string {
	if p == oldDir {
		return newDir
	}

	return newDir + "/" + strings.TrimPrefix(p, oldDir+"/")
}
