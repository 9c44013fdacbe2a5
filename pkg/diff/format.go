package diff

import (
	"fmt"
	"strings"
)

// Format renders an edit script in a unified-diff-like form:
//
//	--- a/path
//	+++ b/path
//	 unchanged line
//	-deleted line
//	+inserted line
//
// A script with no changes renders to the empty string.
func Format(path string, ops []Op) string {
	if !Changed(ops) {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)
	for _, op := range ops {
		switch op.Type {
		case Delete:
			fmt.Fprintf(&b, "-%s\n", op.Line)
		case Insert:
			fmt.Fprintf(&b, "+%s\n", op.Line)
		case Equal:
			fmt.Fprintf(&b, " %s\n", op.Line)
		}
	}
	return b.String()
}
