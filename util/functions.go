package util

import (
	"os"
	"strings"
)

// PathSplit splits a path into its directory (with trailing separator) and file name.
func PathSplit(pathStr string) (string, string) {
	i := strings.LastIndex(pathStr, string(os.PathSeparator))
	return pathStr[:i+1], pathStr[i+1:]
}
