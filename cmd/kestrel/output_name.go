package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const moduleExt = ".kbc"

// outputPaths maps each input document to its module path. With one input,
// out may name the module file itself; otherwise out is a directory. An empty
// out places each module next to its document.
func outputPaths(inputs []string, out string) ([]string, error) {
	paths := make([]string, len(inputs))
	single := len(inputs) == 1 && out != "" && !isDir(out) && !strings.HasSuffix(out, string(filepath.Separator))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		var p string
		switch {
		case single:
			p = out
		case out == "":
			p = moduleName(in)
		default:
			p = filepath.Join(out, filepath.Base(moduleName(in)))
		}
		if prev, dup := seen[p]; dup {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, in, p)
		}
		seen[p] = in
		paths[i] = p
	}
	return paths, nil
}

func moduleName(doc string) string {
	return strings.TrimSuffix(doc, filepath.Ext(doc)) + moduleExt
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
