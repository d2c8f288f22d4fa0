package tools

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// MaxDefinitions caps a definitions listing.
var MaxDefinitions = 1000

// Definition is a best-effort named declaration.
type Definition struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

var (
	htmlIDRe      = regexp.MustCompile(`\bid\s*=\s*["']([^"']+)["']`)
	cssSelectorRe = regexp.MustCompile(`(?m)^([^{}@/]*)\{`)
	cssClassRe    = regexp.MustCompile(`\.(-?[_a-zA-Z][_a-zA-Z0-9-]*)`)
	jsFunctionRe  = regexp.MustCompile(`\bfunction\*?\s+([A-Za-z_$][\w$]*)\s*\(`)
	jsClassRe     = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)
	jsArrowRe     = regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
)

type definitionsInput struct {
	Path string `json:"path" jsonschema:"description=File or directory to scan"`
}

func listDefinitions(ctx context.Context, env Env, in definitionsInput) domain.ToolResult {
	ws := env.Workspace
	root, err := ws.Resolve(in.Path)
	if err != nil {
		return domain.Failure("definitions failed", err)
	}
	info, err := ws.Fs().Stat(root)
	if err != nil {
		return domain.Failure("definitions failed", fmt.Errorf("%w: %s", domain.ErrNotFound, in.Path))
	}

	defs := []Definition{}
	collect := func(rel string) {
		content, err := ws.Read(rel)
		if err != nil {
			return
		}
		defs = append(defs, ExtractDefinitions(rel, content)...)
	}

	if !info.IsDir() {
		collect(ws.Rel(root))
	} else {
		err = ws.Walk(in.Path, func(rel string, fi os.FileInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !fi.IsDir() && definitionKinds(rel) != "" {
				collect(rel)
			}
			return nil
		})
		if err != nil {
			return domain.Failure("definitions failed", err)
		}
	}

	truncated := len(defs) > MaxDefinitions
	if truncated {
		defs = defs[:MaxDefinitions]
	}
	return domain.Success(fmt.Sprintf("Found %d definitions in %s", len(defs), in.Path), map[string]any{
		"definitions": defs,
		"count":       len(defs),
		"truncated":   truncated,
	})
}

// definitionKinds names the extractor set for a file extension.
func definitionKinds(rel string) string {
	switch strings.ToLower(path.Ext(rel)) {
	case ".html", ".htm":
		return "html"
	case ".css", ".scss", ".less":
		return "css"
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx":
		return "js"
	}
	return ""
}

// ExtractDefinitions scans content with regular expressions. HTML files are
// also scanned for inline CSS and JS.
func ExtractDefinitions(rel, content string) []Definition {
	kind := definitionKinds(rel)
	if kind == "" {
		return nil
	}

	var out []Definition
	seen := map[string]bool{}
	add := func(k, name string, offset int) {
		key := k + "\x00" + name
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Definition{Path: rel, Kind: k, Name: name, Line: strings.Count(content[:offset], "\n") + 1})
	}
	each := func(re *regexp.Regexp, k string) {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			add(k, content[m[2]:m[3]], m[2])
		}
	}

	if kind == "html" {
		each(htmlIDRe, "id")
	}
	if kind == "html" || kind == "css" {
		for _, sel := range cssSelectorRe.FindAllStringSubmatchIndex(content, -1) {
			selector := content[sel[2]:sel[3]]
			for _, m := range cssClassRe.FindAllStringSubmatchIndex(selector, -1) {
				add("class", selector[m[2]:m[3]], sel[2]+m[2])
			}
		}
	}
	if kind == "html" || kind == "js" {
		each(jsFunctionRe, "function")
		each(jsClassRe, "class")
		each(jsArrowRe, "arrow")
	}
	return out
}
