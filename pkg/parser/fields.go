package parser

import (
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/tidwall/gjson"
)

// Alias keys per logical field, tried in order.
var (
	pathKeys        = []string{"path", "relative_path", "target_path", "file_path", "filePath", "filename", "file"}
	oldPathKeys     = []string{"oldPath", "old_path", "source", "source_path", "from"}
	newPathKeys     = []string{"newPath", "new_path", "destination", "destination_path", "target", "to"}
	contentKeys     = []string{"content", "newContent", "new_content", "contents", "text", "code"}
	searchKeys      = []string{"search", "find", "old_text", "oldText", "old_string", "old"}
	replaceKeys     = []string{"replace", "replacement", "new_text", "newText", "new_string", "new"}
	diffKeys        = []string{"diffPatch", "diff_patch", "diff", "patch"}
	startLineKeys   = []string{"startLine", "start_line", "line"}
	deleteCountKeys = []string{"deleteCount", "delete_count", "linesToDelete"}
	insertLinesKeys = []string{"insertLines", "insert_lines", "lines"}
	validateKeys    = []string{"validateContent", "validate_content", "validate"}
	contentTypeKeys = []string{"contentType", "content_type", "language"}
	errorKeys       = []string{"errorHandling", "error_handling", "onError"}
	typeKeys        = []string{"type", "action", "operation", "op"}
	explanationKeys = []string{"explanation", "message", "summary", "thoughts", "description"}
)

func lookup(obj gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func lookupString(obj gjson.Result, keys []string) string {
	r := lookup(obj, keys)
	if r.Type == gjson.String || r.Type == gjson.Number {
		return r.String()
	}
	return ""
}

func lookupInt(obj gjson.Result, keys []string) *int {
	r := lookup(obj, keys)
	if r.Type != gjson.Number && r.Type != gjson.String {
		return nil
	}
	n := int(r.Int())
	if r.Type == gjson.String && r.String() != "0" && n == 0 {
		return nil
	}
	return &n
}

func lookupContent(obj gjson.Result) *string {
	r := lookup(obj, contentKeys)
	if !r.Exists() {
		return nil
	}
	s := r.String()
	if r.IsObject() || r.IsArray() {
		s = r.Raw
	}
	return &s
}

func lookupLines(obj gjson.Result) []string {
	r := lookup(obj, insertLinesKeys)
	switch {
	case r.IsArray():
		var out []string
		for _, l := range r.Array() {
			out = append(out, l.String())
		}
		return out
	case r.Type == gjson.String:
		return strings.Split(r.String(), "\n")
	}
	return nil
}

// toAction builds a FileAction from obj, using actionType when set.
func toAction(obj gjson.Result, actionType string) domain.FileAction {
	if actionType == "" {
		actionType = lookupString(obj, typeKeys)
	}
	return domain.FileAction{
		Type:            actionType,
		Path:            lookupString(obj, pathKeys),
		OldPath:         lookupString(obj, oldPathKeys),
		NewPath:         lookupString(obj, newPathKeys),
		NewContent:      lookupContent(obj),
		Search:          lookupString(obj, searchKeys),
		Replace:         lookupString(obj, replaceKeys),
		DiffPatch:       lookupString(obj, diffKeys),
		StartLine:       lookupInt(obj, startLineKeys),
		DeleteCount:     lookupInt(obj, deleteCountKeys),
		InsertLines:     lookupLines(obj),
		ValidateContent: lookup(obj, validateKeys).Bool(),
		ContentType:     lookupString(obj, contentTypeKeys),
		ErrorHandling:   lookupString(obj, errorKeys),
	}
}

func argsOf(obj gjson.Result) map[string]any {
	if m, ok := obj.Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
