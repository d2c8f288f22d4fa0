package fileops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Outcome is the result of applying one FileAction.
type Outcome struct {
	Action  domain.FileAction `json:"action"`
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
}

// Report summarizes a batch. Failures never roll back earlier actions.
type Report struct {
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Stopped   bool      `json:"stopped,omitempty"`
}

// Summary renders a one-line mixed summary.
func (r Report) Summary() string {
	total := r.Succeeded + r.Failed
	if r.Failed == 0 {
		return fmt.Sprintf("%d of %d actions applied", r.Succeeded, total)
	}
	var failed []string
	for _, o := range r.Outcomes {
		if !o.OK {
			failed = append(failed, fmt.Sprintf("%s %s: %s", o.Action.Type, o.Action.Target(), o.Error))
		}
	}
	s := fmt.Sprintf("%d of %d actions applied; failed: %s", r.Succeeded, total, strings.Join(failed, "; "))
	if r.Stopped {
		s += " (batch stopped)"
	}
	return s
}

// ApplyBatch applies actions in order. A failing action is recorded and the
// batch continues, unless the action sets errorHandling to "stop".
func (w *Workspace) ApplyBatch(actions []domain.FileAction) Report {
	var r Report
	for _, a := range actions {
		o := w.Apply(a)
		r.Outcomes = append(r.Outcomes, o)
		if o.OK {
			r.Succeeded++
			continue
		}
		r.Failed++
		if strings.EqualFold(a.ErrorHandling, "stop") {
			r.Stopped = true
			break
		}
	}
	return r
}

// Apply performs a single FileAction.
func (w *Workspace) Apply(a domain.FileAction) Outcome {
	msg, err := w.apply(a)
	if err != nil {
		w.logger.Debug("file action failed", "type", a.Type, "path", a.Target(), "err", err)
		return Outcome{Action: a, Message: "failed", Error: err.Error()}
	}
	return Outcome{Action: a, OK: true, Message: msg}
}

func (w *Workspace) apply(a domain.FileAction) (string, error) {
	if a.IsRename() {
		src := a.OldPath
		if src == "" {
			src = a.Path
		}
		if src == "" || a.NewPath == "" {
			return "", fmt.Errorf("%w: rename needs oldPath and newPath", domain.ErrValidation)
		}
		if err := w.Rename(src, a.NewPath); err != nil {
			return "", err
		}
		return fmt.Sprintf("renamed %s to %s", src, a.NewPath), nil
	}
	if a.Path == "" {
		return "", fmt.Errorf("%w: %s needs a path", domain.ErrValidation, a.Type)
	}

	switch a.Type {
	case domain.ActionCreateFile, domain.ActionWriteToFile, domain.ActionUpdateFile:
		return w.applyWrite(a)
	case domain.ActionSmartUpdate:
		if a.Search != "" {
			return w.applyReplace(a)
		}
		return w.applyWrite(a)
	case domain.ActionAppendToFile, domain.ActionPrependToFile:
		content, err := w.content(a)
		if err != nil {
			return "", err
		}
		op := w.Append
		if a.Type == domain.ActionPrependToFile {
			op = w.Prepend
		}
		st, err := op(a.Path, content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now %d bytes", st.Path, st.Bytes), nil
	case domain.ActionDeleteFile, domain.ActionDeletePath:
		dir, err := w.Delete(a.Path)
		if err != nil {
			return "", err
		}
		if dir {
			return fmt.Sprintf("deleted directory %s", a.Path), nil
		}
		return fmt.Sprintf("deleted %s", a.Path), nil
	case domain.ActionReadFile:
		content, err := w.Read(a.Path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("read %s (%d bytes)", a.Path, len(content)), nil
	case domain.ActionListFiles:
		entries, err := w.List(a.Path, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s has %d entries", a.Path, len(entries)), nil
	case domain.ActionSearchAndReplace, domain.ActionReplaceInFile:
		return w.applyReplace(a)
	case domain.ActionPatchFile:
		switch {
		case a.DiffPatch != "" && strings.Contains(a.DiffPatch, markerSearch):
			return w.applyReplace(a)
		case a.DiffPatch != "":
			st, err := w.Patch(a.Path, a.DiffPatch)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("patched %s (%d lines)", st.Path, st.Lines), nil
		case a.StartLine != nil:
			count := 0
			if a.DeleteCount != nil {
				count = *a.DeleteCount
			}
			st, err := w.EditLines(a.Path, *a.StartLine, count, a.InsertLines)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("edited %s at line %d", st.Path, *a.StartLine), nil
		case a.Search != "":
			return w.applyReplace(a)
		}
		return "", fmt.Errorf("%w: patchFile needs diffPatch, startLine or search", domain.ErrValidation)
	}
	return "", fmt.Errorf("%w: unsupported file action %q", domain.ErrValidation, a.Type)
}

func (w *Workspace) content(a domain.FileAction) (string, error) {
	if a.NewContent == nil {
		return "", fmt.Errorf("%w: %s needs content", domain.ErrValidation, a.Type)
	}
	content := *a.NewContent
	if a.ValidateContent && strings.EqualFold(a.ContentType, "json") && !json.Valid([]byte(content)) {
		return "", fmt.Errorf("%w: content for %s is not valid JSON", domain.ErrValidation, a.Path)
	}
	return content, nil
}

func (w *Workspace) applyWrite(a domain.FileAction) (string, error) {
	content, err := w.content(a)
	if err != nil {
		return "", err
	}
	st, err := w.Write(a.Path, content)
	if err != nil {
		return "", err
	}
	verb := "updated"
	if st.Created {
		verb = "created"
	}
	return fmt.Sprintf("%s %s (%d bytes, %d lines)", verb, st.Path, st.Bytes, st.Lines), nil
}

func (w *Workspace) applyReplace(a domain.FileAction) (string, error) {
	var blocks []Block
	switch {
	case strings.Contains(a.DiffPatch, markerSearch):
		parsed, err := ParseBlocks(a.DiffPatch)
		if err != nil {
			return "", err
		}
		blocks = parsed
	case a.Search != "":
		blocks = []Block{{Search: a.Search, Replace: a.Replace}}
	default:
		return "", fmt.Errorf("%w: %s needs search text", domain.ErrValidation, a.Type)
	}
	st, err := w.ReplaceBlocks(a.Path, blocks)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("replaced %d block(s) in %s", len(blocks), st.Path), nil
}
