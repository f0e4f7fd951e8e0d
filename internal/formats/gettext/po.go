// Package gettext implements the PO/POT format handler (spec.md §4.1
// "gettext .po"), adapted from the teacher's pofile package. In addition to
// parsing/writing, it tracks each entry's original msgstr line layout so
// in-place writes can preserve single-line vs multi-line formatting for
// entries whose value didn't change (spec.md §4.1, P8), and optionally
// marks changed entries "#, fuzzy" per po.mark_fuzzy (spec.md §6).
package gettext

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/algebras-go/algebras/internal/registry"
)

// poWrapThreshold is the line-length heuristic for new/changed entries:
// "multi-line if text length > 120 or contains newlines" (spec.md §9 Open
// Question 3). Existing-entry formatting is always preserved regardless
// of this constant (SPEC_FULL.md §5.3).
const poWrapThreshold = 120

// Entry is one translatable message.
type Entry struct {
	TranslatorComments []string
	ExtractedComments  []string
	References         []string
	Flags              []string
	MsgCtxt            string
	MsgID              string
	MsgIDPlural        string
	MsgStr             string
	MsgStrPlural       map[int]string
	Obsolete           bool

	// originalMsgStr is the value read from disk, used to detect whether
	// WriteInPlace actually changed this entry (P8).
	originalMsgStr string
	// originalMsgStrLines are the raw, still-quoted "msgstr ..." lines as
	// they appeared on disk (including continuation lines), replayed
	// verbatim when the value is unchanged.
	originalMsgStrLines []string
	// originalMsgIDLines and originalMsgCtxtLines are the raw, still-quoted
	// "msgid ..."/"msgctxt ..." lines (including continuation lines) as they
	// appeared on disk. The Driver only ever rewrites msgstr, so these are
	// always replayed verbatim when present, preserving an untouched
	// entry's original multi-line layout in full (spec.md §4.5's in-place
	// byte contract, not just P8's msgstr-only guarantee).
	originalMsgIDLines   []string
	originalMsgCtxtLines []string
}

// Key returns the gettext entry identity: msgctxt\x04msgid, or bare msgid
// when there is no context. Used as the flat-projection key (spec.md §3).
func (e *Entry) Key() string {
	if e.MsgCtxt != "" {
		return e.MsgCtxt + "\x04" + e.MsgID
	}
	return e.MsgID
}

func (e *Entry) isFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

func (e *Entry) setFuzzy(v bool) {
	if v && !e.isFuzzy() {
		e.Flags = append(e.Flags, "fuzzy")
		return
	}
	if !v {
		filtered := e.Flags[:0]
		for _, f := range e.Flags {
			if f != "fuzzy" {
				filtered = append(filtered, f)
			}
		}
		e.Flags = filtered
	}
}

// File is a parsed PO/POT document.
type File struct {
	Header  *Entry
	Entries []*Entry
	index   map[string]int // Key() -> index in Entries
}

func newFile() *File {
	return &File{index: make(map[string]int)}
}

func parse(data []byte) (*File, error) {
	f := newFile()
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	var current *Entry
	var lastField string
	var rawMsgStrLines, rawMsgIDLines, rawMsgCtxtLines []string
	var inMsgStr bool

	flush := func() {
		if current == nil {
			return
		}
		current.originalMsgStr = current.MsgStr
		current.originalMsgStrLines = rawMsgStrLines
		current.originalMsgIDLines = rawMsgIDLines
		current.originalMsgCtxtLines = rawMsgCtxtLines
		if current.MsgID == "" && !current.Obsolete {
			f.Header = current
		} else {
			f.index[current.Key()] = len(f.Entries)
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
		rawMsgStrLines = nil
		rawMsgIDLines = nil
		rawMsgCtxtLines = nil
		inMsgStr = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current == nil {
			current = &Entry{MsgStrPlural: make(map[int]string)}
		}

		if strings.HasPrefix(line, "#~ ") {
			current.Obsolete = true
			line = line[3:]
		}

		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#~") {
			switch {
			case strings.HasPrefix(line, "#:"):
				current.References = append(current.References, strings.TrimSpace(line[2:]))
			case strings.HasPrefix(line, "#,"):
				for _, flag := range strings.Split(strings.TrimSpace(line[2:]), ",") {
					if flag = strings.TrimSpace(flag); flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			case strings.HasPrefix(line, "#."):
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			default:
				comment := strings.TrimPrefix(line[1:], " ")
				current.TranslatorComments = append(current.TranslatorComments, comment)
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "msgctxt "):
			current.MsgCtxt = unquote(strings.TrimPrefix(line, "msgctxt "))
			lastField = "msgctxt"
			inMsgStr = false
			rawMsgCtxtLines = []string{line}
		case strings.HasPrefix(line, "msgid_plural "):
			current.MsgIDPlural = unquote(strings.TrimPrefix(line, "msgid_plural "))
			lastField = "msgid_plural"
			inMsgStr = false
		case strings.HasPrefix(line, "msgid "):
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"
			inMsgStr = false
			rawMsgIDLines = []string{line}
		case strings.HasPrefix(line, "msgstr["):
			var idx int
			fmt.Sscanf(line, "msgstr[%d]", &idx)
			bracketEnd := strings.Index(line, "] ")
			if bracketEnd >= 0 {
				current.MsgStrPlural[idx] = unquote(line[bracketEnd+2:])
			}
			lastField = fmt.Sprintf("msgstr[%d]", idx)
			inMsgStr = true
			rawMsgStrLines = append(rawMsgStrLines, line)
		case strings.HasPrefix(line, "msgstr "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"
			inMsgStr = true
			rawMsgStrLines = []string{line}
		case strings.HasPrefix(line, "\""):
			val := unquote(line)
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				var idx int
				fmt.Sscanf(lastField, "msgstr[%d]", &idx)
				current.MsgStrPlural[idx] += val
			}
			if inMsgStr {
				rawMsgStrLines = append(rawMsgStrLines, line)
			}
			if lastField == "msgctxt" {
				rawMsgCtxtLines = append(rawMsgCtxtLines, line)
			}
			if lastField == "msgid" {
				rawMsgIDLines = append(rawMsgIDLines, line)
			}
		}
	}
	flush()
	return f, scanner.Err()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
			case 't':
				b.WriteByte('\t')
				i++
			case '\\':
				b.WriteByte('\\')
				i++
			case '"':
				b.WriteByte('"')
				i++
			default:
				b.WriteByte(s[i])
			}
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// writeMsgStrField renders "msgstr ..." (possibly multi-line) for a value,
// using the spec's length/newline heuristic.
func writeMsgStrField(w *bufio.Writer, field, value string) {
	if len(value) <= poWrapThreshold && !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}
	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

func writeSimpleField(w *bufio.Writer, field, value string) {
	fmt.Fprintf(w, "%s %s\n", field, quote(value))
}

// writeEntry renders one entry. If the entry's MsgStr is unchanged from
// originalMsgStr, the original raw msgstr lines are replayed verbatim
// (P8); otherwise the value is re-wrapped via the heuristic.
func writeEntry(w *bufio.Writer, e *Entry, markFuzzyIfChanged bool) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}
	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, r := range e.References {
		fmt.Fprintf(w, "#: %s\n", r)
	}

	changed := e.MsgStr != e.originalMsgStr
	if changed && markFuzzyIfChanged {
		e.setFuzzy(true)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}

	if e.MsgCtxt != "" {
		if len(e.originalMsgCtxtLines) > 0 {
			for _, rl := range e.originalMsgCtxtLines {
				fmt.Fprintln(w, rl)
			}
		} else {
			writeSimpleField(w, prefix+"msgctxt", e.MsgCtxt)
		}
	}
	if len(e.originalMsgIDLines) > 0 {
		for _, rl := range e.originalMsgIDLines {
			fmt.Fprintln(w, rl)
		}
	} else {
		writeSimpleField(w, prefix+"msgid", e.MsgID)
	}
	if e.MsgIDPlural != "" {
		writeSimpleField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeMsgStrField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
		return
	}

	if !changed && len(e.originalMsgStrLines) > 0 {
		for _, rl := range e.originalMsgStrLines {
			fmt.Fprintln(w, rl)
		}
		return
	}
	writeMsgStrField(w, prefix+"msgstr", e.MsgStr)
}

func write(f *File, w *bufio.Writer, markFuzzy bool) {
	wrote := false
	if f.Header != nil {
		writeEntry(w, f.Header, false)
		wrote = true
	}
	for _, e := range f.Entries {
		if wrote {
			fmt.Fprintln(w)
		}
		writeEntry(w, e, markFuzzy)
		wrote = true
	}
	w.Flush()
}

func toResourceMap(f *File) *registry.ResourceMap {
	rm := registry.NewResourceMap()
	for _, e := range f.Entries {
		rm.Root.Set(e.Key(), &registry.Node{Value: e.MsgStr, IsLeaf: true, Opaque: e})
	}
	return rm
}

// Handler implements registry.Format for gettext .po/.pot files.
type Handler struct {
	// MarkFuzzy controls whether changed entries get "#, fuzzy" on write,
	// mirroring po.mark_fuzzy (spec.md §6). Set per-invocation by the
	// orchestrator from config.
	MarkFuzzy bool
}

func (Handler) Name() string { return "po" }

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return toResourceMap(f), nil
}

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	f := newFile()
	for _, k := range m.Root.Keys() {
		n := m.Root.Get(k)
		if !n.IsLeaf {
			continue
		}
		e := &Entry{MsgStrPlural: map[int]string{}}
		if orig, ok := n.Opaque.(*Entry); ok {
			*e = *orig
			e.MsgStrPlural = map[int]string{}
			for pk, pv := range orig.MsgStrPlural {
				e.MsgStrPlural[pk] = pv
			}
		} else {
			idx := strings.IndexByte(k, '\x04')
			if idx >= 0 {
				e.MsgCtxt, e.MsgID = k[:idx], k[idx+1:]
			} else {
				e.MsgID = k
			}
		}
		e.MsgStr = n.Value
		f.Entries = append(f.Entries, e)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)
	write(f, bw, h.MarkFuzzy)
	return nil
}

func (h Handler) InPlaceCapable() bool { return true }

func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, k := range keysToUpdate.SortedSlice() {
		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		if idx, exists := f.index[k]; exists {
			f.Entries[idx].MsgStr = v
			continue
		}
		idx := strings.IndexByte(k, '\x04')
		e := &Entry{MsgStrPlural: map[int]string{}, MsgStr: v}
		if idx >= 0 {
			e.MsgCtxt, e.MsgID = k[:idx], k[idx+1:]
		} else {
			e.MsgID = k
		}
		f.index[k] = len(f.Entries)
		f.Entries = append(f.Entries, e)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)
	write(f, bw, h.MarkFuzzy)
	return nil
}
