package apps

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const desktopEntryGroup = "Desktop Entry"

// ErrNoDesktopEntry is returned for files without a [Desktop Entry] group
var ErrNoDesktopEntry = errors.New("no [Desktop Entry] group")

// localizedValue keeps the plain value of a key and its translations
type localizedValue struct {
	plain string
	byLoc map[string]string
}

func (v *localizedValue) pick(candidates []string) string {
	for _, loc := range candidates {
		if s, ok := v.byLoc[loc]; ok {
			return s
		}
	}
	return v.plain
}

// ParseDesktopFile reads and parses the desktop entry at path
func ParseDesktopFile(path, id, locale string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	rec, err := ParseDesktopEntry(f, locale)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	rec.ID = id
	rec.File = path
	return rec, nil
}

// iniOptions reads desktop entries as key files. Values keep their quotes
// and backslashes; Exec and escape rules are applied on top.
var iniOptions = ini.LoadOptions{
	KeyValueDelimiters:      "=",
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	PreserveSurroundedQuote: true,
	SkipUnrecognizableLines: true,
}

// ParseDesktopEntry parses the [Desktop Entry] group of a desktop file.
// Localized keys are resolved for locale (e.g. "de_DE.UTF-8").
func ParseDesktopEntry(r io.Reader, locale string) (Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Record{}, err
	}
	file, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return Record{}, err
	}
	section, err := file.GetSection(desktopEntryGroup)
	if err != nil {
		return Record{}, ErrNoDesktopEntry
	}

	values := make(map[string]*localizedValue)
	for _, key := range section.Keys() {
		name := key.Name()
		base, loc := name, ""
		if i := strings.IndexByte(name, '['); i > 0 && strings.HasSuffix(name, "]") {
			base, loc = name[:i], name[i+1:len(name)-1]
		}

		v, ok := values[base]
		if !ok {
			v = &localizedValue{byLoc: map[string]string{}}
			values[base] = v
		}
		if loc == "" {
			v.plain = key.Value()
		} else {
			v.byLoc[loc] = key.Value()
		}
	}

	candidates := localeCandidates(locale)
	str := func(key string) string {
		v, ok := values[key]
		if !ok {
			return ""
		}
		return unescapeValue(v.pick(candidates))
	}
	list := func(key string) []string {
		v, ok := values[key]
		if !ok {
			return nil
		}
		return splitList(v.pick(candidates))
	}
	boolean := func(key string) bool {
		return str(key) == "true"
	}

	return Record{
		Type:        str("Type"),
		Name:        str("Name"),
		GenericName: str("GenericName"),
		Comment:     str("Comment"),
		Icon:        str("Icon"),
		Exec:        str("Exec"),
		WorkDir:     str("Path"),
		Keywords:    list("Keywords"),
		Categories:  list("Categories"),
		OnlyShowIn:  list("OnlyShowIn"),
		NotShowIn:   list("NotShowIn"),
		Terminal:    boolean("Terminal"),
		NoDisplay:   boolean("NoDisplay"),
		Hidden:      boolean("Hidden"),
	}, nil
}

// localeCandidates orders the lookup keys for a POSIX locale:
// lang_COUNTRY@MODIFIER, lang_COUNTRY, lang@MODIFIER, lang.
func localeCandidates(locale string) []string {
	if locale == "" || locale == "C" || locale == "POSIX" {
		return nil
	}

	modifier := ""
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale, modifier = locale[:i], locale[i+1:]
	}
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	lang, country, hasCountry := strings.Cut(locale, "_")

	var out []string
	if hasCountry && modifier != "" {
		out = append(out, lang+"_"+country+"@"+modifier)
	}
	if hasCountry {
		out = append(out, lang+"_"+country)
	}
	if modifier != "" {
		out = append(out, lang+"@"+modifier)
	}
	return append(out, lang)
}

// unescapeValue resolves \s \n \t \r and \\ escapes
func unescapeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 's':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitList splits a ';'-separated list value, honoring "\;" escapes
func splitList(s string) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == ';' {
			cur.WriteByte(';')
			i++
			continue
		}
		if c == ';' {
			if item := unescapeValue(cur.String()); item != "" {
				out = append(out, item)
			}
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if item := unescapeValue(cur.String()); item != "" {
		out = append(out, item)
	}
	return out
}
