package apps

import (
	"errors"
	"fmt"
	"strings"
)

// SplitExec tokenizes an Exec value. Arguments containing reserved
// characters are double-quoted; inside quotes a backslash escapes
// '"', '`', '$' and '\'.
func SplitExec(exec string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuote := false
	started := false

	for i := 0; i < len(exec); i++ {
		c := exec[i]
		switch {
		case inQuote && c == '\\':
			if i+1 < len(exec) && strings.IndexByte("\"`$\\", exec[i+1]) >= 0 {
				i++
				cur.WriteByte(exec[i])
			} else {
				cur.WriteByte(c)
			}
		case c == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (c == ' ' || c == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in Exec %q", exec)
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}

// ExpandExec turns a record's Exec line into an argv. No files or URLs are
// passed, so %f %F %u %U expand to nothing.
func ExpandExec(rec Record) ([]string, error) {
	tokens, err := SplitExec(rec.Exec)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch tok {
		case "%f", "%F", "%u", "%U", "%d", "%D", "%n", "%N", "%v", "%m":
			continue
		case "%i":
			if rec.Icon != "" {
				argv = append(argv, "--icon", rec.Icon)
			}
			continue
		case "%c":
			argv = append(argv, rec.Name)
			continue
		case "%k":
			argv = append(argv, rec.File)
			continue
		}
		argv = append(argv, expandInline(tok, rec))
	}

	if len(argv) == 0 {
		return nil, errors.New("empty command after expanding Exec")
	}
	return argv, nil
}

// expandInline resolves field codes embedded within a larger argument
func expandInline(tok string, rec Record) string {
	if !strings.Contains(tok, "%") {
		return tok
	}
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' || i+1 == len(tok) {
			b.WriteByte(tok[i])
			continue
		}
		i++
		switch tok[i] {
		case '%':
			b.WriteByte('%')
		case 'c':
			b.WriteString(rec.Name)
		case 'k':
			b.WriteString(rec.File)
		}
	}
	return b.String()
}
