// Package parse turns the free-form text files found in stealer logs
// into structured records. Every parser here is lenient: a malformed
// line is logged and skipped, never aborting the rest of the file.
package parse

import (
	"encoding/base64"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/stealsift/stealsift/pkg/leak"
)

var (
	// LogLevel controls parser log verbosity.
	LogLevel = &slog.LevelVar{}
	logger   = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel}))
)

// Labeled-line prefixes observed across stealer families. Builders
// localize, leetify ("UR1:", "P455W0RD:") or rename them, so each field
// accepts several spellings.
var (
	softPrefix     = regexp.MustCompile(`(?i)^[\s\-*]*(?:soft|browser|application|storage)\s*:\s*(.*)$`)
	softNoPrefix   = regexp.MustCompile(`^\["(\S+)" = "(\S+)"\]`)
	hostPrefix     = regexp.MustCompile(`(?i)^[\s\-*]*(?:host(?:name)?|url|ur1)\s*:\s*(.*)$`)
	userPrefix     = regexp.MustCompile(`(?i)^[\s\-*]*(?:user login|user(?:name)?|login|u53rn4m3)\s*:\s*(.*)$`)
	passwordPrefix = regexp.MustCompile(`(?i)^[\s\-*]*(?:user password|pass(?:word)?|p455w0rd)\s*:\s*(.*)$`)
	sellerPrefix   = regexp.MustCompile(`(?i)^(?:seller|log tools|free logs)\s*:`)
	anyPrefix      = regexp.MustCompile(`(?i)^[\s\-*]*[a-z0-9 ]{1,24}:`)
)

// Credentials parses a credentials file into an ordered entry list.
//
// Two conventions are handled: labeled blocks (URL:/Login:/Password:
// lines, one credential per block) and delimiter-separated single lines
// (url:login:password or url|login|password). Anything else in the file
// (ASCII-art headers, seller advertising) is skipped.
func Credentials(filename, text string) []leak.Credential {
	p := credentialAccumulator{filename: filename}
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case sellerPrefix.MatchString(trimmed):
			// Advertising block, no victim data.
		case matchField(&p, softPrefix, trimmed, fieldSoftware):
		case matchField(&p, hostPrefix, trimmed, fieldHost):
		case matchField(&p, userPrefix, trimmed, fieldLogin):
		case passwordPrefix.MatchString(trimmed):
			value := passwordPrefix.FindStringSubmatch(trimmed)[1]
			if value == "" {
				// Some builders emit the password base64 encoded on
				// the following lines.
				value, i = collectContinuation(lines, i)
			}
			p.set(fieldPassword, value)
		case softNoPrefix.MatchString(trimmed):
			m := softNoPrefix.FindStringSubmatch(trimmed)
			p.set(fieldSoftware, m[1]+" "+m[2])
		default:
			if cred, ok := splitDelimited(trimmed); ok {
				p.flush()
				cred.Normalize()
				cred.Filepath = filename
				p.out = append(p.out, cred)
			} else if anyPrefix.MatchString(trimmed) {
				logger.Debug("skip unrecognized line",
					slog.String("file", filename), slog.Int("line", i+1))
			}
		}
	}
	p.flush()
	return p.out
}

type credentialField int

const (
	fieldSoftware credentialField = iota
	fieldHost
	fieldLogin
	fieldPassword
)

type credentialAccumulator struct {
	filename string
	current  leak.Credential
	seen     [4]bool
	out      []leak.Credential
}

func matchField(p *credentialAccumulator, re *regexp.Regexp, line string, f credentialField) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	p.set(f, m[1])
	return true
}

// set stores a field value, flushing the current credential first when
// the field was already seen in this block (a repeated prefix starts the
// next credential).
func (p *credentialAccumulator) set(f credentialField, value string) {
	if p.seen[f] {
		p.flush()
	}
	p.seen[f] = true
	value = strings.TrimSpace(value)
	switch f {
	case fieldSoftware:
		p.current.Software = value
	case fieldHost:
		p.current.Host = value
	case fieldLogin:
		p.current.Login = value
	case fieldPassword:
		p.current.Password = value
	}
}

func (p *credentialAccumulator) flush() {
	if !p.current.Empty() {
		cred := p.current
		cred.Normalize()
		cred.Filepath = p.filename
		p.out = append(p.out, cred)
	}
	p.current = leak.Credential{}
	p.seen = [4]bool{}
}

// collectContinuation joins the plain lines following an empty-valued
// prefix until the next labeled or blank line, decoding the result as
// base64 when it decodes cleanly to text.
func collectContinuation(lines []string, i int) (value string, last int) {
	last = i
	var b strings.Builder
	for j := i + 1; j < len(lines); j++ {
		next := strings.TrimSpace(strings.TrimRight(lines[j], "\r"))
		if next == "" || anyPrefix.MatchString(next) || strings.ContainsAny(next, " \t") {
			break
		}
		b.WriteString(next)
		last = j
	}
	value = b.String()
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && utf8.Valid(decoded) {
		value = strings.ReplaceAll(string(decoded), "\n", "")
	}
	return value, last
}

// splitDelimited handles single-line url:login:password records. The URL
// part may itself contain "://" and a port, so the split happens on the
// last two separators.
func splitDelimited(line string) (cred leak.Credential, ok bool) {
	sep := ":"
	if strings.Contains(line, "|") {
		sep = "|"
	}
	parts := strings.Split(line, sep)
	if len(parts) < 3 {
		return cred, false
	}
	cred.Password = strings.TrimSpace(parts[len(parts)-1])
	cred.Login = strings.TrimSpace(parts[len(parts)-2])
	cred.Host = strings.TrimSpace(strings.Join(parts[:len(parts)-2], sep))
	if cred.Host == "" || (!strings.Contains(cred.Host, ".") && !strings.Contains(cred.Host, "://")) {
		return leak.Credential{}, false
	}
	return cred, true
}
