package parse

import (
	"regexp"
	"strings"

	"github.com/stealsift/stealsift/pkg/leak"
)

// Known attribute prefixes of system dump files. As with credentials,
// every stealer family spells them differently.
var (
	uidPrefix      = regexp.MustCompile(`(?i)^[\s\-*]*(?:uid|guid|machine\s*id)\s*:\s*(.*)$`)
	computerPrefix = regexp.MustCompile(`(?i)^[\s\-*]*(?:computer(?:\s*name)?|pc\s*name|netbios)\s*:\s*(.*)$`)
	hwidPrefix     = regexp.MustCompile(`(?i)^[\s\-*]*(?:hwid|hardware\s*id)\s*:\s*(.*)$`)
	machineUser    = regexp.MustCompile(`(?i)^[\s\-*]*(?:user\s*name|user)\s*:\s*(.*)$`)
	ipLinePrefix   = regexp.MustCompile(`(?i)^[\s\-*]*(lan)?ip(?:\s*address)?\s*:\s*(.*)$`)
	countryPrefix  = regexp.MustCompile(`(?i)^[\s\-*]*country(?:\s*code)?\s*:\s*(.*)$`)
	logDatePrefix  = regexp.MustCompile(`(?i)^[\s\-*]*(?:log\s*date|local\s*time|date)\s*:\s*(.*)$`)
	extraLine      = regexp.MustCompile(`^[\s\-*]*([A-Za-z][A-Za-z0-9 _/()-]{0,39}?)\s*:\s+(\S.*)$`)
)

// SystemInfo parses a system dump file into a System record. Lines not
// matching any known prefix but shaped like "Key: Value" are kept as
// extra attributes; everything else (banners, separators) is skipped.
// Returns nil when not a single attribute was found.
func SystemInfo(filename, text string) *leak.System {
	system := &leak.System{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case setMatch(uidPrefix, line, &system.MachineID):
		case setMatch(computerPrefix, line, &system.ComputerName):
		case setMatch(hwidPrefix, line, &system.HardwareID):
		case ipLinePrefix.MatchString(line):
			m := ipLinePrefix.FindStringSubmatch(line)
			// LANIP never overrides an already known public IP.
			if strings.EqualFold(m[1], "lan") && system.IPAddress != "" {
				continue
			}
			if value := strings.TrimSpace(m[2]); value != "" {
				system.IPAddress = value
			}
		case setMatch(machineUser, line, &system.MachineUser):
		case setMatch(countryPrefix, line, &system.Country):
		case setMatch(logDatePrefix, line, &system.LogDate):
		default:
			if m := extraLine.FindStringSubmatch(line); m != nil {
				if system.Extra == nil {
					system.Extra = make(map[string]string)
				}
				key := strings.TrimSpace(m[1])
				if _, dup := system.Extra[key]; !dup {
					system.Extra[key] = strings.TrimSpace(m[2])
				}
			}
		}
	}
	if system.IPAddress == "" {
		if ip, ok := ExtractIP(text); ok {
			system.IPAddress = ip
		}
	}
	if system.Empty() {
		return nil
	}
	return system
}

func setMatch(re *regexp.Regexp, line string, dst *string) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	if value := strings.TrimSpace(m[len(m)-1]); value != "" && *dst == "" {
		*dst = value
	}
	return true
}
