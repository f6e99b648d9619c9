// Package leak defines the records extracted from stealer log archives.
package leak

import (
	"net/url"
	"regexp"
	"strings"
)

// Credential is a single harvested credential. Missing fields stay empty,
// a single credentials file commonly yields dozens of entries.
type Credential struct {
	Software    string `json:"software,omitempty"`
	Host        string `json:"host,omitempty"`
	Login       string `json:"login,omitempty"`
	Password    string `json:"password,omitempty"`
	Domain      string `json:"domain,omitempty"`
	LocalPart   string `json:"local_part,omitempty"`
	EmailDomain string `json:"email_domain,omitempty"`
	Filepath    string `json:"filepath,omitempty"`
}

// Empty reports whether no identifying field was extracted.
func (c *Credential) Empty() bool {
	return c.Host == "" && c.Login == "" && c.Password == ""
}

var (
	normTextPattern = regexp.MustCompile(`[\[\]"']`)
	emailPattern    = regexp.MustCompile(`^(\S+)@(\S+\.\S+)$`)
)

// Normalize cleans the software attribute and derives the secondary
// fields (domain, email parts) from host and login.
func (c *Credential) Normalize() {
	if c.Software != "" {
		software := normTextPattern.ReplaceAllString(strings.ToLower(c.Software), "")
		c.Software = strings.TrimSpace(strings.ReplaceAll(software, "_", " "))
	}
	if c.Login != "" {
		if m := emailPattern.FindStringSubmatch(c.Login); m != nil {
			c.LocalPart = m[1]
			c.EmailDomain = m[2]
		}
	}
	if c.Host != "" {
		if u, err := url.Parse(c.Host); err == nil && u.Hostname() != "" {
			c.Domain = u.Hostname()
		}
	}
}

// System describes the compromised machine as reported by the stealer's
// own system dump. Attributes the parser does not know by name are kept
// in Extra so nothing is lost on disk.
type System struct {
	MachineID    string            `json:"machine_id,omitempty"`
	ComputerName string            `json:"computer_name,omitempty"`
	HardwareID   string            `json:"hardware_id,omitempty"`
	MachineUser  string            `json:"machine_user,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Country      string            `json:"country,omitempty"`
	LogDate      string            `json:"log_date,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Empty reports whether the record holds no attribute at all.
func (s *System) Empty() bool {
	if s == nil {
		return true
	}
	return s.MachineID == "" && s.ComputerName == "" && s.HardwareID == "" &&
		s.MachineUser == "" && s.IPAddress == "" && s.Country == "" &&
		s.LogDate == "" && len(s.Extra) == 0
}

// SystemData is one victim record: everything harvested from a single
// compromised machine's directory inside the archive.
type SystemData struct {
	System      *System      `json:"system"`
	Credentials []Credential `json:"credentials"`
	StealerName string       `json:"stealer_name,omitempty"`
}

// Keep reports whether the record carries enough substance to retain:
// at least one credential or one non-empty system attribute.
func (sd *SystemData) Keep() bool {
	return len(sd.Credentials) > 0 || !sd.System.Empty()
}

// Leak is the parsed content of one archive (or one batch when results
// are merged into a shared output file).
type Leak struct {
	Filename    string       `json:"filename"`
	SystemsData []SystemData `json:"systems_data"`
}
