// Package process runs the per-archive extraction pipeline:
// classification, victim grouping, field parsing and fingerprinting.
package process

import (
	"log/slog"
	"os"
	"sort"

	"github.com/stealsift/stealsift/pkg/archive"
	"github.com/stealsift/stealsift/pkg/classify"
	"github.com/stealsift/stealsift/pkg/fingerprint"
	"github.com/stealsift/stealsift/pkg/leak"
	"github.com/stealsift/stealsift/pkg/parse"
)

var (
	// LogLevel controls pipeline log verbosity.
	LogLevel = &slog.LevelVar{}
	logger   = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel}))
)

// Archive extracts all victim records from an open container into the
// leak. Per-file read and parse failures are logged and skipped; they
// never abort sibling files or later groups.
func Archive(l *leak.Leak, acc archive.Accessor) {
	logger.Info("processing archive", slog.String("archive", acc.Name()))

	paths := make([]string, 0, 16)
	for _, entry := range acc.Entries() {
		if !entry.IsDir {
			paths = append(paths, entry.Path)
		}
	}
	sort.Strings(paths)

	files := classify.Classify(paths)
	for _, group := range classify.GroupFiles(files) {
		if record, ok := processGroup(acc, group); ok {
			l.SystemsData = append(l.SystemsData, record)
		}
	}

	logger.Debug("archive parsed",
		slog.String("archive", acc.Name()),
		slog.Int("systems", len(l.SystemsData)))
}

// processGroup parses one victim's files in sorted order and applies the
// retention and fingerprint-attachment rules.
func processGroup(acc archive.Accessor, group classify.Group) (record leak.SystemData, ok bool) {
	var stealerName string
	// IP from a bare ip file. Only ever a fallback: it never overrides a
	// system-dump IP and on its own does not qualify a record for
	// retention.
	var ipOnly string

	for _, file := range group.Files {
		fileLogger := logger.With(
			slog.String("archive", acc.Name()),
			slog.String("entry", file.Path))

		text, err := acc.ReadText(file.Path)
		if err != nil {
			fileLogger.Error("could not read entry", slog.String("error", err.Error()))
			continue
		}

		if stealerName == "" {
			// First signature hit for the group wins, later texts never
			// replace it.
			if name, found := fingerprint.Match(text); found {
				stealerName = name
			}
		}

		switch file.Category {
		case classify.Credentials:
			record.Credentials = append(record.Credentials, parse.Credentials(file.Path, text)...)

		case classify.SystemInfo:
			system := parse.SystemInfo(file.Path, text)
			if system == nil {
				continue
			}
			// An IP already discovered in this group wins over whatever
			// the fresh dump reports.
			if record.System != nil && record.System.IPAddress != "" {
				system.IPAddress = record.System.IPAddress
			}
			if system.IPAddress == "" {
				system.IPAddress = ipOnly
			}
			record.System = system

		case classify.IPOnly:
			ip, found := parse.ExtractIP(text)
			if !found {
				fileLogger.Debug("no address in ip file")
				continue
			}
			if ipOnly == "" {
				ipOnly = ip
			}
			if record.System != nil && record.System.IPAddress == "" {
				record.System.IPAddress = ip
			}

		case classify.FingerprintText:
			// Already scanned for a signature above.
		}
	}

	// A family name is only meaningful on records that actually carry
	// credentials.
	if len(record.Credentials) > 0 {
		record.StealerName = stealerName
	} else {
		record.Credentials = []leak.Credential{}
	}
	return record, record.Keep()
}
