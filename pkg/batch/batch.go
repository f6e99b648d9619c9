// Package batch drives the extraction pipeline over one or many
// archives: discovery, per-archive processing, success/failure
// bucketing, candidate-password retry and incremental output.
//
// Archives are processed strictly one at a time; an interrupt is honored
// only between archive units so the bucket move and output append of an
// archive always complete together.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stealsift/stealsift/pkg/archive"
	"github.com/stealsift/stealsift/pkg/leak"
	"github.com/stealsift/stealsift/pkg/output"
	"github.com/stealsift/stealsift/pkg/process"
	"github.com/stealsift/stealsift/pkg/registry"
)

var (
	// LogLevel controls batch log verbosity.
	LogLevel = &slog.LevelVar{}
	logger   = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel}))
)

// SupportedExtensions lists the container formats discovery picks up.
var SupportedExtensions = []string{".zip", ".rar", ".7z"}

// Config of a batch run.
type Config struct {
	// Target is the archive file or directory to scan recursively.
	Target string
	// Output is the JSON document results are appended to. Empty means
	// one document per archive, named after it.
	Output string
	// Password is tried first on every archive.
	Password string
	// Passwords is the ordered candidate list retried against archives
	// parked in the failure bucket.
	Passwords []string
	// MaxArchiveSize skips containers above this size. Zero means no
	// limit.
	MaxArchiveSize int64
	// RegistryPath enables the processed-archive registry. Empty
	// disables it.
	RegistryPath string
}

// Summary reports the outcome counts of a run. Processed and Skipped
// always add up to the number of discovered archives; Recovered counts
// failures later salvaged by the candidate password list.
type Summary struct {
	Processed int
	Skipped   int
	Recovered int
}

// Runner executes a batch. One runner processes one archive at a time;
// no archive handle outlives its processing.
type Runner struct {
	cfg     Config
	runID   string
	success *Bucket
	failed  *Bucket
	writer  *output.Writer
	reg     registry.Recorder
}

func NewRunner(cfg Config) (r *Runner, err error) {
	r = &Runner{cfg: cfg, runID: uuid.NewString()}
	if cfg.Output != "" {
		r.writer = output.NewWriter(cfg.Output)
	}
	if cfg.RegistryPath != "" {
		if r.reg, err = registry.New(cfg.RegistryPath); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Close releases the registry handle.
func (r *Runner) Close() (err error) {
	if r.reg != nil {
		err = r.reg.Close()
	}
	return
}

// Run processes the configured target. The context is only consulted
// between archive-level units of work; a cancellation mid-archive lets
// the in-flight unit finish its output append and bucket move first.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	logger.Info("starting run",
		slog.String("run-id", r.runID),
		slog.String("target", r.cfg.Target))

	info, err := os.Stat(r.cfg.Target)
	if err != nil {
		return
	}

	base := r.cfg.Target
	if !info.IsDir() {
		base = filepath.Dir(r.cfg.Target)
	}
	if r.success, err = NewBucket(filepath.Join(base, SuccessBucketName)); err != nil {
		return
	}
	if r.failed, err = NewBucket(filepath.Join(base, FailedBucketName)); err != nil {
		return
	}

	var targets []string
	if info.IsDir() {
		if targets, err = discover(r.cfg.Target); err != nil {
			return
		}
		if len(targets) == 0 {
			logger.Warn("no supported archives found", slog.String("target", r.cfg.Target))
			return
		}
	} else {
		targets = []string{r.cfg.Target}
	}

	logger.Info("archives discovered", slog.Int("count", len(targets)))

	for i, target := range targets {
		if err = ctx.Err(); err != nil {
			summary.Skipped += len(targets) - i
			return
		}
		if r.handleOne(target, r.cfg.Password) {
			summary.Processed++
		} else {
			summary.Skipped++
		}
	}

	if len(r.cfg.Passwords) > 0 && summary.Skipped > 0 {
		var recovered int
		recovered, err = r.retryFailed(ctx)
		summary.Recovered = recovered
		summary.Processed += recovered
		summary.Skipped -= recovered
		if err != nil {
			return
		}
	}

	logger.Info("run finished",
		slog.String("run-id", r.runID),
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("recovered", summary.Recovered))
	return summary, ctx.Err()
}

// RunOne processes a single archive outside a batch walk, trying the
// primary password and then every candidate before bucketing. Watch mode
// feeds newly dropped files through here.
func (r *Runner) RunOne(ctx context.Context, target string) (ok bool, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	base := filepath.Dir(target)
	if r.success == nil {
		if r.success, err = NewBucket(filepath.Join(base, SuccessBucketName)); err != nil {
			return
		}
		if r.failed, err = NewBucket(filepath.Join(base, FailedBucketName)); err != nil {
			return
		}
	}

	ok, parseErr := r.processOne(target, r.cfg.Password)
	for i := 0; !ok && i < len(r.cfg.Passwords); i++ {
		if r.cfg.Passwords[i] == r.cfg.Password {
			continue
		}
		ok, parseErr = r.processOne(target, r.cfg.Passwords[i])
	}
	if parseErr != nil && !ok {
		logger.Warn("archive not parsed", slog.String("archive", target), slog.String("error", parseErr.Error()))
	}

	bucket := r.failed
	if ok {
		bucket = r.success
	}
	if _, moveErr := bucket.Place(target); moveErr != nil {
		logger.Error("could not move archive to bucket",
			slog.String("archive", target),
			slog.String("error", moveErr.Error()))
	}
	return ok, nil
}

// handleOne runs the whole pipeline for one archive and relocates it
// into the matching bucket. Returns true on success.
func (r *Runner) handleOne(target, password string) (ok bool) {
	archiveLogger := logger.With(slog.String("archive", target))

	ok, parseErr := r.processOne(target, password)
	if parseErr != nil {
		archiveLogger.Warn("archive not parsed", slog.String("error", parseErr.Error()))
	}

	bucket := r.failed
	if ok {
		bucket = r.success
	}
	finalPath, moveErr := bucket.Place(target)
	if moveErr != nil {
		archiveLogger.Error("could not move archive to bucket",
			slog.String("bucket", bucket.Dir()),
			slog.String("error", moveErr.Error()))
		return
	}
	archiveLogger.Info("archive bucketed", slog.String("destination", finalPath))
	return
}

// processOne opens, parses and persists a single archive. The accessor
// is always released before returning so no handle crosses archives.
func (r *Runner) processOne(target, password string) (ok bool, err error) {
	info, err := os.Stat(target)
	if err != nil {
		return
	}
	if r.cfg.MaxArchiveSize > 0 && info.Size() > r.cfg.MaxArchiveSize {
		err = errors.New("archive exceeds configured size limit")
		return
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return
	}

	digest := sha256.Sum256(data)
	contentHash := hex.EncodeToString(digest[:])
	if r.reg != nil {
		if entry, getErr := r.reg.Get(contentHash); getErr == nil && entry.Outcome == registry.OutcomeSuccess {
			logger.Info("archive already processed, skipping parse",
				slog.String("archive", target),
				slog.String("previous-run", entry.RunID))
			return true, nil
		}
	}

	acc, err := archive.Open(data, target, password)
	if err != nil {
		r.record(contentHash, target, registry.OutcomeFailed, 0)
		return
	}
	defer func() {
		if closeErr := acc.Close(); closeErr != nil {
			logger.Warn("could not close archive", slog.String("archive", target))
		}
	}()

	if password == "" && acc.NeedsPassword() {
		err = &archive.AccessError{Archive: target, Err: archive.ErrBadPassword}
		r.record(contentHash, target, registry.OutcomeFailed, 0)
		return
	}

	result := &leak.Leak{Filename: target, SystemsData: []leak.SystemData{}}
	process.Archive(result, acc)

	if len(result.SystemsData) == 0 {
		err = errors.New("no victim records extracted")
		r.record(contentHash, target, registry.OutcomeFailed, 0)
		return
	}

	if writeErr := r.persist(result); writeErr != nil {
		// The archive still counts as parsed, only the sink failed.
		logger.Error("could not write output",
			slog.String("archive", target),
			slog.String("error", writeErr.Error()))
	}
	r.record(contentHash, target, registry.OutcomeSuccess, len(result.SystemsData))
	return true, nil
}

func (r *Runner) persist(result *leak.Leak) error {
	if r.writer != nil {
		return r.writer.Append(result)
	}
	path := strings.TrimSuffix(result.Filename, filepath.Ext(result.Filename)) + ".json"
	return output.WriteSingle(path, result)
}

func (r *Runner) record(sha, name, outcome string, systems int) {
	if r.reg == nil {
		return
	}
	err := r.reg.Set(&registry.Entry{
		SHA256:  sha,
		Name:    filepath.Base(name),
		RunID:   r.runID,
		Outcome: outcome,
		Systems: systems,
	})
	if err != nil {
		logger.Warn("could not record archive in registry",
			slog.String("archive", name),
			slog.String("error", err.Error()))
	}
}

// retryFailed walks the failure bucket and re-attempts the whole
// per-archive pipeline with each candidate password until one succeeds
// or the list is exhausted. Recovered archives are re-bucketed.
func (r *Runner) retryFailed(ctx context.Context) (recovered int, err error) {
	targets, err := discover(r.failed.Dir())
	if err != nil || len(targets) == 0 {
		return
	}
	logger.Info("retrying failed archives",
		slog.Int("archives", len(targets)),
		slog.Int("candidates", len(r.cfg.Passwords)))

	for _, target := range targets {
		if err = ctx.Err(); err != nil {
			return
		}
		retryLogger := logger.With(slog.String("archive", target))
		salvaged := false
		for _, candidate := range r.cfg.Passwords {
			ok, tryErr := r.processOne(target, candidate)
			if !ok {
				retryLogger.Debug("candidate password failed", slog.String("error", tryErr.Error()))
				continue
			}
			if _, moveErr := r.success.Place(target); moveErr != nil {
				retryLogger.Error("could not move recovered archive", slog.String("error", moveErr.Error()))
			}
			recovered++
			salvaged = true
			retryLogger.Info("archive recovered with candidate password")
			break
		}
		if !salvaged {
			retryLogger.Warn("all candidate passwords failed")
		}
	}
	return
}

// discover returns the supported archives under root in sorted order,
// ignoring the bucket directories.
func discover(root string) (targets []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && (d.Name() == SuccessBucketName || d.Name() == FailedBucketName) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, supported := range SupportedExtensions {
			if ext == supported {
				targets = append(targets, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(targets)
	return targets, nil
}
