package archivekit

import (
	"errors"
	"log/slog"

	"github.com/arclane/archivekit/progress"
)

// ErrMinConcurrency is returned by a concurrency option given a
// non-positive value, mirroring the teacher's WithExtractorConcurrency
// guard.
var ErrMinConcurrency = errors.New("archivekit: concurrency must be positive")

// PackOption configures a Pack call, in the shape of the teacher's
// ArchiverOption/WithArchiverMethod pattern.
type PackOption func(*packSettings) error

type packSettings struct {
	container   Container
	config      Config
	exclude     []string
	concurrency int
	stageDir    string
	progress    progress.Reporter
	logger      *slog.Logger
	incremental bool
}

func defaultPackSettings() packSettings {
	return packSettings{container: ContainerTar, logger: slog.Default()}
}

// WithPackContainer selects the archive container format. The default
// is inferred from the archive path's extension; this overrides that
// inference.
func WithPackContainer(c Container) PackOption {
	return func(s *packSettings) error {
		s.container = c
		return nil
	}
}

// WithPackConfig supplies the strategy configuration (spec §6).
func WithPackConfig(c Config) PackOption {
	return func(s *packSettings) error {
		s.config = c
		return nil
	}
}

// WithPackExclude adds glob exclusion patterns (spec §4.5.2).
func WithPackExclude(patterns ...string) PackOption {
	return func(s *packSettings) error {
		s.exclude = append(s.exclude, patterns...)
		return nil
	}
}

// WithPackConcurrency sets the worker-pool width for the read/hash
// stage. The default is a fixed 8 workers.
func WithPackConcurrency(n int) PackOption {
	return func(s *packSettings) error {
		if n <= 0 {
			return ErrMinConcurrency
		}
		s.concurrency = n
		return nil
	}
}

// WithPackStageDir overrides where staged entry bodies spill to disk
// once they outgrow internal/stage's in-memory threshold.
func WithPackStageDir(dir string) PackOption {
	return func(s *packSettings) error {
		s.stageDir = dir
		return nil
	}
}

// WithPackProgress wires a progress.Reporter into the pack pipeline.
func WithPackProgress(r progress.Reporter) PackOption {
	return func(s *packSettings) error {
		s.progress = r
		return nil
	}
}

// WithPackLogger overrides the default slog.Logger used for demoted,
// non-fatal warnings.
func WithPackLogger(l *slog.Logger) PackOption {
	return func(s *packSettings) error {
		s.logger = l
		return nil
	}
}

// WithPackIncremental enables incremental mode (spec §4.5.3/§4.8):
// the prior manifest sibling file, if present, is loaded and unchanged
// files are excluded from the archive body.
func WithPackIncremental() PackOption {
	return func(s *packSettings) error {
		s.incremental = true
		return nil
	}
}

// ExtractOption configures an Extract call.
type ExtractOption func(*extractSettings) error

type extractSettings struct {
	policy      ExtractionPolicy
	concurrency int
	progress    progress.Reporter
	logger      *slog.Logger
	chownWarn   func(error)
}

func defaultExtractSettings() extractSettings {
	return extractSettings{logger: slog.Default()}
}

// WithExtractPolicy sets the full extraction policy in one call.
func WithExtractPolicy(p ExtractionPolicy) ExtractOption {
	return func(s *extractSettings) error {
		s.policy = p
		return nil
	}
}

// WithExtractConcurrency sets the maximum number of files being
// extracted concurrently, mirroring WithExtractorConcurrency.
func WithExtractConcurrency(n int) ExtractOption {
	return func(s *extractSettings) error {
		if n <= 0 {
			return ErrMinConcurrency
		}
		s.concurrency = n
		return nil
	}
}

// WithExtractProgress wires a progress.Reporter into the extract
// pipeline.
func WithExtractProgress(r progress.Reporter) ExtractOption {
	return func(s *extractSettings) error {
		s.progress = r
		return nil
	}
}

// WithExtractLogger overrides the default slog.Logger.
func WithExtractLogger(l *slog.Logger) ExtractOption {
	return func(s *extractSettings) error {
		s.logger = l
		return nil
	}
}

// WithExtractChownErrorHandler sets a handler invoked when ownership
// restoration fails, mirroring the teacher's
// WithExtractorChownErrorHandler. A nil handler (the default) logs at
// warn level via the configured slog.Logger and continues.
func WithExtractChownErrorHandler(fn func(error)) ExtractOption {
	return func(s *extractSettings) error {
		s.chownWarn = fn
		return nil
	}
}

// ModifyOption configures an Add or Remove call.
type ModifyOption func(*modifySettings) error

type modifySettings struct {
	concurrency int
	stageDir    string
	progress    progress.Reporter
	logger      *slog.Logger
}

func defaultModifySettings() modifySettings {
	return modifySettings{logger: slog.Default()}
}

// WithModifyConcurrency sets the worker-pool width for staging new
// entries during Add.
func WithModifyConcurrency(n int) ModifyOption {
	return func(s *modifySettings) error {
		if n <= 0 {
			return ErrMinConcurrency
		}
		s.concurrency = n
		return nil
	}
}

// WithModifyStageDir overrides where staged new-entry bodies spill to
// disk.
func WithModifyStageDir(dir string) ModifyOption {
	return func(s *modifySettings) error {
		s.stageDir = dir
		return nil
	}
}

// WithModifyProgress wires a progress.Reporter into Add/Remove.
func WithModifyProgress(r progress.Reporter) ModifyOption {
	return func(s *modifySettings) error {
		s.progress = r
		return nil
	}
}

// WithModifyLogger overrides the default slog.Logger.
func WithModifyLogger(l *slog.Logger) ModifyOption {
	return func(s *modifySettings) error {
		s.logger = l
		return nil
	}
}
