package tdlib

import "github.com/go-faster/errors"

// LogVerbosity is TDLib's log level, from 0 (fatal only) to 5 (verbose).
type LogVerbosity int32

const (
	LogFatal LogVerbosity = iota
	LogError
	LogWarning
	LogInfo
	LogDebug
	LogVerbose
)

// DefaultLogMaxFileSize is the size at which TDLib rotates its log file.
const DefaultLogMaxFileSize int64 = 100 << 20

// ConfigureLogging points TDLib's internal log at path, or discards it when
// path is empty. It has to run before the first client is created.
func ConfigureLogging(exec Executor, verbosity LogVerbosity, path string, maxFileSize int64) error {
	if verbosity < LogFatal || verbosity > LogVerbose {
		return errors.Errorf("log verbosity %d out of range", verbosity)
	}
	if err := Execute(exec, &SetLogVerbosityLevel{NewVerbosityLevel: int32(verbosity)}, nil); err != nil {
		return errors.Wrap(err, "set log verbosity")
	}
	stream := LogStreamEmpty()
	if path != "" {
		if maxFileSize <= 0 {
			maxFileSize = DefaultLogMaxFileSize
		}
		stream = LogStreamFile(path, maxFileSize)
	}
	if err := Execute(exec, &SetLogStream{LogStream: stream}, nil); err != nil {
		return errors.Wrap(err, "set log stream")
	}
	return nil
}
