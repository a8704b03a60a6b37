package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/seanrmurphy/tgdigest/store"
)

// statePaths lays out the state directory.
type statePaths struct {
	Root     string
	LogFile  string
	TDLibDir string
	TDLibLog string
	Database string
}

func newStatePaths(root string) statePaths {
	return statePaths{
		Root:     root,
		LogFile:  filepath.Join(root, "log.jsonl"),
		TDLibDir: filepath.Join(root, "tdlib"),
		TDLibLog: filepath.Join(root, "tdlib.log"),
		Database: filepath.Join(root, store.Filename),
	}
}

func (p statePaths) create() error {
	for _, dir := range []string{p.Root, p.TDLibDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

func createLogger(logFilePath string) *zap.Logger {
	// Setting up logging to file with rotation.
	//
	// Log to file, so we don't interfere with prompts and messages to user.
	logWriter := zapcore.AddSync(&lj.Logger{
		Filename:   logFilePath,
		MaxBackups: 3,
		MaxSize:    1, // megabytes
		MaxAge:     7, // days
	})
	logCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		logWriter,
		zap.DebugLevel,
	)
	return zap.New(logCore)
}

func openHistory(ctx context.Context, p statePaths, lg *zap.Logger) (*store.History, error) {
	h, err := store.Open(ctx, p.Database, lg)
	if err != nil {
		return nil, errors.Wrap(err, "open history")
	}
	return h, nil
}
