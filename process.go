package tidedb

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nholden/tidedb/core"
)

// Telemetry states whether the process may report anonymous usage
// statistics. Reporting is not wired to any backend; the choice is
// recorded in the process event log.
type Telemetry int

const (
	DoNotSendUsageStatistics Telemetry = iota
	SendUsageStatistics
)

// Process is the engine runtime shared by one or more connections. It
// owns the rotating event log and tracks connections so it cannot shut
// down underneath them.
type Process struct {
	settings Settings
	logger   *zap.Logger
	logSink  *lumberjack.Logger

	mu          sync.Mutex
	connections map[*Connection]struct{}
	closed      bool
}

// StartProcess boots the engine runtime. Later settings maps override
// earlier ones.
func StartProcess(telemetry Telemetry, settings ...Settings) (*Process, error) {
	merged := mergeSettings(settings...)

	logDir := merged.get("log_dir", os.TempDir())
	maxCount, err := merged.getInt("log_file_max_count", 2)
	if err != nil {
		return nil, err
	}
	sizeMB, err := parseSizeLimit(merged.get("log_file_size_limit", "100M"))
	if err != nil {
		return nil, err
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "tidedb.log"),
		MaxSize:    sizeMB,
		MaxBackups: maxCount,
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(sink), zap.InfoLevel))

	process := &Process{
		settings:    merged,
		logger:      logger,
		logSink:     sink,
		connections: map[*Connection]struct{}{},
	}
	logger.Info("process started",
		zap.Bool("send_usage_statistics", telemetry == SendUsageStatistics),
		zap.String("log_dir", logDir))
	return process, nil
}

// Logger exposes the process event log.
func (process *Process) Logger() *zap.Logger {
	return process.logger
}

func (process *Process) attach(connection *Connection) error {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.closed {
		return core.Errorf(core.KindUseAfterClose, "process already closed")
	}
	process.connections[connection] = struct{}{}
	return nil
}

func (process *Process) detach(connection *Connection) {
	process.mu.Lock()
	delete(process.connections, connection)
	process.mu.Unlock()
}

// Close shuts the process down. It fails while connections are still
// open.
func (process *Process) Close() error {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.closed {
		return core.Errorf(core.KindUseAfterClose, "process already closed")
	}
	if len(process.connections) > 0 {
		return core.Errorf(core.KindUseAfterClose,
			"%d connections still open", len(process.connections))
	}
	process.closed = true
	process.logger.Info("process stopped")
	process.logger.Sync()
	return process.logSink.Close()
}
