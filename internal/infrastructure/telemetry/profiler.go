package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

const defaultContentionRate = 5

// ProfilerConfig holds Pyroscope continuous profiling configuration.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string

	// ProfileContention adds mutex and block profiles. Posting throughput is
	// usually bounded by the per-company lock, so this is where waits show up.
	ProfileContention bool
	// ContentionRate sets both the mutex fraction and the block rate. Zero means 5.
	ContentionRate int

	// Tags are attached to every uploaded profile next to hostname and pod.
	Tags map[string]string
}

// Profiler owns the Pyroscope session. A disabled profiler is a valid no-op.
type Profiler struct {
	session *pyroscope.Profiler
	logger  *zap.Logger
	config  ProfilerConfig

	stopOnce sync.Once
	stopErr  error
}

func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	switch {
	case cfg.ServerAddress == "":
		return nil, errors.New("profiler: server address is required")
	case cfg.ApplicationName == "":
		return nil, errors.New("profiler: application name is required")
	}

	if cfg.ProfileContention {
		rate := cfg.ContentionRate
		if rate <= 0 {
			rate = defaultContentionRate
		}
		runtime.SetMutexProfileFraction(rate)
		runtime.SetBlockProfileRate(rate)
	}

	types := profileTypes(cfg.ProfileContention)
	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		// *zap.SugaredLogger already has Infof, Debugf and Errorf
		Logger:       logger.Named("pyroscope").Sugar(),
		Tags:         profileTags(cfg.Tags),
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.session = session

	logger.Info("Continuous profiling started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
		zap.Bool("contention", cfg.ProfileContention),
	)
	return p, nil
}

func profileTypes(contention bool) []pyroscope.ProfileType {
	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if contention {
		types = append(types,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		)
	}
	return types
}

func profileTags(extra map[string]string) map[string]string {
	tags := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		if v != "" {
			tags[k] = v
		}
	}
	if host := os.Getenv("HOSTNAME"); host != "" {
		tags["hostname"] = host
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		tags["pod"] = pod
	}
	return tags
}

// Stop uploads the last profiles and ends the session. Later calls return
// the first result. The SDK applies its own upload timeout.
func (p *Profiler) Stop() error {
	p.stopOnce.Do(func() {
		if p.session == nil {
			return
		}
		if err := p.session.Stop(); err != nil {
			p.logger.Error("Profiler stop failed", zap.Error(err))
			p.stopErr = fmt.Errorf("stop pyroscope: %w", err)
			return
		}
		p.logger.Info("Continuous profiling stopped")
	})
	return p.stopErr
}

func (p *Profiler) IsEnabled() bool { return p.config.Enabled && p.session != nil }

func (p *Profiler) GetConfig() ProfilerConfig { return p.config }
