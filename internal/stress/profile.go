package stress

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// ProfileType names a runtime profile the Profiler can capture.
type ProfileType string

const (
	CPUProfile       ProfileType = "cpu"
	HeapProfile      ProfileType = "heap"
	BlockProfile     ProfileType = "block"
	MutexProfile     ProfileType = "mutex"
	GoroutineProfile ProfileType = "goroutine"
	TraceProfile     ProfileType = "trace"
)

// ProfileTypes lists every supported profile type.
var ProfileTypes = []ProfileType{CPUProfile, HeapProfile, BlockProfile, MutexProfile, GoroutineProfile, TraceProfile}

// Profiler captures pprof profiles and an execution trace around a stress
// run. CPU and trace capture run between Start and Stop; the rest are
// snapshots written by Stop.
type Profiler struct {
	dir   string
	types []ProfileType
	log   *zap.Logger
	stamp string

	cpuFile   *os.File
	traceFile *os.File
	prevMutex int
}

// NewProfiler creates a profiler writing into dir.
func NewProfiler(dir string, types []ProfileType, log *zap.Logger) (*Profiler, error) {
	for _, t := range types {
		if !isProfileType(t) {
			return nil, errors.New(errors.ErrorTypeConfig, "unknown profile type").
				WithDetail("type", string(t))
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Profiler{dir: dir, types: types, log: log}, nil
}

// Start creates the output directory and begins CPU and trace capture.
func (p *Profiler) Start() error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create profile directory").
			WithDetail("dir", p.dir)
	}
	p.stamp = time.Now().Format("20060102_150405")

	for _, t := range p.types {
		switch t {
		case BlockProfile:
			runtime.SetBlockProfileRate(1)
		case MutexProfile:
			p.prevMutex = runtime.SetMutexProfileFraction(1)
		case CPUProfile:
			f, err := p.create(t, "prof")
			if err != nil {
				return err
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				_ = f.Close()
				return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
			}
			p.cpuFile = f
		case TraceProfile:
			f, err := p.create(t, "out")
			if err != nil {
				return err
			}
			if err := trace.Start(f); err != nil {
				_ = f.Close()
				return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start execution trace")
			}
			p.traceFile = f
		}
	}

	p.log.Info("profiling started", zap.String("dir", p.dir), zap.Any("types", p.types))
	return nil
}

// Stop ends CPU and trace capture, writes the snapshot profiles and returns
// the paths of every file written.
func (p *Profiler) Stop() ([]string, error) {
	var files []string
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		files = append(files, p.cpuFile.Name())
		_ = p.cpuFile.Close()
		p.cpuFile = nil
	}
	if p.traceFile != nil {
		trace.Stop()
		files = append(files, p.traceFile.Name())
		_ = p.traceFile.Close()
		p.traceFile = nil
	}

	var firstErr error
	for _, t := range p.types {
		var name string
		var err error
		switch t {
		case HeapProfile:
			runtime.GC()
			name, err = p.snapshot(t, "heap", 0)
		case BlockProfile:
			name, err = p.snapshot(t, "block", 0)
			runtime.SetBlockProfileRate(0)
		case MutexProfile:
			name, err = p.snapshot(t, "mutex", 0)
			runtime.SetMutexProfileFraction(p.prevMutex)
		case GoroutineProfile:
			name, err = p.snapshot(t, "goroutine", 2)
		default:
			continue
		}
		if err != nil {
			p.log.Error("failed to write profile", zap.String("type", string(t)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		files = append(files, name)
	}

	p.log.Info("profiling completed", zap.Strings("files", files))
	return files, firstErr
}

func (p *Profiler) snapshot(t ProfileType, lookup string, debug int) (string, error) {
	f, err := p.create(t, "prof")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := pprof.Lookup(lookup).WriteTo(f, debug); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to write profile").
			WithDetail("type", string(t))
	}
	return f.Name(), nil
}

func (p *Profiler) create(t ProfileType, ext string) (*os.File, error) {
	name := filepath.Join(p.dir, fmt.Sprintf("%s_%s.%s", t, p.stamp, ext))
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create profile file").
			WithDetail("file", name)
	}
	return f, nil
}

func isProfileType(t ProfileType) bool {
	for _, known := range ProfileTypes {
		if t == known {
			return true
		}
	}
	return false
}
