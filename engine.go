package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/neuromore/engine/config"
	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/internal/multierr"
	"github.com/neuromore/engine/log"
	"github.com/neuromore/engine/metric"
	"github.com/neuromore/engine/notify"
)

// ErrNoClassifier is returned when an operation needs a loaded classifier.
var ErrNoClassifier = errors.New("no classifier loaded")

// Observer receives engine events. Nil funcs are skipped.
type Observer struct {
	ClassifierChanged func(*graph.Classifier)
	Synced            func(maxLatency float64)
	Paused            func()
	Continued         func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger of the engine and its device manager.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.rootLogger = l
		e.logger = log.WithComponent(l, "engine")
	}
}

// WithSettings replaces the default settings.
func WithSettings(s config.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithNotifications forwards device notifications to o.
func WithNotifications(o notify.Observer) Option {
	return func(e *Engine) {
		e.notifiers = append(e.notifiers, o)
	}
}

// Engine ticks the device manager and the active classifier on a shared
// timeline. It is the device.Context of its manager, sensors and devices
// read the drift correction and sync settings from it.
//
// Update and the classifier calls must happen on one goroutine. SyncAsync,
// SoftPause, SoftContinue and SetSessionRunning are safe for concurrent
// use.
type Engine struct {
	settings   config.Settings
	rootLogger log.Logger
	logger     log.Logger
	observers  []Observer
	notifiers  []notify.Observer

	manager *device.Manager

	mu         sync.Mutex
	classifier *graph.Classifier
	elapsed    float64

	running        atomic.Bool
	softPaused     atomic.Bool
	sessionRunning atomic.Bool
	syncRequested  atomic.Bool

	measure metric.MeasureFunc
}

// New returns a running engine with an empty device manager.
func New(options ...Option) *Engine {
	e := &Engine{
		settings:   config.Default(),
		rootLogger: log.Silent,
		logger:     log.Silent,
	}
	for _, option := range options {
		option(e)
	}
	managerOptions := []device.Option{
		device.WithContext(e),
		device.WithLogger(e.rootLogger),
		device.WithInactiveRemoval(e.settings.RemoveInactiveDevices),
	}
	for _, n := range e.notifiers {
		managerOptions = append(managerOptions, device.WithNotifications(n))
	}
	e.manager = device.NewManager(managerOptions...)
	e.measure = metric.Meter("engine", 0)()
	e.running.Store(true)
	return e
}

// Manager returns the device manager.
func (e *Engine) Manager() *device.Manager {
	return e.manager
}

// Settings returns the engine settings.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// DriftCorrection implements device.Context.
func (e *Engine) DriftCorrection() device.DriftCorrection {
	return e.settings.DriftCorrection
}

// AutoSync implements device.Context.
func (e *Engine) AutoSync() bool {
	return e.settings.AutoSync
}

// AutoDetection implements device.Context.
func (e *Engine) AutoDetection() bool {
	return e.settings.AutoDetection
}

// SyncAsync requests a sync on the next update. Requests are ignored while
// a session runs.
func (e *Engine) SyncAsync() {
	if e.sessionRunning.Load() {
		return
	}
	e.syncRequested.Store(true)
}

// IsSyncRequested reports a pending sync.
func (e *Engine) IsSyncRequested() bool {
	return e.syncRequested.Load()
}

// SetSessionRunning marks a recording session. Running sessions suppress
// sync requests.
func (e *Engine) SetSessionRunning(running bool) {
	e.sessionRunning.Store(running)
}

// IsSessionRunning returns the session flag.
func (e *Engine) IsSessionRunning() bool {
	return e.sessionRunning.Load()
}

// SetRunning stops or resumes all updates.
func (e *Engine) SetRunning(running bool) {
	e.running.Store(running)
}

// IsRunning returns false if updates are skipped.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// ElapsedTime returns the engine time in seconds.
func (e *Engine) ElapsedTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// NewClassifier returns a classifier bound to the engine devices and
// buffer duration. It still has to be loaded.
func (e *Engine) NewClassifier(name string, options ...graph.Option) *graph.Classifier {
	options = append([]graph.Option{
		graph.WithDeviceManager(e.manager),
		graph.WithBufferDuration(e.settings.BufferDuration),
		graph.WithLogger(e.rootLogger),
	}, options...)
	return graph.NewClassifier(name, options...)
}

// LoadClassifier makes c the active classifier. A loaded classifier is
// replaced.
func (e *Engine) LoadClassifier(c *graph.Classifier) {
	e.mu.Lock()
	if e.classifier != nil && e.classifier != c {
		if err := e.unload(); err != nil {
			e.logger.Warn(err)
		}
	}
	e.classifier = c
	e.mu.Unlock()
	e.logger.Info(fmt.Sprintf("loaded classifier '%s'", c.Name()))
	e.classifierChanged(c)
}

// UnloadClassifier stops and removes the active classifier.
func (e *Engine) UnloadClassifier() error {
	e.mu.Lock()
	if e.classifier == nil {
		e.mu.Unlock()
		return ErrNoClassifier
	}
	err := e.unload()
	e.mu.Unlock()
	e.classifierChanged(nil)
	return err
}

func (e *Engine) unload() error {
	c := e.classifier
	e.classifier = nil
	if c.IsStopped() {
		return nil
	}
	if err := c.Stop(); err != nil {
		return errors.Wrapf(err, "stop classifier %s", c.Name())
	}
	e.logger.Info(fmt.Sprintf("unloaded classifier '%s'", c.Name()))
	return nil
}

func (e *Engine) classifierChanged(c *graph.Classifier) {
	for _, o := range e.observers {
		if o.ClassifierChanged != nil {
			o.ClassifierChanged(c)
		}
	}
}

// Classifier returns the active classifier, nil if none is loaded.
func (e *Engine) Classifier() *graph.Classifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier
}

// Update advances the engine by delta seconds. A pending sync turns the
// tick into a reset and the classifier isn't updated.
func (e *Engine) Update(delta float64) {
	if !e.running.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.syncRequested.Load() {
		delta = 0
	}
	e.elapsed += delta

	e.manager.Update(e.elapsed, delta)
	e.manager.ProcessMessages()
	e.measure(1)

	if e.syncRequested.Load() {
		e.reset()
		return
	}
	if e.classifier != nil {
		e.classifier.Update(e.elapsed, delta)
	}
}

// Reset restarts the timeline: the classifier and the device data are
// reset and the engine syncs.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Engine) reset() {
	e.elapsed = 0
	e.syncRequested.Store(false)
	e.softPaused.Store(false)
	if e.classifier != nil {
		e.classifier.Reset()
	}
	e.manager.ResetDevices()
	e.sync()
}

// Sync aligns all sensors at the highest latency in the engine and runs
// the classifier once at that time.
func (e *Engine) Sync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
}

func (e *Engine) sync() {
	e.elapsed = 0
	maxLatency := e.manager.FindMaximumLatency()
	if e.classifier != nil {
		maxLatency = max(maxLatency, e.classifier.FindMaximumInputLatency())
	}
	e.logger.Debug(fmt.Sprintf("syncing sensors at %.3fs", maxLatency))
	e.manager.SyncDevices(maxLatency)
	if e.classifier != nil {
		e.classifier.Sync(0)
		e.classifier.Update(maxLatency, maxLatency)
	}
	for _, o := range e.observers {
		if o.Synced != nil {
			o.Synced(maxLatency)
		}
	}
}

// SoftPause pauses the classifier. Devices keep receiving data.
func (e *Engine) SoftPause() {
	if e.softPaused.Swap(true) {
		return
	}
	if c := e.Classifier(); c != nil {
		if err := c.Pause(); err != nil {
			e.logger.Warn(err)
		}
	}
	for _, o := range e.observers {
		if o.Paused != nil {
			o.Paused()
		}
	}
}

// SoftContinue continues a soft paused classifier.
func (e *Engine) SoftContinue() {
	if !e.softPaused.Swap(false) {
		return
	}
	if c := e.Classifier(); c != nil {
		if err := c.Continue(); err != nil {
			e.logger.Warn(err)
		}
	}
	for _, o := range e.observers {
		if o.Continued != nil {
			o.Continued()
		}
	}
}

// IsSoftPaused returns the soft pause flag.
func (e *Engine) IsSoftPaused() bool {
	return e.softPaused.Load()
}

// LoadDeviceConfigs adds the device configs of the JSON files. Files that
// fail are reported together, the others are still added.
func (e *Engine) LoadDeviceConfigs(paths ...string) error {
	var errs multierr.Errors
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "read device config"))
			continue
		}
		if err := e.manager.LoadDeviceConfig(data, true); err != nil {
			errs = append(errs, errors.Wrapf(err, "load device config %s", path))
		}
	}
	return errs.Ret()
}

// Run updates the engine every tick interval until ctx is done. Deltas
// are measured on the wall clock.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.settings.TickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Close stops the classifier and closes all devices and drivers.
func (e *Engine) Close() error {
	var errs multierr.Errors
	e.mu.Lock()
	if e.classifier != nil {
		if err := e.unload(); err != nil {
			errs = append(errs, err)
		}
	}
	e.mu.Unlock()
	if err := e.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	return errs.Ret()
}
