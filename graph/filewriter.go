package graph

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/internal/pool"
	"github.com/neuromore/engine/resample"
	"github.com/neuromore/engine/signal"
	"github.com/neuromore/engine/wav"
)

// WriteMode defines what happens to existing files.
type WriteMode int

// Write modes.
const (
	// Overwrite truncates existing files.
	Overwrite WriteMode = iota
	// Keep never touches existing files, the node reports an error instead.
	Keep
)

func (m WriteMode) String() string {
	switch m {
	case Overwrite:
		return "Overwrite"
	case Keep:
		return "Keep"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

const (
	// StartTimePlaceholder in a file path is replaced with the time the
	// file was opened.
	StartTimePlaceholder = "$starttime"
	// startTimeLayout is ISO 8601 in UTC without colons.
	startTimeLayout = "2006-01-02T150405Z"
	// fileWriteFrequency is the rate in Hz samples are written with.
	fileWriteFrequency = 10
)

// FileWriterConfig configures a file writer node.
type FileWriterConfig struct {
	Path     string
	Mode     WriteMode
	BitDepth signal.BitDepth
	// Range is the absolute input value written as full scale.
	Range      float64
	Resolution Resolution
}

// DefaultFileWriterConfig returns the config new file writers use.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		Path:     StartTimePlaceholder + ".wav",
		Mode:     Overwrite,
		BitDepth: signal.BitDepth16,
		Range:    1,
	}
}

// FileWriter records its input channels to a wav file. The file is opened
// when the node starts and closed when it's reset or the classifier stops.
type FileWriter struct {
	output
	node   *Node
	config FileWriterConfig
	now    func() time.Time

	path     string
	writer   *wav.Writer
	reader   *channel.MultiReader
	clock    resample.Clock
	writeErr error
}

// NewFileWriter returns file writer node behavior.
func NewFileWriter(config FileWriterConfig) *FileWriter {
	return &FileWriter{
		output: output{resolution: config.Resolution},
		config: config,
		now:    time.Now,
	}
}

// Kind implements Behavior.
func (*FileWriter) Kind() Kind { return KindOutput }

// TypeName implements Behavior.
func (*FileWriter) TypeName() string { return "file writer" }

// Init implements Initializable.
func (f *FileWriter) Init(n *Node) {
	f.node = n
	n.AddInputPort("In")
	n.SetFlags(RequireInputConnection | RequireConstantSampleRate | RequireMatchingSampleRates)
}

// Config returns the current config.
func (f *FileWriter) Config() FileWriterConfig {
	return f.config
}

// Path returns the path of the open file, empty if no file is open.
func (f *FileWriter) Path() string {
	if f.writer == nil {
		return ""
	}
	return f.path
}

// SetConfig validates and applies a new config. A changed config reopens
// the file.
func (f *FileWriter) SetConfig(config FileWriterConfig) error {
	if config.BitDepth != signal.BitDepth16 && config.BitDepth != signal.BitDepth32 {
		return wav.ErrUnsupportedBitDepth
	}
	if config.Range <= 0 {
		return fmt.Errorf("range %v must be positive", config.Range)
	}
	if config == f.config {
		return nil
	}
	f.config = config
	f.resolution = config.Resolution
	f.node.ResetAsync()
	return nil
}

// ReInit resolves the file path. Write errors of the last update stop the
// node and restart it on the next update.
func (f *FileWriter) ReInit(n *Node, elapsed float64) bool {
	if f.writeErr != nil {
		n.SetError(ErrorFileNotWriteable, f.writeErr.Error())
		f.writeErr = nil
		n.ResetAsync()
		return false
	}
	if f.writer != nil {
		return true
	}

	f.path = strings.ReplaceAll(f.config.Path, StartTimePlaceholder, f.now().UTC().Format(startTimeLayout))
	if f.path == "" {
		n.SetError(ErrorFileNotWriteable, "No file name.")
		return false
	}
	if f.config.Mode == Keep {
		if _, err := os.Stat(f.path); err == nil {
			n.SetError(ErrorFileAlreadyExists, fmt.Sprintf("File %s already exists.", f.path))
			return false
		}
	}
	n.ClearError(ErrorFileAlreadyExists)
	return true
}

// Start opens the file and starts writing at the time all inputs reached.
func (f *FileWriter) Start(n *Node, elapsed float64) error {
	if err := f.output.Start(n, elapsed); err != nil {
		return err
	}
	if f.NumChannels() == 0 {
		return errors.New("no input channels")
	}
	rate := int(math.Round(f.Channel(0).SampleRate()))
	if rate < 1 {
		err := fmt.Errorf("sample rate %v can't be stored", f.Channel(0).SampleRate())
		n.SetError(ErrorFileNotWriteable, err.Error())
		return err
	}

	w, err := wav.Create(f.path, rate, f.NumChannels(), f.config.BitDepth)
	if err != nil {
		n.SetError(ErrorFileNotWriteable, err.Error())
		return err
	}
	n.ClearError(ErrorFileNotWriteable)
	f.writer = w

	startTime := n.Reader().FindMinLastSampleTime()
	outputs := channel.NewMultiChannel()
	for i := 0; i < f.NumChannels(); i++ {
		outputs.AddChannel(f.Channel(i))
	}
	f.reader = channel.NewMultiReader(outputs)
	f.reader.Start(startTime)

	f.clock.SetMode(resample.Independent)
	f.clock.SetFrequency(fileWriteFrequency)
	f.clock.SetStartTime(elapsed)
	f.clock.Reset()
	f.clock.Start()
	n.Logger().Info(fmt.Sprintf("writing %d channels to %s", f.NumChannels(), f.path))
	return nil
}

// Update writes the samples all channels received on every clock tick.
func (f *FileWriter) Update(n *Node, elapsed, delta float64) {
	f.UpdateResamplers(n, elapsed, delta)
	if f.writer == nil {
		return
	}
	f.reader.Update()
	f.clock.Update(elapsed, delta)
	if f.clock.NumNewTicks() == 0 {
		return
	}
	f.clock.ClearNewTicks()
	if err := f.write(); err != nil {
		f.writeErr = err
	}
}

// write stores the samples every channel received.
func (f *FileWriter) write() error {
	numSamples := f.reader.MinNumNewSamples()
	if numSamples == 0 {
		return nil
	}
	scale := 1 / f.config.Range
	p := pool.Get(f.reader.NumReaders())
	b := p.Alloc(numSamples)
	defer p.Free(b)
	for i := range b {
		r := f.reader.Reader(i)
		for j := range b[i] {
			b[i][j] = channel.PopOldestSample[float64](r) * scale
		}
	}
	return f.writer.Write(b)
}

// close writes the remaining samples and closes the file.
func (f *FileWriter) close() error {
	if f.writer == nil {
		return nil
	}
	f.reader.Update()
	err := f.write()
	if cerr := f.writer.Close(); err == nil {
		err = cerr
	}
	f.writer = nil
	f.clock.Stop()
	return err
}

// Reset closes the file.
func (f *FileWriter) Reset(n *Node) {
	if err := f.close(); err != nil {
		n.Logger().Warn(fmt.Sprintf("closing %s: %v", f.path, err))
	}
	f.output.Reset(n)
}

// Stop implements Stopper.
func (f *FileWriter) Stop(n *Node) error {
	return f.close()
}
