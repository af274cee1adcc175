package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/neuromore/engine"
	"github.com/neuromore/engine/config"
	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/log"
	"github.com/neuromore/engine/notify"
	"github.com/neuromore/engine/osc"
	"github.com/neuromore/engine/portaudio"
)

// addressReplacer turns sensor names into OSC address segments.
var addressReplacer = strings.NewReplacer(" ", "_", "(", "", ")", "")

type runCommand struct {
	settings string
	listen   string
	wav      stringList
	loop     bool
	record   string
	lowpass  float64
	audio    bool
	duration time.Duration
}

func (cmd *runCommand) Name() string {
	return "run"
}

func (cmd *runCommand) Help() string {
	return "Stream all devices to OSC outputs"
}

func (cmd *runCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.settings, "settings", "", "settings file (default ~/.neuromore/engine.yaml)")
	fs.StringVar(&cmd.listen, "listen", "", "UDP address of the OSC server, overrides the settings")
	fs.Var(&cmd.wav, "wav", "semicolon separated wav files played as devices")
	fs.BoolVar(&cmd.loop, "loop", false, "restart wav files at their end")
	fs.StringVar(&cmd.record, "record", "", "directory to record every sensor to")
	fs.Float64Var(&cmd.lowpass, "lowpass", 0, "low pass cutoff frequency in Hz, 0 disables the filter")
	fs.BoolVar(&cmd.audio, "audio", false, "play the first sensor on the default audio device")
	fs.DurationVar(&cmd.duration, "duration", 0, "stop after the duration, 0 runs until interrupted")
}

func (cmd *runCommand) Run(out io.Writer) (err error) {
	s, err := cmd.loadSettings()
	if err != nil {
		return err
	}

	logger := log.GetLogger()
	logger.SetOutput(out)
	e := engine.New(
		engine.WithSettings(s),
		engine.WithLogger(logger),
		engine.WithNotifications(notify.ObserverFunc(func(n notify.Notification) {
			logger.WithField("code", n.Code).Info(n.Message)
		})),
	)
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	types, err := registerDevices(e, s)
	if err != nil {
		return err
	}
	if err := e.LoadDeviceConfigs(s.DeviceConfigs...); err != nil {
		return err
	}
	c, err := cmd.classifier(e, types, s)
	if err != nil {
		return err
	}
	e.LoadClassifier(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.duration)
		defer cancel()
	}

	if s.OSC.Listen != "" {
		conn, err := net.ListenPacket("udp", s.OSC.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.OSC.Listen, err)
		}
		server := osc.NewServer(e.Manager(), osc.WithLogger(logger))
		done := make(chan error, 1)
		go func() {
			done <- server.Serve(conn)
		}()
		defer func() {
			server.Close()
			if serr := <-done; !errors.Is(serr, osc.ErrServerClosed) {
				logger.Warn(serr)
			}
		}()
	}

	err = e.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (cmd *runCommand) loadSettings() (config.Settings, error) {
	var (
		s   config.Settings
		err error
	)
	if cmd.settings != "" {
		s, err = config.Load(cmd.settings)
	} else {
		s, err = config.LoadDefault()
	}
	if err != nil {
		return config.Settings{}, err
	}
	if cmd.listen != "" {
		s.OSC.Listen = cmd.listen
	}
	if len(cmd.wav) > 0 {
		s.Wav.Files = cmd.wav
	}
	if cmd.loop {
		s.Wav.Loop = true
	}
	return s, nil
}

// classifier reads every sensor of the types and sends it to an OSC
// address named after type and sensor. Sensors are optionally filtered,
// recorded and played.
func (cmd *runCommand) classifier(e *engine.Engine, types []*device.Type, s config.Settings) (*graph.Classifier, error) {
	c := e.NewClassifier("neuromore")
	sink := osc.NewSink(s.OSC.SendHost, s.OSC.SendPort)
	audio := cmd.audio

	add := func(name string, b graph.Behavior, src *graph.Node, srcPort int) (*graph.Node, error) {
		n := graph.NewNode(name, b)
		if err := c.AddNode(n); err != nil {
			return nil, err
		}
		if src == nil {
			return n, nil
		}
		if _, err := c.Connect(src, srcPort, n, 0); err != nil {
			return nil, err
		}
		return n, nil
	}

	for _, t := range types {
		in, err := add(t.TypeName, graph.NewDeviceInput(t, graph.DefaultDeviceInputConfig()), nil, 0)
		if err != nil {
			return nil, err
		}
		for i := 0; i < in.NumOutputPorts(); i++ {
			name := t.TypeName + " " + in.OutputPort(i).Name()
			src, srcPort := in, i
			if cmd.lowpass > 0 {
				fc := graph.DefaultFilterConfig()
				fc.Frequency = cmd.lowpass
				if src, err = add(name+" filter", graph.NewBiquadFilter(fc), src, srcPort); err != nil {
					return nil, err
				}
				srcPort = 0
			}

			address := "/" + addressReplacer.Replace(strings.ToLower(t.TypeName+"/"+in.OutputPort(i).Name()))
			if _, err := add(name+" osc", graph.NewOscOutput(sink, graph.OscOutputConfig{Address: address}), src, srcPort); err != nil {
				return nil, err
			}

			if cmd.record != "" {
				fc := graph.DefaultFileWriterConfig()
				fc.Path = filepath.Join(cmd.record, fmt.Sprintf("%s_%s_%s.wav", t.TypeName, in.OutputPort(i).Name(), graph.StartTimePlaceholder))
				if _, err := add(name+" recorder", graph.NewFileWriter(fc), src, srcPort); err != nil {
					return nil, err
				}
			}

			if audio {
				audio = false
				if _, err := add(name+" audio", graph.NewAudioOutput(portaudio.NewSink(portaudio.DefaultBufferSize), graph.DefaultAudioOutputConfig()), src, srcPort); err != nil {
					return nil, err
				}
			}
		}
	}
	return c, nil
}
