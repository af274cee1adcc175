package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/neuromore/engine"
	"github.com/neuromore/engine/config"
	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/wav"
)

type devicesCommand struct {
	wav stringList
}

func (cmd *devicesCommand) Name() string {
	return "devices"
}

func (cmd *devicesCommand) Help() string {
	return "Show the device types the engine accepts"
}

func (cmd *devicesCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.wav, "wav", "semicolon separated wav files played as devices")
}

func (cmd *devicesCommand) Run(out io.Writer) error {
	s := config.Default()
	s.Wav.Files = cmd.wav
	e := engine.New(engine.WithSettings(s))
	defer e.Close()
	if _, err := registerDevices(e, s); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHARDWARE\tSENSORS")
	for _, t := range e.Manager().RegisteredDeviceTypes() {
		fmt.Fprintf(w, "%#04x\t%s\t%s\t%s\n", t.ID, t.TypeName, t.HardwareName, sensors(t))
	}
	return w.Flush()
}

// sensors describes the input sensors of a type.
func sensors(t *device.Type) string {
	s := ""
	for _, spec := range t.Sensors {
		if spec.Direction != device.Input {
			continue
		}
		if s != "" {
			s += ", "
		}
		if spec.SampleRate > 0 {
			s += fmt.Sprintf("%s@%gHz", spec.Name, spec.SampleRate)
		} else {
			s += spec.Name
		}
	}
	return s
}

// registerDevices registers the generic OSC device types and the wav
// driver. It returns the types classifiers can read.
func registerDevices(e *engine.Engine, s config.Settings) ([]*device.Type, error) {
	types := device.GenericTypes()
	for _, t := range types {
		if err := e.Manager().RegisterDeviceType(t); err != nil {
			return nil, err
		}
	}
	if len(s.Wav.Files) == 0 {
		return types, nil
	}
	drv, err := wav.NewDriver(s.Wav.Files...)
	if err != nil {
		return nil, err
	}
	drv.Loop = s.Wav.Loop
	if err := e.Manager().RegisterDeviceType(drv.Type()); err != nil {
		drv.Close()
		return nil, err
	}
	if err := e.Manager().AddDeviceDriver(drv); err != nil {
		drv.Close()
		return nil, err
	}
	return append(types, drv.Type()), nil
}
