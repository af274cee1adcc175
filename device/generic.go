package device

import "math"

// Type ids of the built in device types.
const (
	TypeTest          = 0x0023
	TypeMuse          = 0x0101
	TypeHeartRate     = 0xA001
	TypeAccelerometer = 0xB001
	TypeGyroscope     = 0xB002
	TypeAudioIn       = 0xC002
)

// museSampleRate is the EEG rate of the muse headset.
const museSampleRate = 220

// GenericTypes returns the device types that send plain OSC messages and
// need no driver. Every call returns new values.
func GenericTypes() []*Type {
	return []*Type{
		HeartRateType(),
		AccelerometerType(),
		GyroscopeType(),
		MuseType(),
	}
}

// HeartRateType is a heart rate monitor sending BPM and RR intervals.
func HeartRateType() *Type {
	return &Type{
		ID:             TypeHeartRate,
		TypeName:       "hr",
		HardwareName:   "HeartRate",
		InitialState:   Idle,
		OscPathPattern: "/hr/*/*",
		Handler:        SensorHandler,
		Sensors: []SensorSpec{
			{Name: "BPM", Unit: "bpm", Max: 250},
			{Name: "RR-Interval", Unit: "ms", Max: 2000},
		},
	}
}

// AccelerometerType is a 3 axis accelerometer.
func AccelerometerType() *Type {
	return axisType(TypeAccelerometer, "acc", "Accelerometer", 50, "m/s^2")
}

// GyroscopeType is a 3 axis gyroscope.
func GyroscopeType() *Type {
	return axisType(TypeGyroscope, "gyro", "Gyroscope", 10, "rad/s^2")
}

func axisType(id int, name, hardware string, rate float64, unit string) *Type {
	sensors := make([]SensorSpec, 0, 3)
	for _, axis := range []string{"X", "Y", "Z"} {
		sensors = append(sensors, SensorSpec{
			Name:       axis,
			SampleRate: rate,
			Irregular:  true,
			Min:        -1,
			Max:        1,
			Unit:       unit,
		})
	}
	return &Type{
		ID:             id,
		TypeName:       name,
		HardwareName:   hardware,
		InitialState:   Idle,
		OscPathPattern: "/" + name + "/*/*",
		Handler:        SequenceHandler,
		Sensors:        sensors,
	}
}

// Muse sensor positions.
const (
	museEEG    = 0
	numMuseEEG = 4
)

const (
	museConcentration = numMuseEEG + iota
	museMellow
	museAccForward
	museAccUp
	museAccLeft
	museEyeBlink
	museJawClench
)

// MuseType is the InteraXon muse headset. It streams through the muse
// OSC bridge.
func MuseType() *Type {
	sensors := make([]SensorSpec, 0, 11)
	for _, electrode := range []string{"TP9", "Fp1", "Fp2", "TP10"} {
		sensors = append(sensors, SensorSpec{
			Name:       electrode,
			SampleRate: museSampleRate,
			Min:        -1000,
			Max:        1000,
			Unit:       "uV",
			Neuro:      true,
		})
	}
	sensors = append(sensors,
		SensorSpec{Name: "Concentration", SampleRate: 10, Irregular: true, Max: 1},
		SensorSpec{Name: "Mellow", SampleRate: 10, Irregular: true, Max: 1},
		SensorSpec{Name: "Acc (Forward)", SampleRate: 50, Min: -2000, Max: 1996.1, Unit: "mm/s^2"},
		SensorSpec{Name: "Acc (Up)", SampleRate: 50, Min: -2000, Max: 1996.1, Unit: "mm/s^2"},
		SensorSpec{Name: "Acc (Left)", SampleRate: 50, Min: -2000, Max: 1996.1, Unit: "mm/s^2"},
		SensorSpec{Name: "Eye Blink", SampleRate: 10, Max: 1},
		SensorSpec{Name: "Jaw Clench", SampleRate: 10, Max: 1},
	)
	return &Type{
		ID:             TypeMuse,
		TypeName:       "muse",
		HardwareName:   "Muse",
		Kind:           KindHeadset,
		Wireless:       true,
		PowerSupply:    PowerBattery,
		InitialState:   Idle,
		OscPathPattern: "/muse/*/*",
		Handler:        museHandler,
		Sensors:        sensors,
	}
}

func museHandler(d *Device, m Message) {
	sensor := func(i int) *Sensor { return d.inputSensors[i] }
	values := m.Floats()
	switch {
	case m.MatchAddress("/*/*/eeg"):
		if len(values) != numMuseEEG {
			return
		}
		for i, v := range values {
			sensor(museEEG + i).AddQueuedSample(v)
		}
	case m.MatchAddress("/*/*/eeg/dropped_samples"):
		if len(values) == 0 {
			return
		}
		for i := 0; i < numMuseEEG; i++ {
			sensor(museEEG + i).HandleLostSamples(int(values[0]))
		}
	case m.MatchAddress("/*/*/dsp/horseshoe"):
		for i := 0; i < numMuseEEG && i < len(values); i++ {
			sensor(museEEG + i).SetContactQuality(horseshoeQuality(values[i]))
		}
	case m.MatchAddress("/*/*/dsp/experimental/concentration"):
		queueFirst(sensor(museConcentration), values)
	case m.MatchAddress("/*/*/dsp/experimental/mellow"):
		queueFirst(sensor(museMellow), values)
	case m.MatchAddress("/*/*/dsp/blink"):
		queueFirst(sensor(museEyeBlink), values)
	case m.MatchAddress("/*/*/dsp/jaw_clench"):
		queueFirst(sensor(museJawClench), values)
	case m.MatchAddress("/*/*/acc"):
		if len(values) != 3 {
			return
		}
		for i, v := range values {
			sensor(museAccForward + i).AddQueuedSample(v)
		}
	case m.MatchAddress("/*/*/batt"):
		// charge is sent in hundredths of a percent
		if len(values) > 0 {
			d.SetBatteryChargeLevel(values[0] / 10000)
		}
	}
}

// horseshoeQuality maps the muse fit values 1 good, 2 ok, >2 bad.
func horseshoeQuality(v float64) ContactQuality {
	switch {
	case math.IsNaN(v):
		return ContactNoSignal
	case v <= 1:
		return ContactGood
	case v <= 2:
		return ContactFair
	case v <= 3:
		return ContactPoor
	}
	return ContactVeryBad
}

func queueFirst(s *Sensor, values []float64) {
	if len(values) > 0 {
		s.AddQueuedSample(values[0])
	}
}
