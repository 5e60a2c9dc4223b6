// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/fdr/bmp280"
	"github.com/GermanBionicSystems/fdr/flightsim"
	"github.com/GermanBionicSystems/fdr/groundlink"
	"github.com/GermanBionicSystems/fdr/lsm6ds3"
	"github.com/GermanBionicSystems/fdr/recorder"
	"github.com/GermanBionicSystems/fdr/rgbled"
	"github.com/GermanBionicSystems/fdr/sx127x"
	"github.com/GermanBionicSystems/fdr/twi"
)

// Config is the whole configuration file.
type Config struct {
	Log        Log        `mapstructure:"log"`
	Bus        Bus        `mapstructure:"bus"`
	Barometer  Barometer  `mapstructure:"barometer"`
	IMU        IMU        `mapstructure:"imu"`
	Recorder   Recorder   `mapstructure:"recorder"`
	Simulation Simulation `mapstructure:"simulation"`
	LED        LED        `mapstructure:"led"`
	Radio      Radio      `mapstructure:"radio"`
	Serial     Serial     `mapstructure:"serial"`
	MQTT       MQTT       `mapstructure:"mqtt"`
	Plot       Plot       `mapstructure:"plot"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Bus is the I²C bus of the sensors.
type Bus struct {
	// Name is a host bus for i2creg.Open. Empty selects the simulation.
	Name          string `mapstructure:"name"`
	ClockHz       int64  `mapstructure:"clock_hz"`
	SpeedHz       int64  `mapstructure:"speed_hz"`
	TimeoutCycles int    `mapstructure:"timeout_cycles"`
	CheckAck      bool   `mapstructure:"check_ack"`
}

type Barometer struct {
	Address                 uint16        `mapstructure:"address"`
	OversamplingTemperature int           `mapstructure:"oversampling_temperature"`
	OversamplingPressure    int           `mapstructure:"oversampling_pressure"`
	Mode                    string        `mapstructure:"mode"`
	Filter                  int           `mapstructure:"filter"`
	Standby                 time.Duration `mapstructure:"standby"`
}

type IMU struct {
	Address      uint16 `mapstructure:"address"`
	AccelRangeG  int    `mapstructure:"accel_range_g"`
	GyroRangeDPS int    `mapstructure:"gyro_range_dps"`
	RateHz       int    `mapstructure:"rate_hz"`
}

type Recorder struct {
	BaselineReadings int           `mapstructure:"baseline_readings"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	LEDInterval      time.Duration `mapstructure:"led_interval"`
	FaultBlink       time.Duration `mapstructure:"fault_blink"`
	Duration         time.Duration `mapstructure:"duration"`
}

// Simulation scripts the simulated flight.
type Simulation struct {
	// Realtime paces the simulation with the wall clock. When false the
	// flight is replayed as fast as possible.
	Realtime bool          `mapstructure:"realtime"`
	Pad      time.Duration `mapstructure:"pad"`
	Burn     time.Duration `mapstructure:"burn"`
	Boost    float64       `mapstructure:"boost"`
	Descent  float64       `mapstructure:"descent"`
	Spin     float64       `mapstructure:"spin"`
}

// LED is the status LED. Without pins it is emulated on the terminal.
type LED struct {
	Red         string `mapstructure:"red"`
	Green       string `mapstructure:"green"`
	Blue        string `mapstructure:"blue"`
	CommonAnode bool   `mapstructure:"common_anode"`
	FrequencyHz int64  `mapstructure:"frequency_hz"`
}

// Radio is the LoRa downlink. An empty Port disables it.
type Radio struct {
	Port            string `mapstructure:"port"`
	FrequencyHz     int64  `mapstructure:"frequency_hz"`
	BandwidthHz     int    `mapstructure:"bandwidth_hz"`
	SpreadingFactor int    `mapstructure:"spreading_factor"`
	CodingRate      int    `mapstructure:"coding_rate"`
	TxPower         int    `mapstructure:"tx_power"`
}

// Serial is the UART the monitor reads telemetry from.
type Serial struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// MQTT is the ground link broker. An empty URL disables it.
type MQTT struct {
	URL      string        `mapstructure:"url"`
	QoS      int           `mapstructure:"qos"`
	Retained bool          `mapstructure:"retained"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Plot struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("fdr")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")

	v.SetDefault("bus.name", "")
	v.SetDefault("bus.clock_hz", int64(twi.DefaultOpts.Clock/physic.Hertz))
	v.SetDefault("bus.speed_hz", int64(twi.DefaultOpts.Speed/physic.Hertz))
	v.SetDefault("bus.timeout_cycles", twi.DefaultOpts.TimeoutCycles)
	v.SetDefault("bus.check_ack", false)

	v.SetDefault("barometer.address", bmp280.DefaultAddress)
	v.SetDefault("barometer.oversampling_temperature", 16)
	v.SetDefault("barometer.oversampling_pressure", 16)
	v.SetDefault("barometer.mode", "normal")
	v.SetDefault("barometer.filter", 16)
	v.SetDefault("barometer.standby", "500us")

	v.SetDefault("imu.address", lsm6ds3.DefaultAddress)
	v.SetDefault("imu.accel_range_g", 16)
	v.SetDefault("imu.gyro_range_dps", 2000)
	v.SetDefault("imu.rate_hz", 1660)

	v.SetDefault("recorder.baseline_readings", recorder.DefaultConfig.BaselineReadings)
	v.SetDefault("recorder.sample_interval", recorder.DefaultConfig.SampleInterval)
	v.SetDefault("recorder.led_interval", recorder.DefaultConfig.LEDInterval)
	v.SetDefault("recorder.fault_blink", recorder.DefaultConfig.FaultBlink)
	v.SetDefault("recorder.duration", time.Duration(0))

	v.SetDefault("simulation.realtime", true)
	v.SetDefault("simulation.pad", flightsim.DefaultRocket.Pad)
	v.SetDefault("simulation.burn", flightsim.DefaultRocket.Burn)
	v.SetDefault("simulation.boost", flightsim.DefaultRocket.Boost)
	v.SetDefault("simulation.descent", flightsim.DefaultRocket.Descent)
	v.SetDefault("simulation.spin", flightsim.DefaultRocket.Spin)

	v.SetDefault("led.red", "")
	v.SetDefault("led.green", "")
	v.SetDefault("led.blue", "")
	v.SetDefault("led.common_anode", rgbled.DefaultOpts.CommonAnode)
	v.SetDefault("led.frequency_hz", int64(rgbled.DefaultOpts.Frequency/physic.Hertz))

	v.SetDefault("radio.port", "")
	v.SetDefault("radio.frequency_hz", int64(sx127x.DefaultConfig.Frequency/physic.Hertz))
	v.SetDefault("radio.bandwidth_hz", 125000)
	v.SetDefault("radio.spreading_factor", int(sx127x.DefaultConfig.SpreadingFactor))
	v.SetDefault("radio.coding_rate", 5)
	v.SetDefault("radio.tx_power", int(sx127x.DefaultConfig.TxPower))

	v.SetDefault("serial.port", "/dev/ttyUSB0")
	v.SetDefault("serial.baud", 115200)

	v.SetDefault("mqtt.url", "")
	v.SetDefault("mqtt.qos", int(groundlink.DefaultOpts.QoS))
	v.SetDefault("mqtt.retained", groundlink.DefaultOpts.Retained)
	v.SetDefault("mqtt.timeout", groundlink.DefaultOpts.Timeout)

	v.SetDefault("plot.width", 1200)
	v.SetDefault("plot.height", 800)
	return v
}

// Default returns the configuration with every key at its default, with
// environment overrides applied.
func Default() (*Config, error) {
	return decode(newViper())
}

// Load reads a TOML file. An empty path returns Default().
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: reading %s", path)
		}
	}
	return decode(v)
}

// Read reads TOML from r.
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrap(err, "config: parsing")
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "config: decoding")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every section, including that the TWI bit rate can be
// produced by the controller clock.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return errors.Wrap(err, "config: [log]")
	}
	if _, _, err := twi.Divisor(c.TWIOpts().Clock, c.TWIOpts().Speed); err != nil {
		return errors.Wrap(err, "config: [bus]")
	}
	if c.Bus.TimeoutCycles < 1 {
		return errors.Errorf("config: [bus] timeout_cycles must be positive, got %d", c.Bus.TimeoutCycles)
	}
	if c.Barometer.Address > 0x7F || c.IMU.Address > 0x7F {
		return errors.Errorf("config: I²C addresses are 7 bits, got %#x and %#x", c.Barometer.Address, c.IMU.Address)
	}
	if _, err := c.RecorderConfig(); err != nil {
		return err
	}
	if c.LED.FrequencyHz <= 0 {
		return errors.Errorf("config: [led] frequency_hz must be positive, got %d", c.LED.FrequencyHz)
	}
	if _, err := c.RadioConfig(); err != nil {
		return err
	}
	if c.Serial.Baud <= 0 {
		return errors.Errorf("config: [serial] invalid baud rate %d", c.Serial.Baud)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.Errorf("config: [mqtt] invalid qos %d", c.MQTT.QoS)
	}
	if c.Plot.Width < 100 || c.Plot.Height < 100 {
		return errors.Errorf("config: [plot] %dx%d is too small", c.Plot.Width, c.Plot.Height)
	}
	return nil
}

// LogLevel returns the logrus level.
func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}

// TWIOpts returns the TWI controller options.
func (c *Config) TWIOpts() twi.Opts {
	o := twi.DefaultOpts
	o.Clock = physic.Frequency(c.Bus.ClockHz) * physic.Hertz
	o.Speed = physic.Frequency(c.Bus.SpeedHz) * physic.Hertz
	o.TimeoutCycles = c.Bus.TimeoutCycles
	o.CheckAck = c.Bus.CheckAck
	return o
}

var oversamplings = map[int]bmp280.Oversampling{
	0: bmp280.Skip, 1: bmp280.O1x, 2: bmp280.O2x, 4: bmp280.O4x, 8: bmp280.O8x, 16: bmp280.O16x,
}

var modes = map[string]bmp280.Mode{
	"sleep": bmp280.Sleep, "forced": bmp280.Forced, "normal": bmp280.Normal,
}

var filters = map[int]bmp280.Filter{
	0: bmp280.NoFilter, 1: bmp280.NoFilter, 2: bmp280.F2, 4: bmp280.F4, 8: bmp280.F8, 16: bmp280.F16,
}

var standbys = map[time.Duration]bmp280.Standby{
	500 * time.Microsecond:   bmp280.S500us,
	62500 * time.Microsecond: bmp280.S62ms,
	125 * time.Millisecond:   bmp280.S125ms,
	250 * time.Millisecond:   bmp280.S250ms,
	500 * time.Millisecond:   bmp280.S500ms,
	time.Second:              bmp280.S1s,
	2 * time.Second:          bmp280.S2s,
	4 * time.Second:          bmp280.S4s,
}

// BMP280Opts returns the barometer options.
func (c *Config) BMP280Opts() (bmp280.Opts, error) {
	b := &c.Barometer
	var o bmp280.Opts
	var ok bool
	if o.Temperature, ok = oversamplings[b.OversamplingTemperature]; !ok {
		return o, errors.Errorf("config: [barometer] invalid temperature oversampling %d", b.OversamplingTemperature)
	}
	if o.Pressure, ok = oversamplings[b.OversamplingPressure]; !ok {
		return o, errors.Errorf("config: [barometer] invalid pressure oversampling %d", b.OversamplingPressure)
	}
	if o.Mode, ok = modes[strings.ToLower(b.Mode)]; !ok {
		return o, errors.Errorf("config: [barometer] invalid mode %q", b.Mode)
	}
	if o.Filter, ok = filters[b.Filter]; !ok {
		return o, errors.Errorf("config: [barometer] invalid filter %d", b.Filter)
	}
	if o.Standby, ok = standbys[b.Standby]; !ok {
		return o, errors.Errorf("config: [barometer] invalid standby %s", b.Standby)
	}
	return o, nil
}

var accelRanges = map[int]lsm6ds3.AccelRange{
	2: lsm6ds3.A2G, 4: lsm6ds3.A4G, 8: lsm6ds3.A8G, 16: lsm6ds3.A16G,
}

var gyroRanges = map[int]lsm6ds3.GyroRange{
	125: lsm6ds3.G125, 250: lsm6ds3.G250, 500: lsm6ds3.G500, 1000: lsm6ds3.G1000, 2000: lsm6ds3.G2000,
}

var rates = map[int]lsm6ds3.Rate{
	0: lsm6ds3.RateOff, 12: lsm6ds3.Rate12Hz5, 26: lsm6ds3.Rate26Hz, 52: lsm6ds3.Rate52Hz,
	104: lsm6ds3.Rate104Hz, 208: lsm6ds3.Rate208Hz, 416: lsm6ds3.Rate416Hz, 833: lsm6ds3.Rate833Hz,
	1660: lsm6ds3.Rate1660Hz, 3330: lsm6ds3.Rate3330Hz, 6660: lsm6ds3.Rate6660Hz,
}

// LSM6DS3Opts returns the inertial unit options. Both sensors run at the
// same rate.
func (c *Config) LSM6DS3Opts() (lsm6ds3.Opts, error) {
	m := &c.IMU
	var o lsm6ds3.Opts
	var ok bool
	if o.AccelRange, ok = accelRanges[m.AccelRangeG]; !ok {
		return o, errors.Errorf("config: [imu] invalid accelerometer range %dg", m.AccelRangeG)
	}
	if o.GyroRange, ok = gyroRanges[m.GyroRangeDPS]; !ok {
		return o, errors.Errorf("config: [imu] invalid gyroscope range %ddps", m.GyroRangeDPS)
	}
	if o.AccelRate, ok = rates[m.RateHz]; !ok {
		return o, errors.Errorf("config: [imu] invalid rate %dHz", m.RateHz)
	}
	o.GyroRate = o.AccelRate
	return o, nil
}

// RecorderConfig returns the recorder flight configuration.
func (c *Config) RecorderConfig() (recorder.Config, error) {
	r := recorder.Config{
		BaroAddress:      c.Barometer.Address,
		IMUAddress:       c.IMU.Address,
		BaselineReadings: c.Recorder.BaselineReadings,
		SampleInterval:   c.Recorder.SampleInterval,
		LEDInterval:      c.Recorder.LEDInterval,
		FaultBlink:       c.Recorder.FaultBlink,
		Duration:         c.Recorder.Duration,
	}
	var err error
	if r.Baro, err = c.BMP280Opts(); err != nil {
		return r, err
	}
	if r.IMU, err = c.LSM6DS3Opts(); err != nil {
		return r, err
	}
	if r.BaselineReadings < 1 {
		return r, errors.Errorf("config: [recorder] baseline_readings must be positive, got %d", r.BaselineReadings)
	}
	if r.SampleInterval <= 0 || r.LEDInterval <= 0 || r.FaultBlink <= 0 || r.Duration < 0 {
		return r, errors.New("config: [recorder] intervals must be positive")
	}
	return r, nil
}

// Rocket returns the simulated flight profile.
func (c *Config) Rocket() flightsim.Rocket {
	s := &c.Simulation
	return flightsim.Rocket{Pad: s.Pad, Burn: s.Burn, Boost: s.Boost, Descent: s.Descent, Spin: s.Spin}
}

// LEDOpts returns the PWM LED options.
func (c *Config) LEDOpts() rgbled.Opts {
	return rgbled.Opts{
		CommonAnode: c.LED.CommonAnode,
		Frequency:   physic.Frequency(c.LED.FrequencyHz) * physic.Hertz,
	}
}

var bandwidths = map[int]sx127x.Bandwidth{
	7800: sx127x.BW7k8, 10400: sx127x.BW10k4, 15600: sx127x.BW15k6, 20800: sx127x.BW20k8,
	31250: sx127x.BW31k25, 41700: sx127x.BW41k7, 62500: sx127x.BW62k5, 125000: sx127x.BW125k,
	250000: sx127x.BW250k, 500000: sx127x.BW500k,
}

// RadioConfig returns the LoRa configuration.
func (c *Config) RadioConfig() (sx127x.Config, error) {
	r := &c.Radio
	o := sx127x.DefaultConfig
	o.Frequency = physic.Frequency(r.FrequencyHz) * physic.Hertz
	var ok bool
	if o.Bandwidth, ok = bandwidths[r.BandwidthHz]; !ok {
		return o, errors.Errorf("config: [radio] invalid bandwidth %dHz", r.BandwidthHz)
	}
	if r.SpreadingFactor < 6 || r.SpreadingFactor > 12 {
		return o, errors.Errorf("config: [radio] invalid spreading factor %d", r.SpreadingFactor)
	}
	o.SpreadingFactor = uint8(r.SpreadingFactor)
	if r.CodingRate < 5 || r.CodingRate > 8 {
		return o, errors.Errorf("config: [radio] invalid coding rate 4/%d", r.CodingRate)
	}
	o.CodingRate = sx127x.CR4_5 + sx127x.CodingRate(r.CodingRate-5)
	if r.TxPower < 0 || r.TxPower > 15 {
		return o, errors.Errorf("config: [radio] invalid tx power %d", r.TxPower)
	}
	o.TxPower = uint8(r.TxPower)
	if o.Frequency < 137*physic.MegaHertz || o.Frequency > 1020*physic.MegaHertz {
		return o, errors.Errorf("config: [radio] frequency %s out of range", o.Frequency)
	}
	return o, nil
}

// GroundlinkOpts returns the MQTT publication options.
func (c *Config) GroundlinkOpts() groundlink.Opts {
	return groundlink.Opts{QoS: byte(c.MQTT.QoS), Retained: c.MQTT.Retained, Timeout: c.MQTT.Timeout}
}
