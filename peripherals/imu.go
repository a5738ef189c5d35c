package peripherals

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/adxl345"

	"romiserial/protocol"
)

// IMU serves I: the acceleration as [0,x,y,z] in milli-g.
type IMU struct {
	sensor adxl345.Device
}

// NewIMU configures an ADXL345 at addr in its default 2g range.
func NewIMU(bus drivers.I2C, addr uint16) *IMU {
	sensor := adxl345.New(bus)
	sensor.Address = addr
	sensor.Configure()
	return &IMU{sensor: sensor}
}

func (m *IMU) Name() string { return "imu" }

func (m *IMU) Handlers() []protocol.Handler {
	return []protocol.Handler{
		{Opcode: 'I', Name: "acceleration", Func: m.read},
	}
}

func (m *IMU) read(w *protocol.Responder, req *protocol.Request) {
	x, y, z, err := m.sensor.ReadAcceleration()
	if err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	// The driver reports micro-g
	w.Send(saturate(x/1000), saturate(y/1000), saturate(z/1000))
}

// Close puts the sensor in standby.
func (m *IMU) Close() error {
	m.sensor.Halt()
	return nil
}
