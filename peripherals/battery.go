package peripherals

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ina260"

	"romiserial/protocol"
)

// Battery serves B: [0,centivolts,milliamps,centiwatts] read from an
// INA260 on the battery rail. The chip starts in continuous conversion, so
// it is used without reconfiguration.
type Battery struct {
	monitor ina260.Device
}

func NewBattery(bus drivers.I2C, addr uint16) *Battery {
	monitor := ina260.New(bus)
	monitor.Address = addr
	return &Battery{monitor: monitor}
}

func (b *Battery) Name() string { return "battery" }

func (b *Battery) Handlers() []protocol.Handler {
	return []protocol.Handler{
		{Opcode: 'B', Name: "battery", Func: b.read},
	}
}

func (b *Battery) read(w *protocol.Responder, req *protocol.Request) {
	// µV, µA and µW
	volts := b.monitor.Voltage()
	amps := b.monitor.Current()
	watts := b.monitor.Power()
	w.Send(saturate(volts/10000), saturate(amps/1000), saturate(watts/10000))
}
