package peripherals

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"

	"romiserial/protocol"
)

// Display serves the character LCD requests:
//
//	D[col,row,"text"]  print text at col,row
//	C                  clear
type Display struct {
	lcd           hd44780i2c.Device
	width, height uint8
}

// NewDisplay initializes an HD44780 behind a PCF8574 expander at addr.
// Initialization takes about a second. It fails if nothing acknowledges at
// addr.
func NewDisplay(bus drivers.I2C, addr uint16, width, height uint8) (*Display, error) {
	// The driver ignores bus errors, so check the expander acknowledges.
	if err := bus.Tx(addr, []byte{0}, nil); err != nil {
		return nil, fmt.Errorf("display at 0x%02x: %w", addr, err)
	}
	lcd := hd44780i2c.New(bus, uint8(addr))
	if err := lcd.Configure(hd44780i2c.Config{Width: width, Height: height}); err != nil {
		return nil, fmt.Errorf("display at 0x%02x: %w", addr, err)
	}
	lcd.BacklightOn(true)
	lcd.ClearDisplay()
	return &Display{lcd: lcd, width: width, height: height}, nil
}

func (d *Display) Name() string { return "display" }

func (d *Display) Handlers() []protocol.Handler {
	return []protocol.Handler{
		{Opcode: 'D', Name: "print", Args: 2, RequiresString: true, Func: d.print},
		{Opcode: 'C', Name: "clear", Func: d.clear},
	}
}

func (d *Display) print(w *protocol.Responder, req *protocol.Request) {
	col, row := req.Args[0], req.Args[1]
	if col < 0 || row < 0 || col >= int16(d.width) || row >= int16(d.height) {
		w.Error(protocol.ValueOutOfRange, "")
		return
	}
	text := req.Str
	if room := int(d.width) - int(col); len(text) > room {
		text = text[:room]
	}
	d.lcd.SetCursor(uint8(col), uint8(row))
	d.lcd.Print([]byte(text))
	w.OK()
}

func (d *Display) clear(w *protocol.Responder, req *protocol.Request) {
	d.lcd.ClearDisplay()
	w.OK()
}

// Close turns the backlight off.
func (d *Display) Close() error {
	d.lcd.BacklightOn(false)
	return nil
}
