package sqlext

import (
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/ext"
)

// Name is the extension name scripts look the driver up by.
const Name = "SQL Extension"

type info struct{ d *Driver }

func (info) InterfaceVersion() ext.Version { return ext.HostVersion }
func (info) Type() ext.Type                { return ext.TypeSQL }
func (info) Name() string                  { return Name }
func (info) Version() string               { return "1.0.0" }
func (info) Date() string                  { return "2024-05-01" }
func (info) Author() string                { return "luna" }
func (info) URL() string                   { return "https://github.com/lunahost/luna" }
func (info) LogTag() string                { return "SQL" }
func (i info) Impl() any                   { return i.d }

// Module returns the entry points of a fresh SQL extension, ready to be
// registered with an ext.StaticOpener.
func Module() ext.Symbols {
	d := NewDriver(zap.NewNop())
	return ext.Symbols{
		Query: func() ext.Info { return info{d} },
		Init: func(log *zap.Logger) bool {
			d.log = log
			return true
		},
		Shutdown: d.CloseAll,
	}
}
