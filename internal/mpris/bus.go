package mpris

import (
	"github.com/godbus/dbus/v5"
)

// BusConn is the subset of a D-Bus connection the server uses.
// *dbus.Conn satisfies it; tests substitute a mock.
//
//go:generate mockgen -destination=mocks/bus_mock.go -package=mocks github.com/genricoloni/volt/internal/mpris BusConn
type BusConn interface {
	// Export publishes the methods of v at path under the interface name
	Export(v interface{}, path dbus.ObjectPath, iface string) error

	// RequestName asks the bus for a well-known name
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)

	// Emit sends a signal from path
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error

	// Close closes the D-Bus connection
	Close() error
}

// DialSessionBus opens a private connection to the session bus
func DialSessionBus() (BusConn, error) {
	return dbus.ConnectSessionBus()
}
