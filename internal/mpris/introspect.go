package mpris

import (
	"github.com/godbus/dbus/v5/introspect"
)

func arg(name, typ, dir string) introspect.Arg {
	return introspect.Arg{Name: name, Type: typ, Direction: dir}
}

func readProp(name, typ string) introspect.Property {
	return introspect.Property{Name: name, Type: typ, Access: "read"}
}

var rootIntrospection = introspect.Interface{
	Name: rootIface,
	Methods: []introspect.Method{
		{Name: "Raise"},
		{Name: "Quit"},
	},
	Properties: []introspect.Property{
		readProp("CanQuit", "b"),
		readProp("CanRaise", "b"),
		readProp("HasTrackList", "b"),
		readProp("Identity", "s"),
		readProp("SupportedUriSchemes", "as"),
		readProp("SupportedMimeTypes", "as"),
	},
}

var playerIntrospection = introspect.Interface{
	Name: playerIface,
	Methods: []introspect.Method{
		{Name: "Next"},
		{Name: "Previous"},
		{Name: "Pause"},
		{Name: "PlayPause"},
		{Name: "Stop"},
		{Name: "Play"},
		{Name: "Seek", Args: []introspect.Arg{arg("Offset", "x", "in")}},
		{Name: "SetPosition", Args: []introspect.Arg{arg("TrackId", "o", "in"), arg("Position", "x", "in")}},
		{Name: "OpenUri", Args: []introspect.Arg{arg("Uri", "s", "in")}},
	},
	Signals: []introspect.Signal{
		{Name: "Seeked", Args: []introspect.Arg{arg("Position", "x", "out")}},
	},
	Properties: []introspect.Property{
		readProp("PlaybackStatus", "s"),
		readProp("Rate", "d"),
		readProp("Metadata", "a{sv}"),
		{Name: "Volume", Type: "d", Access: "readwrite"},
		readProp("Position", "x"),
		readProp("MinimumRate", "d"),
		readProp("MaximumRate", "d"),
		readProp("CanGoNext", "b"),
		readProp("CanGoPrevious", "b"),
		readProp("CanPlay", "b"),
		readProp("CanPause", "b"),
		readProp("CanSeek", "b"),
		readProp("CanControl", "b"),
	},
}

var propsIntrospection = introspect.Interface{
	Name: propsIface,
	Methods: []introspect.Method{
		{Name: "Get", Args: []introspect.Arg{arg("interface", "s", "in"), arg("property", "s", "in"), arg("value", "v", "out")}},
		{Name: "GetAll", Args: []introspect.Arg{arg("interface", "s", "in"), arg("properties", "a{sv}", "out")}},
		{Name: "Set", Args: []introspect.Arg{arg("interface", "s", "in"), arg("property", "s", "in"), arg("value", "v", "in")}},
	},
	Signals: []introspect.Signal{
		{Name: "PropertiesChanged", Args: []introspect.Arg{
			arg("interface", "s", "out"),
			arg("changed_properties", "a{sv}", "out"),
			arg("invalidated_properties", "as", "out"),
		}},
	},
}

func introspectable() introspect.Introspectable {
	return introspect.NewIntrospectable(&introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			propsIntrospection,
			rootIntrospection,
			playerIntrospection,
		},
	})
}
