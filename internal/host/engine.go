package host

// Vector is an engine 3D vector.
type Vector [3]float32

// StringOffset addresses a string in the engine's string pool.
type StringOffset int32

// InfoBuffer is a client's key/value buffer in engine form (`\key\value`).
type InfoBuffer string

type PrintType int32

const (
	PrintConsole PrintType = iota
	PrintCenter
	PrintChat
)

// Engine is the subset of engine functions exposed to scripts.
type Engine interface {
	Print(msg string)
	// Time is the current server time in seconds.
	Time() float64
	MaxClients() int

	CmdArgv(i int) string
	CmdArgc() int
	CmdArgs() string
	RegisterSrvCommand(name string, fn func())
	RemoveCmd(name string)

	InfoKeyValue(buf InfoBuffer, key string) string
	ClientPrint(e Edict, kind PrintType, msg string)

	AllocString(s string) StringOffset
	String(off StringOffset) string
}

// Property selects an entvars field within one of the typed groups below.
type Property int32

// Edict is an engine entity slot. Slots are reused; SerialNumber changes
// every time a slot is freed.
type Edict interface {
	Index() int
	SerialNumber() uint32

	Float(p Property) float32
	SetFloat(p Property, v float32)
	Int(p Property) int32
	SetInt(p Property, v int32)
	Vec(p Property) Vector
	SetVec(p Property, v Vector)
	Str(p Property) StringOffset
	SetStr(p Property, v StringOffset)
	Short(p Property) int16
	SetShort(p Property, v int16)
	UShort(p Property) uint16
	SetUShort(p Property, v uint16)
	Byte(p Property) uint8
	SetByte(p Property, v uint8)
	// EdictProp returns nil when the field is empty.
	EdictProp(p Property) Edict
	SetEdictProp(p Property, v Edict)

	FixAngle() int32
	SetFixAngle(v int32)
	ModelIndex() int32
	SetModelIndex(v int32)
	SolidType() int32
	SetSolidType(v int32)
	Effects() int32
	SetEffects(v int32)
	Controller() [4]uint8
	SetController(v [4]uint8)
	Blending() [2]uint8
	SetBlending(v [2]uint8)
	RenderMode() int32
	SetRenderMode(v int32)
	DeadFlag() int32
	SetDeadFlag(v int32)
	SpawnFlag() int32
	SetSpawnFlag(v int32)
}

// TraceResult is the outcome of an engine trace line.
type TraceResult interface {
	Fraction() float32
	EndPos() Vector
	Hit() Edict
}

// Entity is a game-side object bound to an edict.
type Entity interface {
	Edict() Edict
	IsValid() bool
}

type Player interface {
	Entity
	Spawn()
	// GiveNamedItem returns false when the game could not create the item.
	GiveNamedItem(name string) (Entity, bool)
}

// Game is the game library.
type Game interface {
	Hooks() GameHooks
	PlayerHooks() PlayerHooks
	// BasePlayer wraps the player bound to e. It returns a fresh wrapper
	// on each call.
	BasePlayer(e Edict) (Player, bool)
}
