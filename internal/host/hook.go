// Package host declares the surface luna needs from the engine and game
// library it runs inside. A real deployment adapts the engine's API to these
// interfaces; internal/host/sim provides an in-memory implementation.
package host

// Priority orders callbacks within a chain. Higher runs first.
type Priority uint8

const (
	PriorityLowest  Priority = 0
	PriorityLow     Priority = 64
	PriorityDefault Priority = 128
	PriorityHigh    Priority = 192
	PriorityHighest Priority = 255
)

// Void is the result type of hooks that return nothing.
type Void struct{}

// HookInfo identifies one registration inside a chain. Chains hand it out
// from Register and accept it back in Unregister.
type HookInfo interface {
	Priority() Priority
}

// Hook is passed to every callback. CallNext continues the chain with the
// given arguments; CallOriginal skips the remaining callbacks and runs the
// game's default implementation.
type Hook[A, R any] interface {
	CallNext(args A) R
	CallOriginal(args A) R
}

type Callback[A, R any] func(h Hook[A, R], args A) R

// Chain is one hookable event.
type Chain[A, R any] interface {
	Register(cb Callback[A, R], prio Priority) HookInfo
	// Unregister reports whether info was registered on this chain.
	Unregister(info HookInfo) bool
}

// GameHooks are the events exposed by the game library.
type GameHooks interface {
	ClientConnect() Chain[ClientConnectArgs, bool]
	ClientCmd() Chain[ClientCmdArgs, Void]
	ClientInfoChanged() Chain[ClientInfoChangedArgs, Void]
	// CStrike returns nil when the ruleset module is not active.
	CStrike() CStrikeHooks
}

type CStrikeHooks interface {
	RoundEnd() Chain[RoundEndArgs, bool]
	FreezeEnd() Chain[FreezeEndArgs, Void]
}

// PlayerHooks are the virtual functions of the base player class.
// GiveShield and DropShield return nil when the game does not have them.
type PlayerHooks interface {
	Spawn() Chain[PlayerSpawnArgs, Void]
	TakeDamage() Chain[TakeDamageArgs, bool]
	TraceAttack() Chain[TraceAttackArgs, Void]
	Killed() Chain[KilledArgs, Void]
	GiveShield() Chain[GiveShieldArgs, Void]
	DropShield() Chain[DropShieldArgs, Void]
}

type ClientConnectArgs struct {
	Edict Edict
	Name  string
	IP    string
	// Reason is shown to the client when the connection is rejected.
	// Callbacks may overwrite it.
	Reason *string
}

type ClientCmdArgs struct {
	Edict Edict
}

type ClientInfoChangedArgs struct {
	Edict Edict
	Info  InfoBuffer
}

type RoundEndArgs struct {
	Status int32
	Event  int32
	Delay  float32
}

type FreezeEndArgs struct{}

type PlayerSpawnArgs struct {
	Player Player
}

type TakeDamageArgs struct {
	Player    Player
	Inflictor Entity
	Attacker  Entity
	// Damage is read by the game after the chain returns.
	Damage  *float32
	DmgType int32
}

type TraceAttackArgs struct {
	Player   Player
	Attacker Entity
	Damage   float32
	Dir      *Vector
	Trace    TraceResult
	DmgType  int32
}

type KilledArgs struct {
	Player   Player
	Attacker Entity
	Gib      int32
}

type GiveShieldArgs struct {
	Player Player
	Deploy bool
}

type DropShieldArgs struct {
	Player Player
	Deploy bool
}
