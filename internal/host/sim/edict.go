package sim

import "github.com/lunahost/luna/internal/host"

// Edict implements host.Edict with per-type property maps.
type Edict struct {
	engine *Engine
	index  int
	serial uint32
	inUse  bool

	floats  map[host.Property]float32
	ints    map[host.Property]int32
	vecs    map[host.Property]host.Vector
	strs    map[host.Property]host.StringOffset
	shorts  map[host.Property]int16
	ushorts map[host.Property]uint16
	bytes   map[host.Property]uint8
	edicts  map[host.Property]host.Edict

	fixAngle   int32
	modelIndex int32
	solid      int32
	effects    int32
	controller [4]uint8
	blending   [2]uint8
	renderMode int32
	deadFlag   int32
	spawnFlag  int32
}

func newEdict(e *Engine, idx int) *Edict {
	ed := &Edict{engine: e, index: idx, serial: 1}
	ed.reset()
	return ed
}

func (ed *Edict) reset() {
	ed.inUse = false
	ed.floats = make(map[host.Property]float32)
	ed.ints = make(map[host.Property]int32)
	ed.vecs = make(map[host.Property]host.Vector)
	ed.strs = make(map[host.Property]host.StringOffset)
	ed.shorts = make(map[host.Property]int16)
	ed.ushorts = make(map[host.Property]uint16)
	ed.bytes = make(map[host.Property]uint8)
	ed.edicts = make(map[host.Property]host.Edict)
	ed.fixAngle, ed.modelIndex, ed.solid, ed.effects = 0, 0, 0, 0
	ed.controller = [4]uint8{}
	ed.blending = [2]uint8{}
	ed.renderMode, ed.deadFlag, ed.spawnFlag = 0, 0, 0
}

func (ed *Edict) Index() int           { return ed.index }
func (ed *Edict) SerialNumber() uint32 { return ed.serial }
func (ed *Edict) InUse() bool          { return ed.inUse }

func (ed *Edict) Float(p host.Property) float32               { return ed.floats[p] }
func (ed *Edict) SetFloat(p host.Property, v float32)         { ed.floats[p] = v }
func (ed *Edict) Int(p host.Property) int32                   { return ed.ints[p] }
func (ed *Edict) SetInt(p host.Property, v int32)             { ed.ints[p] = v }
func (ed *Edict) Vec(p host.Property) host.Vector             { return ed.vecs[p] }
func (ed *Edict) SetVec(p host.Property, v host.Vector)       { ed.vecs[p] = v }
func (ed *Edict) Str(p host.Property) host.StringOffset       { return ed.strs[p] }
func (ed *Edict) SetStr(p host.Property, v host.StringOffset) { ed.strs[p] = v }
func (ed *Edict) Short(p host.Property) int16                 { return ed.shorts[p] }
func (ed *Edict) SetShort(p host.Property, v int16)           { ed.shorts[p] = v }
func (ed *Edict) UShort(p host.Property) uint16               { return ed.ushorts[p] }
func (ed *Edict) SetUShort(p host.Property, v uint16)         { ed.ushorts[p] = v }
func (ed *Edict) Byte(p host.Property) uint8                  { return ed.bytes[p] }
func (ed *Edict) SetByte(p host.Property, v uint8)            { ed.bytes[p] = v }
func (ed *Edict) EdictProp(p host.Property) host.Edict        { return ed.edicts[p] }
func (ed *Edict) SetEdictProp(p host.Property, v host.Edict) {
	if v == nil {
		delete(ed.edicts, p)
		return
	}
	ed.edicts[p] = v
}

func (ed *Edict) FixAngle() int32          { return ed.fixAngle }
func (ed *Edict) SetFixAngle(v int32)      { ed.fixAngle = v }
func (ed *Edict) ModelIndex() int32        { return ed.modelIndex }
func (ed *Edict) SetModelIndex(v int32)    { ed.modelIndex = v }
func (ed *Edict) SolidType() int32         { return ed.solid }
func (ed *Edict) SetSolidType(v int32)     { ed.solid = v }
func (ed *Edict) Effects() int32           { return ed.effects }
func (ed *Edict) SetEffects(v int32)       { ed.effects = v }
func (ed *Edict) Controller() [4]uint8     { return ed.controller }
func (ed *Edict) SetController(v [4]uint8) { ed.controller = v }
func (ed *Edict) Blending() [2]uint8       { return ed.blending }
func (ed *Edict) SetBlending(v [2]uint8)   { ed.blending = v }
func (ed *Edict) RenderMode() int32        { return ed.renderMode }
func (ed *Edict) SetRenderMode(v int32)    { ed.renderMode = v }
func (ed *Edict) DeadFlag() int32          { return ed.deadFlag }
func (ed *Edict) SetDeadFlag(v int32)      { ed.deadFlag = v }
func (ed *Edict) SpawnFlag() int32         { return ed.spawnFlag }
func (ed *Edict) SetSpawnFlag(v int32)     { ed.spawnFlag = v }

// Trace is a fixed trace result.
type Trace struct {
	Frac float32
	End  host.Vector
	Ent  host.Edict
}

func (t *Trace) Fraction() float32   { return t.Frac }
func (t *Trace) EndPos() host.Vector { return t.End }
func (t *Trace) Hit() host.Edict     { return t.Ent }
