package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/bridge"
	"github.com/lunahost/luna/internal/config"
	coresys "github.com/lunahost/luna/internal/core/system"
	"github.com/lunahost/luna/internal/entity"
	"github.com/lunahost/luna/internal/ext"
	"github.com/lunahost/luna/internal/ext/sqlext"
	"github.com/lunahost/luna/internal/host/sim"
	"github.com/lunahost/luna/internal/natives"
	"github.com/lunahost/luna/internal/scripting"
	"github.com/lunahost/luna/internal/timer"
)

// lunaHost is everything wired together on top of the reference engine.
type lunaHost struct {
	log      *zap.Logger
	engine   *sim.Engine
	game     *sim.Game
	entities *entity.Registry
	bridge   *bridge.Bridge
	timers   *timer.Queue
	exts     *ext.Manager
	scripts  *scripting.System
	natives  *natives.Env
	runner   *coresys.Runner
	console  chan string
}

func newHost(ctx context.Context, cfg *config.Config, log *zap.Logger) (*lunaHost, error) {
	charset, err := natives.LookupCharset(cfg.Engine.Charset)
	if err != nil {
		return nil, err
	}

	engine := sim.NewEngine(cfg.Host.MaxClients, log.Named("engine"))
	game := sim.NewGame(engine, sim.WithCStrike(), sim.WithShields())
	ents := entity.NewRegistry(log.Named("entity"))
	h := &lunaHost{
		log:      log,
		engine:   engine,
		game:     game,
		entities: ents,
		bridge:   bridge.New(game, ents, log.Named("bridge")),
		timers:   timer.NewQueue(engine, log.Named("timer")),
		console:  make(chan string, 16),
	}

	static := ext.NewStaticOpener()
	static.Register("sql", sqlext.Module())
	h.exts = ext.NewManager(ext.MultiOpener{static, ext.PluginOpener{}}, log.Named("ext"))

	h.scripts = scripting.NewSystem(scripting.Options{
		Dir:         cfg.Dirs.Plugins,
		AllowSource: cfg.Scripting.AllowSource,
		MaxClients:  cfg.Host.MaxClients,
	}, log.Named("scripting"))
	h.natives = natives.New(ctx, natives.Deps{
		Engine:   engine,
		Game:     game,
		Bridge:   h.bridge,
		Entities: ents,
		Timers:   h.timers,
		Scripts:  h.scripts,
		Exts:     h.exts,
		Charset:  charset,
		Log:      log.Named("natives"),
	})

	h.runner = coresys.NewRunner()
	h.runner.Register(coresys.Func{P: coresys.PhaseFrameStart, Fn: h.frameStart})
	h.runner.Register(h.timers)
	h.runner.Register(entity.NewSweeper(ents))
	return h, nil
}

// start loads the built-in and on-disk extensions, then the plugins.
func (h *lunaHost) start(extDir string) {
	if _, err := h.exts.Load("sql"); err != nil {
		h.log.Warn("built-in sql extension", zap.Error(err))
	}
	if err := h.exts.LoadDir(extDir); err != nil {
		h.log.Debug("some extensions were skipped", zap.Error(err))
	}
	h.exts.Init()

	if err := h.scripts.LoadAll(); err != nil {
		h.log.Debug("some scripts were skipped", zap.Error(err))
	}
	h.scripts.InstallHooks()
}

// frameStart advances the engine clock and runs queued console lines.
func (h *lunaHost) frameStart(dt time.Duration) {
	h.engine.Advance(dt)
	for {
		select {
		case line := <-h.console:
			if !h.engine.Exec(line) {
				fmt.Printf("unknown command: %s\n", line)
			}
		default:
			return
		}
	}
}

func (h *lunaHost) tick(dt time.Duration) { h.runner.Tick(dt) }

// stop unloads every script before the extensions they may hold handles in.
func (h *lunaHost) stop() {
	h.scripts.UnloadAll()
	h.natives.Close()
	h.exts.Shutdown()
	h.timers.Clear()
	h.entities.Clear()
}
