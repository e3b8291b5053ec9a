//go:build linux

package infra

import (
	"context"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

func newPlatformSources(logger *zap.Logger) platformSources {
	x := &x11Session{logger: logger}
	idle := &linuxIdle{x: x}
	return platformSources{
		idle:       idle,
		foreground: x,
		audio:      &pactlAudio{},
		close: func() error {
			x.close()
			return idle.close()
		},
	}
}

// x11Session holds a lazily opened X connection shared by the idle and foreground sources.
// xgb connections are safe for concurrent use; the mutex only guards setup.
type x11Session struct {
	mu        sync.Mutex
	state     *x11State
	warnedNoX bool
	logger    *zap.Logger
}

// x11State is immutable once built; a reconnect replaces it.
type x11State struct {
	conn     *xgb.Conn
	root     xproto.Window
	atoms    map[string]xproto.Atom
	hasSaver bool
}

var ewmhAtoms = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"UTF8_STRING",
}

func (x *x11Session) connect() (*x11State, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != nil {
		return x.state, nil
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "connect X display")
	}

	atoms := make(map[string]xproto.Atom, len(ewmhAtoms))
	for _, name := range ewmhAtoms {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "intern atom %s", name)
		}
		atoms[name] = reply.Atom
	}

	x.state = &x11State{
		conn:     conn,
		root:     xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms:    atoms,
		hasSaver: screensaver.Init(conn) == nil,
	}
	return x.state, nil
}

// reset drops a broken connection so the next call reconnects. A caller holding an
// older state leaves a newer connection alone.
func (x *x11Session) reset(st *x11State) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state != nil && x.state == st {
		x.state.conn.Close()
		x.state = nil
	}
}

func (x *x11Session) close() {
	x.mu.Lock()
	st := x.state
	x.mu.Unlock()
	x.reset(st)
}

func property(conn *xgb.Conn, win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// Foreground reads the EWMH active window, its title, pid and WM_CLASS.
func (x *x11Session) Foreground(ctx context.Context) (domain.ProcessIdentity, string, error) {
	st, err := x.connect()
	if err != nil {
		// Pure Wayland sessions have no X server to ask.
		x.mu.Lock()
		if !x.warnedNoX {
			x.logger.Warn("no X display, foreground window unavailable", zap.Error(err))
			x.warnedNoX = true
		}
		x.mu.Unlock()
		return domain.ProcessIdentity{}, "", domain.ErrNoForeground
	}

	data, err := property(st.conn, st.root, st.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		x.reset(st)
		return domain.ProcessIdentity{}, "", errors.Wrap(err, "read _NET_ACTIVE_WINDOW")
	}
	if len(data) < 4 {
		return domain.ProcessIdentity{}, "", domain.ErrNoForeground
	}
	win := xproto.Window(xgb.Get32(data))
	if win == 0 {
		return domain.ProcessIdentity{}, "", domain.ErrNoForeground
	}

	title := windowTitle(st, win)

	pid := 0
	if data, err := property(st.conn, win, st.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1); err == nil && len(data) >= 4 {
		pid = int(xgb.Get32(data))
	}

	class := ""
	if data, err := property(st.conn, win, xproto.AtomWmClass, xproto.AtomString, 256); err == nil {
		class = parseWMClass(data)
	}

	return windowIdentity(ctx, pid, class), title, nil
}

// windowIdentity resolves the owning process. Windows without _NET_WM_PID, or whose
// process cannot be read, are named after their WM_CLASS.
func windowIdentity(ctx context.Context, pid int, class string) domain.ProcessIdentity {
	id := resolveIdentity(ctx, pid, "", class)
	if id.CanonicalName == "" {
		id.CanonicalName = domain.CanonicalName("", class)
	}
	return id
}

func windowTitle(st *x11State, win xproto.Window) string {
	if data, err := property(st.conn, win, st.atoms["_NET_WM_NAME"], st.atoms["UTF8_STRING"], 1024); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data, err := property(st.conn, win, xproto.AtomWmName, xproto.AtomString, 1024); err == nil {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

// parseWMClass returns the class part of WM_CLASS ("instance\x00Class\x00").
func parseWMClass(data []byte) string {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	return parts[len(parts)-1]
}

// idleFromX returns idle seconds via the MIT-SCREEN-SAVER extension.
func (x *x11Session) idleFromX() (float64, error) {
	st, err := x.connect()
	if err != nil {
		return 0, err
	}
	if !st.hasSaver {
		return 0, errors.New("MIT-SCREEN-SAVER extension not available")
	}
	reply, err := screensaver.QueryInfo(st.conn, xproto.Drawable(st.root)).Reply()
	if err != nil {
		x.reset(st)
		return 0, errors.Wrap(err, "screensaver query info")
	}
	return float64(reply.MsSinceUserInput) / 1000.0, nil
}

// linuxIdle tries X11 first and falls back to GNOME Mutter's idle monitor on D-Bus,
// which also works on Wayland.
type linuxIdle struct {
	x   *x11Session
	mu  sync.Mutex
	bus *dbus.Conn
}

const (
	mutterIdleDest   = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath   = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterIdleMethod = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

func (l *linuxIdle) IdleSeconds(ctx context.Context) (float64, error) {
	secs, xErr := l.x.idleFromX()
	if xErr == nil {
		return secs, nil
	}

	secs, busErr := l.idleFromMutter(ctx)
	if busErr == nil {
		return secs, nil
	}
	return 0, errors.Errorf("x11: %v; mutter: %v", xErr, busErr)
}

func (l *linuxIdle) idleFromMutter(ctx context.Context) (float64, error) {
	l.mu.Lock()
	if l.bus == nil {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			l.mu.Unlock()
			return 0, errors.Wrap(err, "connect session bus")
		}
		l.bus = bus
	}
	bus := l.bus
	l.mu.Unlock()

	var ms uint64
	err := bus.Object(mutterIdleDest, dbus.ObjectPath(mutterIdlePath)).
		CallWithContext(ctx, mutterIdleMethod, 0).
		Store(&ms)
	if err != nil {
		return 0, errors.Wrap(err, mutterIdleMethod)
	}
	return float64(ms) / 1000.0, nil
}

func (l *linuxIdle) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bus == nil {
		return nil
	}
	err := l.bus.Close()
	l.bus = nil
	return err
}

// pactlAudio reports audio as active when any PulseAudio/PipeWire sink is RUNNING.
type pactlAudio struct{}

func (a *pactlAudio) AudioActive(ctx context.Context) (bool, error) {
	out, err := runCommand(ctx, "pactl", "list", "short", "sinks")
	if err != nil {
		return false, err
	}
	return anySinkRunning(out), nil
}

// anySinkRunning parses `pactl list short sinks`; the state is the last column.
func anySinkRunning(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[len(fields)-1] == "RUNNING" {
			return true
		}
	}
	return false
}
