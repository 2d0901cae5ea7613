package terminal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/terminal/render"
	"github.com/valerio/go-jeebie-color/jeebie/debug"
	"github.com/valerio/go-jeebie-color/jeebie/disasm"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	// two pixel rows per terminal row
	gameAreaHeight = height / 2
	registerHeight = 10
	disasmHeight   = 9
	minTermWidth   = width + 2
	minTermHeight  = gameAreaHeight + 2

	logCapacity = 200
)

// Key expiry timeout - slightly longer than typical key repeat interval.
// Terminals report no key releases, so a held key is one that keeps
// repeating.
const keyTimeout = 100 * time.Millisecond

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen     tcell.Screen
	logBuffer  *render.LogBuffer
	logLevel   slog.Level
	config     backend.BackendConfig
	eventQueue []backend.InputEvent
	showDebug  bool

	keyStates  map[action.Action]time.Time // Last time each key was seen
	activeKeys map[action.Action]bool      // Keys active in previous frame
	now        func() time.Time

	frames    int
	fpsWindow time.Time
	fpsFrames int
	fps       float64
}

// New creates a new terminal backend drawing to the real terminal.
func New() *Backend {
	return NewWithScreen(nil)
}

// NewWithScreen creates a terminal backend drawing to screen. A nil screen
// means the real terminal, created on Init.
func NewWithScreen(screen tcell.Screen) *Backend {
	return &Backend{
		screen:   screen,
		logLevel: slog.LevelInfo,
		now:      time.Now,
	}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.showDebug = config.ShowDebug
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	// everything is captured, the panel filters by t.logLevel
	t.logBuffer = render.NewLogBuffer(logCapacity)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()
	t.fpsWindow = t.now()

	slog.Info("Terminal backend initialized", "title", config.Title)
	return nil
}

// Update renders a frame and processes events
func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := t.now()

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.joypadEvents(now)
	events = append(events, t.eventQueue...)
	t.eventQueue = nil

	t.countFrame(now)
	if frame != nil {
		t.render(frame)
		t.screen.Show()
	}
	return events, nil
}

// joypadEvents turns key repeats into press, hold and release events.
func (t *Backend) joypadEvents(now time.Time) []backend.InputEvent {
	var events []backend.InputEvent
	currentlyActive := make(map[action.Action]bool)

	for act, lastSeen := range t.keyStates {
		if now.Sub(lastSeen) >= keyTimeout {
			delete(t.keyStates, act)
			continue
		}
		currentlyActive[act] = true
		if t.activeKeys[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Hold})
		} else {
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
		}
	}

	for act := range t.activeKeys {
		if !currentlyActive[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}

	t.activeKeys = currentlyActive
	return events
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	act, ok := keyMapping[ev.Key()]
	if !ok && ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case '+', '=':
			t.changeLogLevel(1)
			return
		case '-', '_':
			t.changeLogLevel(-1)
			return
		}
		act, ok = runeMapping[ev.Rune()]
	}
	if !ok {
		return
	}

	if !act.IsGameBoy() {
		if act == action.EmulatorDebugToggle {
			t.showDebug = !t.showDebug
		}
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
		return
	}

	// Opposite directions can't be held together on a real d-pad, and a
	// terminal can't tell us when the previous one was released.
	switch act {
	case action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight:
		delete(t.keyStates, action.GBDPadUp)
		delete(t.keyStates, action.GBDPadDown)
		delete(t.keyStates, action.GBDPadLeft)
		delete(t.keyStates, action.GBDPadRight)
	}
	t.keyStates[act] = now
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyTab:    "Tab",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
	tcell.KeyF1:     "F1",
	tcell.KeyF2:     "F2",
	tcell.KeyF3:     "F3",
	tcell.KeyF4:     "F4",
	tcell.KeyF9:     "F9",
	tcell.KeyF10:    "F10",
}

// buildKeyMapping creates the key mapping from default mappings
func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, keyName := range tcellKeyNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.EmulatorQuit
	return mapping
}

// buildRuneMapping maps every single-character key name of the default
// mapping, plus space.
func buildRuneMapping() map[rune]action.Action {
	mapping := make(map[rune]action.Action)
	for keyName, act := range input.DefaultKeyMap {
		if r := []rune(keyName); len(r) == 1 {
			mapping[r[0]] = act
		}
	}
	if act, ok := input.GetDefaultMapping("Space"); ok {
		mapping[' '] = act
	}
	return mapping
}

var (
	keyMapping  = buildKeyMapping()
	runeMapping = buildRuneMapping()
)

func (t *Backend) changeLogLevel(direction int) {
	oldLevel := t.logLevel
	switch direction {
	case -1:
		switch t.logLevel {
		case slog.LevelDebug:
			t.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			t.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			t.logLevel = slog.LevelError
		}
	case 1:
		switch t.logLevel {
		case slog.LevelError:
			t.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			t.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			t.logLevel = slog.LevelDebug
		}
	}
	if oldLevel != t.logLevel {
		slog.Info("Log filter changed", "from", oldLevel, "to", t.logLevel)
	}
}

func (t *Backend) countFrame(now time.Time) {
	t.frames++
	t.fpsFrames++
	if elapsed := now.Sub(t.fpsWindow); elapsed >= time.Second {
		t.fps = float64(t.fpsFrames) / elapsed.Seconds()
		t.fpsFrames = 0
		t.fpsWindow = now
	}
}

func (t *Backend) render(frame *video.FrameBuffer) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	dividerX := width + 1
	panelX := dividerX + 2
	panelWidth := termWidth - panelX

	t.drawBorders(termWidth, termHeight, dividerX)
	t.drawGameBoy(frame)

	var data *debug.Data
	if t.config.DebugData != nil {
		data = t.config.DebugData()
	}

	logsY := 1
	if t.showDebug && data != nil && panelWidth > 0 {
		t.drawRegisters(panelX, 1, panelWidth, data)
		t.drawDisassembly(panelX, registerHeight+2, panelWidth, data)
		logsY = registerHeight + disasmHeight + 3
	}
	if panelWidth > 0 {
		t.drawLogs(panelX, logsY, panelWidth, termHeight-logsY-1)
	}
	t.drawStatus(termWidth, termHeight-1, data)
}

func (t *Backend) drawText(x, y, maxWidth int, text string, style tcell.Style) {
	for i, ch := range []rune(render.Clip(text, maxWidth)) {
		t.screen.SetContent(x+i, y, ch, nil, style)
	}
}

func (t *Backend) drawBorders(termWidth, termHeight, dividerX int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
	}

	title := " " + t.config.Title + " "
	if t.config.Title == "" {
		title = " Game Boy "
	}
	t.drawText(1, 0, dividerX-1, title, titleStyle)

	if t.showDebug {
		for _, y := range []int{registerHeight + 1, registerHeight + disasmHeight + 2} {
			for x := dividerX + 1; x < termWidth; x++ {
				t.screen.SetContent(x, y, '─', nil, borderStyle)
			}
			t.screen.SetContent(dividerX, y, '├', nil, borderStyle)
		}
	}
}

// drawGameBoy renders two pixel rows per terminal row with upper half
// blocks in true colour.
func (t *Backend) drawGameBoy(frame *video.FrameBuffer) {
	for y := 0; y < height; y += 2 {
		top := frame.Row(y)
		bottom := frame.Row(y + 1)
		for x := 0; x < width; x++ {
			tr, tg, tb := render.RGB(top[x])
			br, bg, bb := render.RGB(bottom[x])
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(tr, tg, tb)).
				Background(tcell.NewRGBColor(br, bg, bb))
			t.screen.SetContent(x, y/2+1, render.HalfBlockChar(top[x], bottom[x]), nil, style)
		}
	}
}

func (t *Backend) drawRegisters(x, y, w int, data *debug.Data) {
	cpu := data.CPU
	onOff := map[bool]string{true: "ON", false: "OFF"}
	lines := []string{
		fmt.Sprintf("A: %02X  F: %02X", cpu.A, cpu.F),
		fmt.Sprintf("B: %02X  C: %02X", cpu.B, cpu.C),
		fmt.Sprintf("D: %02X  E: %02X", cpu.D, cpu.E),
		fmt.Sprintf("H: %02X  L: %02X", cpu.H, cpu.L),
		fmt.Sprintf("SP: %04X  PC: %04X", cpu.SP, cpu.PC),
		fmt.Sprintf("IME: %s  IE: %02X  IF: %02X", onOff[cpu.IME], data.InterruptEnable, data.InterruptFlags),
		fmt.Sprintf("HALT: %s  CGB: %s  2x: %s", onOff[cpu.Halted], onOff[data.CGB], onOff[data.DoubleSpeed]),
		fmt.Sprintf("Cycles: %d", cpu.Cycles),
	}
	if data.Audio != nil {
		lines = append(lines, "APU: "+data.Audio.String())
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorAqua)
	for i, line := range lines {
		if i >= registerHeight {
			break
		}
		t.drawText(x, y+i, w, line, style)
	}
}

func (t *Backend) drawDisassembly(x, y, w int, data *debug.Data) {
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)

	for i, line := range data.Disassembly {
		if i >= disasmHeight {
			break
		}
		current := line.Address == data.CPU.PC
		useStyle := style
		if current {
			useStyle = currentStyle
		}
		t.drawText(x, y+i, w, disasm.Format(line, current), useStyle)
	}
}

func (t *Backend) drawLogs(x, y, w, rows int) {
	if rows <= 0 {
		return
	}

	logs := make([]render.LogEntry, 0, rows)
	for _, entry := range t.logBuffer.GetRecent(0) {
		if entry.Level >= t.logLevel {
			logs = append(logs, entry)
			if len(logs) >= rows {
				break
			}
		}
	}

	for i, entry := range logs {
		style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
		switch {
		case entry.Level >= slog.LevelError:
			style = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
		case entry.Level >= slog.LevelWarn:
			style = tcell.StyleDefault.Foreground(tcell.ColorYellow)
		case entry.Level < slog.LevelInfo:
			style = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}
		t.drawText(x, y+i, w, render.FormatLogEntry(entry), style)
	}
}

func (t *Backend) drawStatus(termWidth, y int, data *debug.Data) {
	state := "RUNNING"
	speed := ""
	if data != nil {
		if data.Paused {
			state = "PAUSED"
		}
		if data.Speed == 0 {
			speed = "  speed: max"
		} else {
			speed = fmt.Sprintf("  speed: %gx", data.Speed)
		}
	}
	status := fmt.Sprintf(" %s  %.1f fps%s | SPACE pause  T speed  F1-F4 mute  1-4 solo  0 unmute  F9 snapshot  F10 debug  +/- logs [%s]  Q quit ",
		state, t.fps, speed, t.logLevel)
	t.drawText(0, y, termWidth, status, tcell.StyleDefault.Reverse(true))
}

var _ backend.Backend = (*Backend)(nil)
