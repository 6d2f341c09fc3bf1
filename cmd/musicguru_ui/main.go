package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/musicguru-go"
	"github.com/cbegin/musicguru-go/internal/config"
	"github.com/cbegin/musicguru-go/internal/logger"
	"github.com/cbegin/musicguru-go/internal/playlist"
)

const (
	windowW    = 480
	windowH    = 800
	minWindowW = 420
	minWindowH = 720

	textScale = 1
	charW     = 7 * textScale
	lineH     = 18 * textScale

	vizSize = 320
)

var (
	bgColor        = color.RGBA{12, 12, 12, 255}
	panelColor     = color.RGBA{40, 40, 44, 255}
	borderColor    = color.RGBA{90, 90, 96, 255}
	buttonColor    = color.RGBA{200, 20, 20, 255}
	buttonOnColor  = color.RGBA{255, 80, 80, 255}
	highlightColor = color.RGBA{120, 0, 0, 255}
	sunkenBgColor  = color.RGBA{24, 24, 32, 255}

	bevelLight  = color.RGBA{160, 160, 170, 255}
	bevelDarker = color.RGBA{0, 0, 0, 255}

	sliderFillColor = color.RGBA{220, 30, 30, 255}
)

// ebitenCanvas lets the visualizer stroke onto an ebiten image.
type ebitenCanvas struct {
	dst *ebiten.Image
}

func (c ebitenCanvas) StrokeLine(x0, y0, x1, y1, width float32, clr color.Color) {
	vector.StrokeLine(c.dst, x0, y0, x1, y1, width, clr, true)
}

type transportButton struct {
	label  string
	action func(g *game)
	on     func(g *game) bool
}

var transport = []transportButton{
	{label: "|<", action: func(g *game) { g.report(g.player.Prev()) }},
	{label: ">", action: func(g *game) { g.report(g.player.Play()) }},
	{label: "||", action: func(g *game) { g.player.Pause() }},
	{label: "[]", action: func(g *game) { g.player.Stop() }},
	{label: ">|", action: func(g *game) { g.report(g.player.Next()) }},
	{label: "Shf", action: func(g *game) { g.player.ToggleShuffle() }, on: func(g *game) bool { return g.status.Shuffle }},
	{label: "Rep", action: func(g *game) { g.player.ToggleRepeat() }, on: func(g *game) bool { return g.status.Repeat }},
}

type game struct {
	player  *musicguru.Player
	events  <-chan musicguru.PlaybackEvent
	updates <-chan []musicguru.Entry
	log     *zap.Logger

	vizImg *ebiten.Image
	status musicguru.Status

	dragging    int // 0=none, 1=seek, 2=volume
	seekPreview float64

	query       []rune
	searchFocus bool
	listScroll  int

	message    string
	messageErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(pl *musicguru.Player, updates <-chan []musicguru.Entry, log *zap.Logger) *game {
	return &game{
		player:    pl,
		events:    pl.Watch(),
		updates:   updates,
		log:       log,
		vizImg:    ebiten.NewImage(vizSize, vizSize),
		message:   "Ready",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}
}

func (g *game) Update() error {
	g.pollUpdates()
	g.pollEvents()
	g.handleMouse()
	g.handleKeys()
	g.player.Tick()
	g.status = g.player.Status()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawCentered(screen, g.status.TrackName, l.title)
	g.drawCentered(screen, g.status.TimeLabel(), l.time)
	g.drawSeekBar(screen, l.seek)
	g.drawVisualizer(screen, l.viz)
	for i, b := range transport {
		fill := buttonColor
		if b.on != nil && b.on(g) {
			fill = buttonOnColor
		}
		g.drawButton(screen, l.buttons[i], b.label, fill)
	}
	g.drawVolumeSlider(screen, l.volume)
	g.drawSearch(screen, l.search)
	g.drawPlaylist(screen, l.list)
	g.drawMessage(screen, l.message)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() { g.player.Close() }

func (g *game) pollUpdates() {
	if g.updates == nil {
		return
	}
	select {
	case list := <-g.updates:
		g.player.SetLibrary(list)
		g.setMessage(fmt.Sprintf("Playlist: %d tracks", len(list)))
	default:
	}
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch {
			case ev.Err != nil:
				g.setError(ev.Message())
			case ev.Kind != musicguru.EventStateChanged:
				g.setMessage(ev.Message())
			}
		default:
			return
		}
	}
}

func (g *game) report(err error) {
	if err != nil {
		g.log.Debug("ui action failed", zap.Error(err))
		g.setError(err.Error())
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.searchFocus = pointInRect(mx, my, l.search)
		for i, r := range l.buttons {
			if pointInRect(mx, my, r) {
				transport[i].action(g)
				return
			}
		}
		switch {
		case pointInRect(mx, my, l.seek):
			g.dragging = 1
			g.seekPreview = sliderFraction(mx, l.seek)
		case pointInRect(mx, my, l.volume):
			g.dragging = 2
			g.updateVolumeFromMouse(mx, l.volume)
		case pointInRect(mx, my, l.list):
			g.clickPlaylist(my, l.list)
		}
		return
	}
	switch g.dragging {
	case 1:
		g.seekPreview = sliderFraction(mx, l.seek)
	case 2:
		g.updateVolumeFromMouse(mx, l.volume)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		// Seeking applies on release, like a media player's scrubber.
		if g.dragging == 1 {
			g.report(g.player.Seek(g.seekPreview * 100))
		}
		g.dragging = 0
	}

	_, wy := ebiten.Wheel()
	if wy != 0 && pointInRect(mx, my, l.list) {
		g.listScroll -= int(wy * 2)
		if g.listScroll < 0 {
			g.listScroll = 0
		}
	}
}

func (g *game) handleKeys() {
	if !g.searchFocus {
		if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
			if g.status.State == musicguru.Playing {
				g.player.Pause()
			} else {
				g.report(g.player.Play())
			}
		}
		return
	}
	changed := false
	if chars := ebiten.AppendInputChars(nil); len(chars) > 0 {
		g.query = append(g.query, chars...)
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(g.query) > 0 {
		g.query = g.query[:len(g.query)-1]
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.searchFocus = false
	}
	if changed {
		g.player.SetFilter(string(g.query))
		g.listScroll = 0
	}
}

func (g *game) clickPlaylist(my int, rect image.Rectangle) {
	row := (my - rect.Min.Y - 6) / lineH
	if row < 0 {
		return
	}
	idx := g.listScroll + row
	if idx >= len(g.player.Tracks()) {
		return
	}
	g.report(g.player.Select(idx))
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	level := int(sliderFraction(mx, rect)*100 + 0.5)
	g.player.SetVolume(level)
	g.setMessage(fmt.Sprintf("Volume: %d%%", level))
}

type uiLayout struct {
	title, time, seek, viz image.Rectangle
	buttons                []image.Rectangle
	volume, search, list   image.Rectangle
	message                image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)
	pad := 12
	inner := w - 2*pad

	y := pad
	title := image.Rect(pad, y, w-pad, y+lineH)
	y += lineH
	tm := image.Rect(pad, y, w-pad, y+lineH)
	y += lineH + 4
	seek := image.Rect(pad, y, w-pad, y+20)
	y += 28
	vizX := (w - vizSize) / 2
	viz := image.Rect(vizX, y, vizX+vizSize, y+vizSize)
	y += vizSize + 8

	btnW := inner / len(transport)
	buttons := make([]image.Rectangle, len(transport))
	for i := range buttons {
		x := pad + i*btnW
		buttons[i] = image.Rect(x+2, y, x+btnW-2, y+32)
	}
	y += 40
	volume := image.Rect(pad, y, w-pad, y+28)
	y += 36
	search := image.Rect(pad, y, w-pad, y+26)
	y += 32

	messageTop := h - pad - lineH - 8
	list := image.Rect(pad, y, w-pad, messageTop-6)
	message := image.Rect(pad, messageTop, w-pad, h-pad)

	return uiLayout{
		title: title, time: tm, seek: seek, viz: viz, buttons: buttons,
		volume: volume, search: search, list: list, message: message,
	}
}

func (g *game) drawVisualizer(screen *ebiten.Image, rect image.Rectangle) {
	g.vizImg.Fill(color.Black)
	g.player.Render(ebitenCanvas{dst: g.vizImg}, vizSize, vizSize)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	screen.DrawImage(g.vizImg, op)
}

func (g *game) drawSeekBar(screen *ebiten.Image, rect image.Rectangle) {
	frac := float64(g.status.Progress) / 100
	if g.dragging == 1 {
		frac = g.seekPreview
	}
	g.drawSlider(screen, rect, frac)
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	label := fmt.Sprintf("Vol %3d%%", g.status.Volume)
	g.drawText(screen, label, rect.Min.X+8, rect.Min.Y+(rect.Dy()-14)/2)
	track := image.Rect(rect.Min.X+80, rect.Min.Y, rect.Max.X-12, rect.Max.Y)
	g.drawSlider(screen, track, float64(g.status.Volume)/100)
}

func (g *game) drawSlider(screen *ebiten.Image, rect image.Rectangle, frac float64) {
	trackX := rect.Min.X
	trackW := rect.Dx()
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	// Sunken track groove.
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	fillW := int(float64(trackW) * clamp(frac, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knobRect := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knobRect.Min.X), float64(knobRect.Min.Y), float64(knobRect.Dx()), float64(knobRect.Dy()), panelColor)
	drawBorder(screen, knobRect)
}

func (g *game) drawSearch(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	text := string(g.query)
	if text == "" && !g.searchFocus {
		text = "Search song..."
	}
	if g.searchFocus {
		text += "_"
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(text, maxChars), rect.Min.X+8, rect.Min.Y+(rect.Dy()-14)/2)
}

func (g *game) drawPlaylist(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	names := g.player.Tracks()
	selected := g.player.SelectedIndex()
	maxLines := max(1, (rect.Dy()-12)/lineH)
	if g.listScroll > max(0, len(names)-maxLines) {
		g.listScroll = max(0, len(names)-maxLines)
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	for row := 0; row < maxLines; row++ {
		idx := g.listScroll + row
		if idx >= len(names) {
			break
		}
		y := rect.Min.Y + 6 + row*lineH
		if idx == selected && g.status.TrackName == names[idx] {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+3), float64(y-2), float64(rect.Dx()-6), lineH, highlightColor)
		}
		g.drawText(screen, shortenMiddle(names[idx], maxChars), rect.Min.X+8, y)
	}
}

func (g *game) drawMessage(screen *ebiten.Image, rect image.Rectangle) {
	msg := g.message
	if g.messageErr {
		msg = "ERROR - " + msg
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+4, rect.Min.Y+4)
}

func (g *game) setError(msg string) {
	g.message = msg
	g.messageErr = true
}

func (g *game) setMessage(msg string) {
	g.message = msg
	g.messageErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string, fill color.Color) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	drawBorder(screen, rect)
	g.drawCentered(screen, label, rect)
}

func (g *game) drawCentered(screen *ebiten.Image, label string, rect image.Rectangle) {
	maxChars := max(4, rect.Dx()/charW)
	label = shortenMiddle(label, maxChars)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-14*textScale)/2
	g.drawText(screen, label, x, y)
}

// drawBorder draws a raised 3D bevel (highlight top/left, shadow bottom/right).
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
}

// drawSunkenBorder draws a sunken 3D bevel (shadow top/left, highlight bottom/right).
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		w := max(1, len([]rune(msg))*7)
		img = ebiten.NewImage(w, 16)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func sliderFraction(mx int, rect image.Rectangle) float64 {
	if rect.Dx() <= 0 {
		return 0
	}
	return clamp(float64(mx-rect.Min.X)/float64(rect.Dx()), 0, 1)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func shortenMiddle(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 7 {
		return shortenEnd(s, maxChars)
	}
	left := (maxChars - 3) / 2
	right := maxChars - 3 - left
	return string(r[:left]) + "..." + string(r[len(r)-right:])
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

type uiFlags struct {
	envFile    string
	dir        string
	logLevel   string
	logFile    string
	volume     int
	repeat     bool
	shuffle    bool
	sampleRate int
}

func main() {
	var f uiFlags
	root := &cobra.Command{
		Use:           "musicguru_ui [files...]",
		Short:         "MusicGuru player window with a radial waveform visualizer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(f.envFile)
			fl := cmd.Flags()
			if fl.Changed("dir") {
				cfg.MusicDir = f.dir
			}
			if fl.Changed("log-level") {
				cfg.LogLevel = f.logLevel
			}
			if fl.Changed("log-file") {
				cfg.LogFile = f.logFile
			}
			if fl.Changed("volume") {
				cfg.Volume = f.volume
			}
			if fl.Changed("repeat") {
				cfg.Repeat = f.repeat
			}
			if fl.Changed("shuffle") {
				cfg.Shuffle = f.shuffle
			}
			if fl.Changed("sample-rate") {
				cfg.SampleRate = f.sampleRate
			}
			return run(cfg, args)
		},
	}
	pf := root.Flags()
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file with MUSICGURU_* settings")
	pf.StringVar(&f.dir, "dir", "", "music directory (default $MUSICGURU_DIR or .)")
	pf.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&f.logFile, "log-file", "", "rotating log file path")
	pf.IntVar(&f.volume, "volume", 80, "volume 0..100")
	pf.BoolVar(&f.repeat, "repeat", false, "repeat the current track")
	pf.BoolVar(&f.shuffle, "shuffle", false, "pick the next track at random")
	pf.IntVar(&f.sampleRate, "sample-rate", 44100, "output sample rate")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string) error {
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, OutputPath: cfg.LogFile})
	if err != nil {
		return err
	}
	defer log.Sync()

	var entries []musicguru.Entry
	if len(args) > 0 {
		entries = musicguru.EntriesFromPaths(args)
	} else if entries, err = musicguru.ScanDir(cfg.MusicDir); err != nil {
		return err
	}

	pl, err := musicguru.NewPlayer(cfg.SampleRate,
		musicguru.WithLogger(log),
		musicguru.WithVolume(cfg.Volume),
		musicguru.WithRepeat(cfg.Repeat),
		musicguru.WithShuffle(cfg.Shuffle),
		musicguru.WithTickInterval(cfg.TickInterval))
	if err != nil {
		return err
	}
	pl.SetLibrary(entries)
	if len(entries) > 0 {
		// Show the first entry without starting it.
		if err := pl.Load(entries[0].Path); err != nil {
			log.Warn("initial load failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var updates <-chan []musicguru.Entry
	if cfg.Watch && len(args) == 0 {
		w, err := playlist.NewWatcher(cfg.MusicDir, log.Named("watch"))
		if err != nil {
			log.Warn("directory watch disabled", zap.String("dir", cfg.MusicDir), zap.Error(err))
		} else {
			go w.Run(ctx)
			updates = w.Updates()
		}
	}

	g := newGame(pl, updates, log)
	defer g.Close()

	ebiten.SetTPS(pl.TicksPerSecond())
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("MusicGuru")
	return ebiten.RunGame(g)
}
