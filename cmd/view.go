package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"tangle/engine"
	"tangle/geom"
	"tangle/graph"
	"tangle/plugin"
	"tangle/spatial"
)

// Terminal cells are not square; these map one character cell to screen px
// so the engine's geometry stays isotropic.
const (
	cellW = 9.0
	cellH = 18.0
)

// dragPointer is the synthetic pointer id for keyboard-driven drags.
const dragPointer = 1

var watchFile bool

var viewCmd = &cobra.Command{
	Use:   "view [snapshot.json]",
	Short: "Open the interactive diagram viewer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var prog *tea.Program
		eng := engine.New(cfg,
			engine.WithLogger(newLogger()),
			engine.WithDispatch(func(fn func()) {
				if prog != nil {
					prog.Send(applyMsg{fn})
				}
			}),
		)
		defer eng.Close()

		m := &viewModel{
			eng:     eng,
			minimap: plugin.NewMinimap(geom.Size{Width: 20 * cellW, Height: 8 * cellH}),
			lod:     plugin.NewLOD(),
		}
		if err := m.minimap.Attach(eng); err != nil {
			return err
		}
		if err := m.lod.Attach(eng); err != nil {
			return err
		}
		if len(args) == 1 {
			m.filename = args[0]
			if err := m.loadFile(); err != nil {
				return err
			}
		}
		if watchFile && m.filename != "" {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			if err := watcher.Add(m.filename); err != nil {
				watcher.Close()
				return err
			}
			m.watcher = watcher
			defer watcher.Close()
		}

		prog = tea.NewProgram(m, tea.WithAltScreen())
		if m.watcher != nil {
			go watchLoop(prog, m.watcher)
		}
		_, err = prog.Run()
		return err
	},
}

type applyMsg struct{ fn func() }

type reloadMsg struct{}

func watchLoop(prog *tea.Program, watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				prog.Send(reloadMsg{})
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

type viewModel struct {
	eng     *engine.Engine
	minimap *plugin.Minimap
	lod     *plugin.LOD
	watcher *fsnotify.Watcher

	filename string
	width    int
	height   int
	cursorX  int
	cursorY  int
	panMode  bool
	dragging bool
	help     bool
	status   string
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

// cursorScreen maps the character cursor to engine screen px.
func (m *viewModel) cursorScreen() geom.Point {
	return geom.Pt(float64(m.cursorX)*cellW, float64(m.cursorY)*cellH)
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.eng.Viewport().SetScreenSize(geom.Size{
			Width:  float64(msg.Width) * cellW,
			Height: float64(msg.Height-1) * cellH,
		})
		m.clampCursor()
		return m, nil

	case applyMsg:
		msg.fn()
		return m, nil

	case reloadMsg:
		if !m.dragging {
			if err := m.loadFile(); err != nil {
				m.status = err.Error()
			} else {
				m.status = "reloaded " + m.filename
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *viewModel) handleKey(key string) (tea.Model, tea.Cmd) {
	if m.help {
		m.help = false
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		m.eng.Drags().Cancel()
		return m, tea.Quit
	case "?":
		m.help = true
		return m, nil
	case "z":
		m.panMode = !m.panMode
		return m, nil
	case "esc":
		if m.dragging {
			m.eng.Drags().Cancel()
			m.dragging = false
			m.status = "drag cancelled"
			return m, nil
		}
		m.eng.Graph().ClearSelection()
		return m, nil
	}

	switch key {
	case "h", "left", "H", "shift+left",
		"l", "right", "L", "shift+right",
		"k", "up", "K", "shift+up",
		"j", "down", "J", "shift+down":
		m.handleNavigation(key, moveSpeed(key))
		return m, nil
	}

	switch key {
	case "+", "=":
		m.eng.Viewport().ZoomBy(1.25)
	case "-", "_":
		m.eng.Viewport().ZoomBy(0.8)
	case "f":
		m.eng.FitToView()
	case "F":
		m.eng.FitSelectedNodes()
	case "0":
		m.eng.ResetViewport()
	case "c":
		if ids := m.eng.Graph().SelectedNodes(); len(ids) > 0 {
			m.eng.CenterOnNode(ids[0])
		}
	case "enter", " ":
		m.selectAtCursor(false)
	case "t":
		m.selectAtCursor(true)
	case "a":
		m.eng.Graph().SelectAllNodes()
	case "i":
		m.eng.Graph().InvertNodeSelection()
	case "d":
		m.toggleDrag()
	case "D":
		if ids := m.eng.Graph().SelectedNodes(); len(ids) > 0 {
			if dup, ok := m.eng.Graph().DuplicateNode(ids[0]); ok {
				m.status = "duplicated as " + shortID(dup.ID)
			}
		}
	case "x", "backspace":
		m.deleteSelected()
	case "g":
		m.eng.ArrangeNodesInGrid(150)
		m.status = "arranged in grid"
	case "[":
		for _, id := range m.eng.Graph().SelectedNodes() {
			m.eng.Graph().SendBackward(id)
		}
	case "]":
		for _, id := range m.eng.Graph().SelectedNodes() {
			m.eng.Graph().BringForward(id)
		}
	case "y":
		m.yankSnapshot()
	case "w":
		m.saveFile()
	}
	return m, nil
}

// handleNavigation moves the cursor, or pans in pan mode. While a drag is
// active every cursor move feeds the drag session, which is what keeps the
// dragged node under the cursor and arms autopan near the edges.
func (m *viewModel) handleNavigation(key string, speed int) {
	if m.panMode {
		delta := geom.Point{}
		switch key {
		case "h", "left", "H", "shift+left":
			delta.X = cellW * float64(speed)
		case "l", "right", "L", "shift+right":
			delta.X = -cellW * float64(speed)
		case "k", "up", "K", "shift+up":
			delta.Y = cellH * float64(speed)
		case "j", "down", "J", "shift+down":
			delta.Y = -cellH * float64(speed)
		}
		m.eng.Viewport().PanBy(delta)
		return
	}

	switch key {
	case "h", "left", "H", "shift+left":
		m.cursorX -= speed
	case "l", "right", "L", "shift+right":
		m.cursorX += speed
	case "k", "up", "K", "shift+up":
		m.cursorY -= speed
	case "j", "down", "J", "shift+down":
		m.cursorY += speed
	}
	m.clampCursor()
	if m.dragging {
		m.eng.Drags().Update(dragPointer, m.cursorScreen())
	}
}

func moveSpeed(key string) int {
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		return 4
	default:
		return 1
	}
}

func (m *viewModel) clampCursor() {
	if m.cursorX < 0 {
		m.cursorX = 0
	}
	if m.cursorY < 0 {
		m.cursorY = 0
	}
	if m.width > 0 && m.cursorX >= m.width {
		m.cursorX = m.width - 1
	}
	if m.height > 1 && m.cursorY >= m.height-1 {
		m.cursorY = m.height - 2
	}
}

func (m *viewModel) selectAtCursor(toggle bool) {
	mode := graph.SelectReplace
	if toggle {
		mode = graph.SelectToggle
	}
	hit, ok := m.eng.HitTestScreen(m.cursorScreen())
	if !ok {
		m.eng.Graph().ClearSelection()
		return
	}
	switch hit.Kind {
	case spatial.KindNode, spatial.KindPort:
		m.eng.Graph().SelectNode(hit.ID, mode)
	case spatial.KindConnection:
		m.eng.Graph().SelectConnection(hit.ID, mode)
	case spatial.KindAnnotation:
		m.eng.Graph().SelectAnnotation(hit.ID, mode)
	}
}

func (m *viewModel) toggleDrag() {
	if m.dragging {
		m.eng.Drags().End()
		m.dragging = false
		m.status = "drag committed"
		return
	}
	ids := m.eng.Graph().SelectedNodes()
	if len(ids) == 0 {
		hit, ok := m.eng.HitTestScreen(m.cursorScreen())
		if !ok || hit.Kind != spatial.KindNode {
			m.status = "nothing to drag"
			return
		}
		m.eng.Graph().SelectNode(hit.ID, graph.SelectReplace)
		ids = []string{hit.ID}
	}
	if m.eng.StartNodeDrag(dragPointer, m.cursorScreen(), ids[0]) {
		m.dragging = true
		m.status = "dragging " + shortID(ids[0])
	}
}

func (m *viewModel) deleteSelected() {
	g := m.eng.Graph()
	for _, id := range g.SelectedNodes() {
		g.RemoveNode(id)
	}
	for _, id := range g.SelectedConnections() {
		g.RemoveConnection(id)
	}
	for _, id := range g.SelectedAnnotations() {
		g.RemoveAnnotation(id)
	}
}

func (m *viewModel) yankSnapshot() {
	var buf bytes.Buffer
	if err := m.eng.ExportGraph().WriteJSON(&buf); err != nil {
		m.status = err.Error()
		return
	}
	if err := clipboard.WriteAll(buf.String()); err != nil {
		m.status = "clipboard: " + err.Error()
		return
	}
	m.status = "snapshot copied to clipboard"
}

func (m *viewModel) loadFile() error {
	snap, err := readSnapshotFile(m.filename)
	if err != nil {
		return err
	}
	return m.eng.LoadGraph(snap)
}

func (m *viewModel) saveFile() {
	if m.filename == "" {
		m.status = "no filename"
		return
	}
	f, err := os.Create(m.filename)
	if err != nil {
		m.status = err.Error()
		return
	}
	defer f.Close()
	if err := m.eng.ExportGraph().WriteJSON(f); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "saved " + m.filename
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	viewCmd.Flags().BoolVar(&watchFile, "watch", false, "reload when the snapshot file changes on disk")
	rootCmd.AddCommand(viewCmd)
}

var (
	statusStyle  = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("252")).Padding(0, 1)
	modeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1).Bold(true)
	helpStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	minimapStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func (m *viewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return helpStyle.Render(helpText)
	}

	canvasH := m.height - 1
	canvas := m.renderCanvas(m.width, canvasH)
	lines := make([]string, 0, m.height)
	for _, row := range canvas {
		lines = append(lines, string(row))
	}
	lines = m.overlayMinimap(lines)
	return strings.Join(lines, "\n") + "\n" + m.statusBar()
}

func (m *viewModel) statusBar() string {
	mode := "NORMAL"
	switch {
	case m.dragging:
		mode = "DRAG"
	case m.panMode:
		mode = "PAN"
	}
	name := m.filename
	if name == "" {
		name = "[scratch]"
	}
	info := fmt.Sprintf("%s  %d nodes  %d conns  zoom %.0f%%  lod %d",
		name,
		m.eng.Graph().NodeCount(),
		m.eng.Graph().ConnectionCount(),
		m.eng.Viewport().Zoom()*100,
		m.lod.Level(),
	)
	if m.status != "" {
		info += "  " + m.status
	}
	return modeStyle.Render(mode) + statusStyle.Render(info)
}

// renderCanvas rasterizes the visible graph onto a rune grid, one char per
// (cellW x cellH) screen px.
func (m *viewModel) renderCanvas(width, height int) [][]rune {
	canvas := make([][]rune, height)
	for y := range canvas {
		canvas[y] = make([]rune, width)
		for x := range canvas[y] {
			canvas[y][x] = ' '
		}
	}

	vp := m.eng.Viewport()
	toCell := func(p geom.Point) (int, int) {
		s := vp.GraphToScreen(p)
		return int(s.X / cellW), int(s.Y / cellH)
	}
	set := func(x, y int, r rune) {
		if x >= 0 && x < width && y >= 0 && y < height {
			canvas[y][x] = r
		}
	}

	for _, c := range m.eng.Graph().Connections() {
		p, ok := m.eng.Routes().PathFor(c.ID)
		if !ok {
			continue
		}
		mark := '·'
		if c.Selected {
			mark = '*'
		}
		for _, seg := range p.Segments {
			steps := int(seg.A.Dist(seg.B)/cellW) + 1
			for s := 0; s <= steps; s++ {
				t := float64(s) / float64(steps)
				x, y := toCell(geom.Point{
					X: seg.A.X + t*(seg.B.X-seg.A.X),
					Y: seg.A.Y + t*(seg.B.Y-seg.A.Y),
				})
				set(x, y, mark)
			}
		}
	}

	for _, n := range m.eng.Graph().NodesByZ() {
		if !n.Visible {
			continue
		}
		x0, y0 := toCell(n.Bounds().Min)
		x1, y1 := toCell(n.Bounds().Max)
		if x1 <= x0 {
			x1 = x0 + 1
		}
		if y1 <= y0 {
			y1 = y0 + 1
		}
		h, v, tl, tr, bl, br := '─', '│', '╭', '╮', '╰', '╯'
		if n.Selected {
			h, v, tl, tr, bl, br = '═', '║', '╔', '╗', '╚', '╝'
		}
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				switch {
				case x == x0 && y == y0:
					set(x, y, tl)
				case x == x1 && y == y0:
					set(x, y, tr)
				case x == x0 && y == y1:
					set(x, y, bl)
				case x == x1 && y == y1:
					set(x, y, br)
				case y == y0 || y == y1:
					set(x, y, h)
				case x == x0 || x == x1:
					set(x, y, v)
				default:
					set(x, y, ' ')
				}
			}
		}
		if m.lod.Level() == plugin.DetailFull {
			for _, p := range n.Inputs {
				px, py := toCell(n.PortAnchor(p))
				set(px, py, '◦')
			}
			for _, p := range n.Outputs {
				px, py := toCell(n.PortAnchor(p))
				set(px, py, '●')
			}
			label := n.Type
			if v, ok := n.Payload["label"].(string); ok && v != "" {
				label = v
			}
			for i, r := range label {
				if x0+1+i >= x1 {
					break
				}
				set(x0+1+i, y0+1, r)
			}
		}
	}

	set(m.cursorX, m.cursorY, '+')
	return canvas
}

// overlayMinimap draws the minimap model into the top-right corner.
func (m *viewModel) overlayMinimap(lines []string) []string {
	model := m.minimap.Model()
	if len(model.Boxes) == 0 || m.width < 30 {
		return lines
	}
	mapW, mapH := 20, 8
	grid := make([][]rune, mapH)
	for y := range grid {
		grid[y] = make([]rune, mapW)
		for x := range grid[y] {
			grid[y][x] = '░'
		}
	}
	plot := func(r geom.Rect, mark rune) {
		x0 := int(r.Min.X / cellW)
		y0 := int(r.Min.Y / cellH)
		x1 := int(r.Max.X / cellW)
		y1 := int(r.Max.Y / cellH)
		for y := y0; y <= y1 && y < mapH; y++ {
			for x := x0; x <= x1 && x < mapW; x++ {
				if x >= 0 && y >= 0 {
					grid[y][x] = mark
				}
			}
		}
	}
	plot(model.Viewport, '▒')
	for _, box := range model.Boxes {
		mark := '▪'
		if box.Selected {
			mark = '▣'
		}
		plot(box.Rect, mark)
	}
	for y := 0; y < mapH && y < len(lines); y++ {
		row := minimapStyle.Render(string(grid[y]))
		line := []rune(lines[y])
		if len(line) >= mapW {
			lines[y] = string(line[:len(line)-mapW]) + row
		}
	}
	return lines
}

const helpText = `tangle viewer

  h j k l / arrows   move cursor (shift: faster)
  z                  toggle pan mode
  + / -              zoom in / out
  f / F / 0          fit all / fit selection / reset view
  enter or space     select under cursor
  t                  toggle-select under cursor
  a / i              select all / invert selection
  d                  start or commit drag of selected node
  esc                cancel drag / clear selection
  D                  duplicate selected node
  x                  delete selection
  g                  arrange nodes in a grid
  [ / ]              send backward / bring forward
  y                  copy snapshot JSON to clipboard
  w                  save file
  ?                  toggle this help
  q                  quit

press any key to close`
