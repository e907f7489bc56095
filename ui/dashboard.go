// Package ui renders the overlay control surface in the terminal: current
// feed statistics plus the four filter controls. It never touches overlay
// internals; user input flows out through typed callbacks and state flows in
// through the Control interface.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"propmap/feed"
	"propmap/overlay"
	"propmap/stats"
)

// Dashboard is a tview control surface. All callback fields are optional and
// must be set before Run.
type Dashboard struct {
	app   *tview.Application
	stats *tview.TextView
	form  *tview.Form

	tracker *stats.Tracker

	mu       sync.Mutex
	detached bool

	OnBandChange      func(band string)
	OnWindowChange    func(minutes int)
	OnMinSNRChange    func(snr float64)
	OnShowPathsChange func(show bool)
	OnOverlayToggle   func(enabled bool)
}

// NewDashboard builds the dashboard with the given band options and initial
// filter values. overlayOn seeds the enable checkbox. tracker may be nil.
func NewDashboard(bands []string, initial overlay.FilterState, overlayOn bool, tracker *stats.Tracker) *Dashboard {
	d := &Dashboard{
		app:     tview.NewApplication(),
		tracker: tracker,
	}

	d.stats = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	d.stats.SetBorder(true)
	d.stats.SetTitle("Propagation").SetTitleAlign(tview.AlignLeft)
	d.stats.SetText("waiting for first refresh...")

	options := append([]string{"All"}, bands...)
	selected := 0
	for i, opt := range options {
		if opt == initial.Band {
			selected = i
		}
	}

	d.form = tview.NewForm().
		AddDropDown("Band", options, selected, func(option string, _ int) {
			if d.OnBandChange != nil {
				d.OnBandChange(option)
			}
		}).
		AddInputField("Window (min)", strconv.Itoa(initial.WindowMinutes), 6, acceptUint, func(text string) {
			if d.OnWindowChange == nil {
				return
			}
			if minutes, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && minutes > 0 {
				d.OnWindowChange(minutes)
			}
		}).
		AddInputField("Min SNR (dB)", strconv.FormatFloat(initial.MinSNR, 'f', -1, 64), 6, acceptFloat, func(text string) {
			if d.OnMinSNRChange == nil {
				return
			}
			if snr, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
				d.OnMinSNRChange(snr)
			}
		}).
		AddCheckbox("Show paths", initial.ShowPaths, func(checked bool) {
			if d.OnShowPathsChange != nil {
				d.OnShowPathsChange(checked)
			}
		}).
		AddCheckbox("Overlay enabled", overlayOn, func(checked bool) {
			if d.OnOverlayToggle != nil {
				d.OnOverlayToggle(checked)
			}
		})
	d.form.SetBorder(true)
	d.form.SetTitle("Filters").SetTitleAlign(tview.AlignLeft)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.stats, 0, 1, false).
		AddItem(d.form, 13, 0, true)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || (event.Key() == tcell.KeyRune && event.Rune() == 'q') {
			d.app.Stop()
			return nil
		}
		return event
	})
	d.app.SetRoot(root, true)
	return d
}

func acceptUint(text string, _ rune) bool {
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func acceptFloat(text string, _ rune) bool {
	if text == "-" || text == "" {
		return true
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

// Run starts the terminal UI and blocks until Stop or the quit key.
func (d *Dashboard) Run() error {
	return d.app.Run()
}

// Stop shuts the terminal UI down.
func (d *Dashboard) Stop() {
	d.app.Stop()
}

// ShowStats renders the feed statistics. No-op while detached.
func (d *Dashboard) ShowStats(st feed.Stats) {
	d.mu.Lock()
	if d.detached {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	lines := []string{
		fmt.Sprintf("Spots: %s  Reporters: %s  Avg SNR: %.1f dB",
			humanize.Comma(int64(st.TotalSpots)),
			humanize.Comma(int64(st.UniqueReporters)),
			st.AverageSNR),
	}
	if d.tracker != nil {
		lines = append(lines, d.tracker.SnapshotLines()...)
	}
	text := strings.Join(lines, "\n")
	d.app.QueueUpdateDraw(func() {
		d.stats.SetText(text)
	})
}

// ShowFilter re-attaches the surface and reflects externally changed filter
// values. The widgets already hold user-driven values, so only the title hint
// is refreshed here.
func (d *Dashboard) ShowFilter(fs overlay.FilterState) {
	d.mu.Lock()
	d.detached = false
	d.mu.Unlock()
	title := fmt.Sprintf("Filters [%s, %dm window]", fs.Band, fs.WindowMinutes)
	d.app.QueueUpdateDraw(func() {
		d.form.SetTitle(title)
	})
}

// Detach blanks the stats pane and suppresses updates until the next
// ShowFilter.
func (d *Dashboard) Detach() {
	d.mu.Lock()
	d.detached = true
	d.mu.Unlock()
	d.app.QueueUpdateDraw(func() {
		d.stats.SetText("overlay disabled")
	})
}
