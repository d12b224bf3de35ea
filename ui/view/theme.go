package view

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// palette holds the colors of one preview theme.
type palette struct {
	AppBg   string
	Surface string
	Primary string
	Danger  string
	Text    string
}

var (
	lightPalette = palette{
		AppBg:   "#f7f9fb",
		Surface: "#ffffff",
		Primary: "#2563eb",
		Danger:  "#dc2626",
		Text:    "#1e293b",
	}
	darkPalette = palette{
		AppBg:   "#0f172a",
		Surface: "#1e293b",
		Primary: "#3b82f6",
		Danger:  "#ef4444",
		Text:    "#f1f5f9",
	}
)

// style names used with Style("primary.TButton") etc.
const (
	stylePrimaryButton = "primary.TButton"
	styleCaptionLabel  = "caption.TLabel"
	styleFailureLabel  = "failure.TLabel"
)

// darkMode selects the palette applied by the next preview.
var darkMode bool

// SetDark chooses the dark or light palette for previews.
func SetDark(dark bool) { darkMode = dark }

func currentPalette() palette {
	if darkMode {
		return darkPalette
	}
	return lightPalette
}

func applyStyles() {
	p := currentPalette()
	_ = ActivateTheme("azure light") // baseline metrics
	App.Configure(Background(p.AppBg))

	StyleConfigure(stylePrimaryButton,
		Background(p.Primary),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(styleCaptionLabel,
		Foreground(p.Text),
		Background(p.Surface),
		Padding("2p 1p"),
	)
	StyleConfigure(styleFailureLabel,
		Foreground("white"),
		Background(p.Danger),
		Padding("2p 1p"),
	)
}
