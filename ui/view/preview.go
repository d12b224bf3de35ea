package view

import (
	"fmt"
	"image"

	"github.com/soocke/wincap/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	// Max preview dimensions; larger captures are scaled down proportionally.
	maxPreviewW = 960
	maxPreviewH = 640
)

// RefreshFunc recaptures the window and returns the new frame and caption.
type RefreshFunc func() (image.Image, string, error)

// Preview displays a captured frame with a caption line. It owns the Tk photo
// currently shown and deletes it before replacing it.
type Preview struct {
	imageLabel *LabelWidget
	infoLabel  *TLabelWidget
	photo      *Img
	refresh    RefreshFunc
}

// ShowPreview opens the preview window and blocks until it is closed. When
// refresh is non-nil a Recapture button is offered.
func ShowPreview(title string, img image.Image, caption string, refresh RefreshFunc) {
	App.WmTitle(title)
	applyStyles()
	p := &Preview{refresh: refresh}
	p.build()
	p.Update(img, caption)
	WmProtocol(App, "WM_DELETE_WINDOW", p.close)
	App.Wait()
}

func (p *Preview) build() {
	p.imageLabel = Label(Borderwidth(1), Relief("sunken"))
	Grid(p.imageLabel, Row(0), Column(0), Columnspan(2), Sticky("nswe"), Padx("0.4m"), Pady("0.4m"))
	p.infoLabel = TLabel(Txt(""), Anchor("w"), Style(styleCaptionLabel))
	Grid(p.infoLabel, Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	col := 0
	if p.refresh != nil {
		Grid(TButton(Txt("Recapture"), Style(stylePrimaryButton), Command(p.recapture)), Row(2), Column(col), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
		col++
	}
	Grid(TButton(Txt("Close"), Command(p.close)), Row(2), Column(col), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(App, "<Escape>", Command(p.close))
}

// Update replaces the shown frame and caption.
func (p *Preview) Update(img image.Image, caption string) {
	if img != nil {
		scaled := images.ScaleToFit(img, maxPreviewW, maxPreviewH)
		if p.photo != nil {
			p.photo.Delete()
		}
		p.photo = NewPhoto(Data(images.EncodePNG(scaled)))
		p.imageLabel.Configure(Image(p.photo))
	}
	p.infoLabel.Configure(Txt(caption), Style(styleCaptionLabel))
}

func (p *Preview) recapture() {
	img, caption, err := p.refresh()
	if err != nil {
		p.infoLabel.Configure(Txt(fmt.Sprintf("Recapture failed: %v", err)), Style(styleFailureLabel))
		return
	}
	p.Update(img, caption)
}

func (p *Preview) close() {
	if p.photo != nil {
		p.photo.Delete()
		p.photo = nil
	}
	Destroy(App)
}
