package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// A4 portrait in millimetres.
const (
	pageW   = 210.0
	pageH   = 297.0
	margin  = 15.0
	footerY = pageH - 12
	gutter  = 8.0
)

var (
	colorInk    = [3]int{41, 37, 36}
	colorMuted  = [3]int{120, 113, 108}
	colorFaint  = [3]int{168, 162, 158}
	colorRule   = [3]int{231, 229, 228}
	colorCanvas = [3]int{250, 250, 249}
	colorBadge  = [3]int{244, 63, 94}
)

// Renderer draws a Layout as an A4 PDF. With a font path, a UTF-8 TrueType
// font is embedded so non-latin names render; otherwise core Helvetica is used.
type Renderer struct {
	fontPath string
}

// NewRenderer creates a renderer. fontPath may be empty.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

type doc struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
}

func (d *doc) font(style string, size float64) { d.pdf.SetFont(d.family, style, size) }

func (d *doc) color(c [3]int) { d.pdf.SetTextColor(c[0], c[1], c[2]) }

func (d *doc) text(x, y, w, h float64, s, align string) {
	d.pdf.SetXY(x, y)
	d.pdf.CellFormat(w, h, d.tr(s), "", 0, align, false, 0, "")
}

func (r *Renderer) newDoc(l Layout) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(l.GeneratedAt)
	pdf.SetTitle(l.Title, true)
	pdf.SetCreator("bestshot", false)

	d := &doc{pdf: pdf, family: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if r.fontPath != "" {
		pdf.AddUTF8Font("body", "", r.fontPath)
		pdf.AddUTF8Font("body", "B", r.fontPath)
		d.family = "body"
		d.tr = func(s string) string { return s }
	}
	return d
}

// Render writes the PDF to w and returns the ids of photos drawn as placeholders.
func (r *Renderer) Render(w io.Writer, l Layout, images map[int64]Image) ([]int64, error) {
	d := r.newDoc(l)
	d.rosterPage(l)

	var missing []int64
	for _, page := range l.PhotoPages {
		missing = append(missing, d.photoPage(l, page, images)...)
	}
	if err := d.pdf.Error(); err != nil {
		return missing, fmt.Errorf("compose pdf: %w", err)
	}
	if err := d.pdf.Output(w); err != nil {
		return missing, fmt.Errorf("write pdf: %w", err)
	}
	return missing, nil
}

func (d *doc) footer(l Layout, page int) {
	d.font("", 8)
	d.color(colorFaint)
	d.text(margin, footerY, pageW-2*margin, 5, l.Footer(page), "C")
}

func (d *doc) rosterPage(l Layout) {
	pdf := d.pdf
	pdf.AddPage()

	d.font("B", 28)
	d.color(colorInk)
	d.text(margin, 22, pageW-2*margin, 12, l.Title, "C")
	d.font("", 12)
	d.color(colorMuted)
	d.text(margin, 36, pageW-2*margin, 7, l.Subtitle, "C")
	d.font("", 9)
	d.color(colorFaint)
	d.text(margin, 44, pageW-2*margin, 5, l.GeneratedAt.Format("2006-01-02"), "C")
	pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	pdf.Line(margin, 54, pageW-margin, 54)

	d.font("B", 16)
	d.color(colorInk)
	d.text(margin, 60, pageW-2*margin, 9, "Participants", "L")

	cols := []float64{80, 40, pageW - 2*margin - 120}
	y := 74.0
	d.font("B", 10)
	for i, h := range []string{"Name", "Status", "Completed at"} {
		d.text(margin+sum(cols[:i]), y, cols[i], 7, h, "L")
	}
	y += 8
	pdf.Line(margin, y, pageW-margin, y)

	rowH := 8.0
	if n := len(l.Roster); n > 0 {
		if fit := (footerY - 4 - y) / float64(n); fit < rowH {
			rowH = fit
		}
	}
	fontSize := 10.0
	if rowH < 6 {
		fontSize = rowH * 1.6
	}
	d.font("", fontSize)
	for _, row := range l.Roster {
		status, at := "In progress", "-"
		if row.Completed {
			status = "Completed"
		}
		if row.CompletedAt != nil {
			at = row.CompletedAt.Local().Format("2006-01-02 15:04")
		}
		d.color(colorInk)
		d.text(margin, y+0.5, cols[0], rowH-1, row.Name, "L")
		d.text(margin+cols[0], y+0.5, cols[1], rowH-1, status, "L")
		d.color(colorMuted)
		d.text(margin+cols[0]+cols[1], y+0.5, cols[2], rowH-1, at, "L")
		y += rowH
	}
	d.footer(l, 1)
}

func (d *doc) photoPage(l Layout, page PhotoPage, images map[int64]Image) []int64 {
	pdf := d.pdf
	pdf.AddPage()

	d.font("B", 18)
	d.color(colorInk)
	d.text(margin, margin, pageW-2*margin, 10, page.Heading, "L")

	cardW := (pageW - 2*margin - gutter) / 2
	top := margin + 16
	cardH := (footerY - 4 - top - gutter) / 2
	boxH := cardH - 22

	var missing []int64
	for i, photo := range page.Photos {
		x := margin + float64(i%2)*(cardW+gutter)
		y := top + float64(i/2)*(cardH+gutter)

		pdf.SetFillColor(colorCanvas[0], colorCanvas[1], colorCanvas[2])
		pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
		pdf.Rect(x, y, cardW, boxH, "FD")

		if !d.image(photo.ID, images[photo.ID], x, y, cardW, boxH) {
			missing = append(missing, photo.ID)
			d.font("", 10)
			d.color(colorFaint)
			d.text(x, y+boxH/2-3, cardW, 6, "Image unavailable", "C")
		}

		pdf.SetFillColor(colorBadge[0], colorBadge[1], colorBadge[2])
		pdf.Rect(x, y, 12, 12, "F")
		d.font("B", 14)
		pdf.SetTextColor(255, 255, 255)
		d.text(x, y, 12, 12, fmt.Sprintf("%d", photo.Rank), "C")

		d.font("B", 20)
		d.color([3]int{0, 0, 0})
		d.text(x, y+boxH+2, cardW, 10, fmt.Sprintf("%d votes", photo.Count), "C")
		d.font("", 12)
		d.color(colorMuted)
		d.text(x, y+boxH+12, cardW, 7, fmt.Sprintf("Photo #%d", photo.ID), "C")
	}
	d.footer(l, page.Number)
	return missing
}

// image draws img contained within the box and reports whether it was drawn.
func (d *doc) image(photoID int64, img Image, x, y, w, h float64) bool {
	if img.Err != nil || len(img.Data) == 0 {
		return false
	}
	pdf := d.pdf
	name := fmt.Sprintf("photo-%d", photoID)
	opts := fpdf.ImageOptions{ImageType: img.Type}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if pdf.Err() || info == nil || info.Width() <= 0 || info.Height() <= 0 {
		pdf.ClearError()
		return false
	}
	const pad = 2.0
	bw, bh := w-2*pad, h-2*pad
	iw, ih := bw, bw*info.Height()/info.Width()
	if ih > bh {
		ih = bh
		iw = bh * info.Width() / info.Height()
	}
	pdf.ImageOptions(name, x+pad+(bw-iw)/2, y+pad+(bh-ih)/2, iw, ih, false, opts, 0, "")
	return true
}

func sum(v []float64) float64 {
	var t float64
	for _, x := range v {
		t += x
	}
	return t
}
