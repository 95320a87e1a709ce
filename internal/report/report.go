// Package report renders an application as a PDF receipt.
package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/webp"

	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/storage"
)

//go:embed fonts/*.ttf
var fontFS embed.FS

// fontFamily is DejaVu Sans Condensed, embedded as a UTF-8 font so names,
// model text and the rupee sign render as written.
const fontFamily = "DejaVu"

var fontFiles = map[string]string{
	"":  "fonts/DejaVuSansCondensed.ttf",
	"B": "fonts/DejaVuSansCondensed-Bold.ttf",
	"I": "fonts/DejaVuSansCondensed-Oblique.ttf",
}

const (
	labelWidth    = 60.0
	rowHeight     = 8.0
	evidenceWidth = 180.0
	headerHeight  = 20.0
	timeLayout    = "2006-01-02 15:04:05"
)

// Opener reads stored evidence. storage.ErrNotFound marks files to skip.
type Opener interface {
	Open(path string) (io.ReadCloser, error)
}

type field struct {
	label string
	value func(app *model.Application) string
}

// fields is the fixed row order of the details table.
var fields = []field{
	{"Full Name", func(a *model.Application) string { return a.Name }},
	{"Gram Panchayat", func(a *model.Application) string { return a.GramPanchayat }},
	{"Block", func(a *model.Application) string { return a.Block }},
	{"Police Station", func(a *model.Application) string { return a.PoliceStation }},
	{"District", func(a *model.Application) string { return a.District }},
	{"State", func(a *model.Application) string { return a.State }},
	{"Latitude", func(a *model.Application) string { return a.Latitude }},
	{"Longitude", func(a *model.Application) string { return a.Longitude }},
	{"Date & Time of Submission", func(a *model.Application) string {
		if a.SubmittedAt.IsZero() {
			return ""
		}
		return a.SubmittedAt.Format(timeLayout)
	}},
	{"Application Status", func(a *model.Application) string { return a.Status }},
	{"AI Assessed Damage (%)", func(a *model.Application) string {
		if a.DamagePercentage == nil {
			return ""
		}
		return Percent(*a.DamagePercentage)
	}},
	{"AI Estimated Compensation (INR)", func(a *model.Application) string {
		if a.CompensationAmount == nil {
			return ""
		}
		return Currency(RupeePrefix, *a.CompensationAmount)
	}},
	{"AI Damage Analysis", func(a *model.Application) string { return deref(a.Reasoning) }},
	{"AI Recommendations", func(a *model.Application) string { return deref(a.Recommendations) }},
}

type Generator struct {
	opener   Opener
	compress bool
}

func NewGenerator(opener Opener) *Generator {
	return &Generator{opener: opener, compress: true}
}

// Filename is the download name of an application's receipt.
func Filename(id int64) string {
	return "application_receipt_" + strconv.FormatInt(id, 10) + ".pdf"
}

// Generate writes the receipt for app to w. Evidence that cannot be read or
// decoded is replaced by a placeholder line; only writing to w can fail.
func (g *Generator) Generate(w io.Writer, app *model.Application) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	if err := addFonts(pdf); err != nil {
		return err
	}

	pdf.SetTitle(fmt.Sprintf("Help Application %d", app.ID), true)
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 18)
		pdf.CellFormat(0, 10, "Help Application Report", "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	g.details(pdf, app)

	for _, p := range app.Evidence {
		g.evidence(pdf, p)
	}

	return pdf.Output(w)
}

func addFonts(pdf *fpdf.Fpdf) error {
	for style, name := range fontFiles {
		data, err := fontFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read font %s: %w", name, err)
		}
		pdf.AddUTF8FontFromBytes(fontFamily, style, data)
	}
	return pdf.Error()
}

// printable keeps s within what the embedded font tables index: valid UTF-8
// in the Basic Multilingual Plane. Anything else, such as emoji, becomes "?".
func printable(s string) string {
	s = strings.ToValidUTF8(s, "?")
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return '?'
		}
		return r
	}, s)
}

func (g *Generator) details(pdf *fpdf.Fpdf, app *model.Application) {
	left, top, right, bottom := pdf.GetMargins()
	pageWidth, pageHeight := pdf.GetPageSize()
	valueWidth := pageWidth - left - right - labelWidth

	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(labelWidth, 10, "Field", "1", 0, "C", false, 0, "")
	pdf.CellFormat(valueWidth, 10, "Details", "1", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", 11)
	for _, f := range fields {
		value := printable(f.value(app))
		if value == "" {
			value = Placeholder
		}

		lines := pdf.SplitText(value, valueWidth-2)
		height := rowHeight * float64(max(len(lines), 1))

		// Move rows that would fit on a fresh page; longer values flow across pages.
		if pdf.GetY()+height > pageHeight-bottom && height < pageHeight-top-bottom-headerHeight {
			pdf.AddPage()
		}
		labelHeight := min(height, pageHeight-bottom-pdf.GetY())

		pdf.CellFormat(labelWidth, labelHeight, f.label, "1", 0, "L", false, 0, "")
		pdf.MultiCell(valueWidth, rowHeight, value, "1", "L", false)
	}
}

func (g *Generator) evidence(pdf *fpdf.Fpdf, p string) {
	rc, err := g.opener.Open(p)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, 10, "Attached Evidence", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	if err == nil {
		err = g.embed(pdf, p, rc)
		_ = rc.Close()
	}

	if err != nil {
		slog.Warn("report could not embed evidence", "error", err, "path", p)
		pdf.SetFont(fontFamily, "I", 10)
		pdf.MultiCell(0, 10, printable(fmt.Sprintf("Could not load image: %s | Error: %v", path.Base(p), err)), "", "L", false)
	}
}

// embed decodes any supported format and places it as JPEG, scaled to the
// evidence width or the remaining page height, whichever is smaller.
func (g *Generator) embed(pdf *fpdf.Fpdf, p string, r io.Reader) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return err
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return errors.New("empty image")
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	y := pdf.GetY()
	available := pageHeight - bottom - y

	w := evidenceWidth
	h := w * float64(bounds.Dy()) / float64(bounds.Dx())
	if h > available {
		h = available
		w = h * float64(bounds.Dx()) / float64(bounds.Dy())
	}

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(p, opts, &buf)
	pdf.ImageOptions(p, (pageWidth-w)/2, y, w, h, false, opts, 0, "")

	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return err
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
