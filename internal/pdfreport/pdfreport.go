// Package pdfreport compiles the human-readable markdown artifacts and the
// generated scene images into a single PDF. Each text artifact is
// rasterized with the standard bitmap font onto a blank page, imported as
// a one-page PDF via pdfcpu, and every page (text and scene image alike)
// is merged in chapter/scene order. This is a plain-text rendering, not a
// markdown re-flow.
package pdfreport

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/render"
	"github.com/tribixbite/imaginize/internal/state"
)

const (
	reportFileName = "Report.pdf"
	pageWidth      = 1240
	pageHeight     = 1754
	marginX        = 60
	marginY        = 60
	lineHeight     = 18
	charsPerLine   = 100
)

// Compile reads Contents/Chapters/Elements content plus the Illustrate
// phase's chapter shards from dir, and writes dir/Report.pdf. Returns the
// written path. Illustrate must have produced at least one scene image or
// a text section for there to be anything to compile.
func Compile(dir string, book *bookparse.Book) (string, error) {
	shards, err := state.ListChapterShards(dir, state.PhaseIllustrate)
	if err != nil {
		return "", err
	}
	byChapter := make(map[int]*state.ChapterShard, len(shards))
	for _, s := range shards {
		byChapter[s.ChapterIndex] = s
	}

	cat, err := state.LoadElements(dir)
	if err != nil {
		return "", err
	}

	work, err := os.MkdirTemp(dir, ".pdfreport-*")
	if err != nil {
		return "", ierrors.New(ierrors.KindTransientIO, "pdfreport.Compile", err).WithPath(dir)
	}
	defer os.RemoveAll(work)

	var pagePDFs []string

	textSections := []struct {
		title string
		body  string
	}{
		{"Contents", render.Contents(book)},
		{"Chapters", render.Chapters(book, byChapter)},
		{"Elements", cat.AsMarkdown()},
	}
	for _, section := range textSections {
		pdfs, err := renderTextPDFs(work, section.title, section.body)
		if err != nil {
			return "", err
		}
		pagePDFs = append(pagePDFs, pdfs...)
	}

	for _, ch := range book.StoryChapters() {
		shard := byChapter[ch.Index]
		if shard == nil {
			continue
		}
		for _, scene := range shard.SceneConcepts {
			if scene.GeneratedImagePath == "" {
				continue
			}
			imgPath := filepath.Join(dir, scene.GeneratedImagePath)
			pdfPath := filepath.Join(work, fmt.Sprintf("scene_%d_%d.pdf", ch.Index, scene.Index))
			if err := importImagePage(imgPath, pdfPath); err != nil {
				return "", err
			}
			pagePDFs = append(pagePDFs, pdfPath)
		}
	}

	if len(pagePDFs) == 0 {
		return "", ierrors.Newf(ierrors.KindMissingPrerequisite, "pdfreport.Compile", "no content available to compile; run analyze/extract/illustrate first")
	}

	outPath := filepath.Join(dir, reportFileName)
	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(pagePDFs, outPath, false, conf); err != nil {
		return "", ierrors.New(ierrors.KindTransientIO, "pdfreport.Compile", err).WithPath(outPath)
	}
	return outPath, nil
}

// renderTextPDFs paginates body under a title header, rasterizes each page
// to a PNG, and imports it as a one-page PDF.
func renderTextPDFs(workDir, title, body string) ([]string, error) {
	pages := paginate(title, body)
	out := make([]string, 0, len(pages))
	for i, lines := range pages {
		slug := strings.ToLower(title)
		imgPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.png", slug, i))
		if err := rasterizePage(imgPath, lines); err != nil {
			return nil, err
		}
		pdfPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.pdf", slug, i))
		if err := importImagePage(imgPath, pdfPath); err != nil {
			return nil, err
		}
		out = append(out, pdfPath)
	}
	return out, nil
}

// paginate wraps body's lines into fixed-size pages with a repeated
// "title (page N)" heading. Markdown is taken as plain wrapped text, not
// re-flowed per spec (rendering fidelity is out of scope).
func paginate(title, body string) [][]string {
	linesPerPage := (pageHeight-2*marginY)/lineHeight - 2
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	var wrapped []string
	for _, raw := range strings.Split(body, "\n") {
		wrapped = append(wrapped, wrapLine(raw, charsPerLine)...)
	}

	var pages [][]string
	for i := 0; i < len(wrapped); i += linesPerPage {
		end := i + linesPerPage
		if end > len(wrapped) {
			end = len(wrapped)
		}
		header := fmt.Sprintf("%s (page %d)", title, len(pages)+1)
		pages = append(pages, append([]string{header, ""}, wrapped[i:end]...))
	}
	if len(pages) == 0 {
		pages = append(pages, []string{fmt.Sprintf("%s (page 1)", title), "", "(empty)"})
	}
	return pages
}

func wrapLine(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}
	var out []string
	for len(s) > width {
		cut := width
		if idx := strings.LastIndex(s[:width], " "); idx > width/2 {
			cut = idx
		}
		out = append(out, s[:cut])
		s = strings.TrimLeft(s[cut:], " ")
	}
	out = append(out, s)
	return out
}

// rasterizePage draws lines onto a white canvas with the standard 7x13
// bitmap font and saves the result as a PNG at path.
func rasterizePage(path string, lines []string) error {
	img := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	y := marginY + face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		drawer.Dot = fixed.Point26_6{X: fixed.I(marginX), Y: fixed.I(y)}
		drawer.DrawString(line)
		y += lineHeight
		if y > pageHeight-marginY {
			break
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "pdfreport.rasterizePage", err).WithPath(path)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return ierrors.New(ierrors.KindTransientIO, "pdfreport.rasterizePage", err).WithPath(path)
	}
	return nil
}

// importImagePage converts a single PNG into a one-page PDF via pdfcpu's
// image import.
func importImagePage(imgPath, pdfPath string) error {
	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile([]string{imgPath}, pdfPath, imp, conf); err != nil {
		return ierrors.New(ierrors.KindTransientIO, "pdfreport.importImagePage", err).WithPath(imgPath)
	}
	return nil
}
