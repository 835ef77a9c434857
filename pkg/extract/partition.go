package extract

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ilkoid/poncho-assist/pkg/utils"
	"github.com/ledongthuc/pdf"
)

// ElementKind: тип структурного элемента документа.
type ElementKind string

const (
	KindText  ElementKind = "text"
	KindTitle ElementKind = "title"
	KindTable ElementKind = "table"
	KindImage ElementKind = "image"
)

// Пороги разметки.
const (
	titleSizeRatio  = 1.2 // title: шрифт крупнее медианы страницы хотя бы в 1.2 раза
	titleMaxRunes   = 120 // длинная строка крупным шрифтом это не заголовок
	tableMinCells   = 3   // строка таблицы: минимум 3 ячейки
	tableMinRows    = 2   // таблица: минимум 2 такие строки подряд
	cellGapFactor   = 1.5 // разрыв больше 1.5 кегля делит строку на ячейки
	spaceGapFactor  = 0.2
	paragraphFactor = 1.8 // разрыв между строками больше 1.8 кегля начинает новый абзац
)

// Element: один структурный элемент.
type Element struct {
	Index int         `json:"index"`
	Kind  ElementKind `json:"kind"`
	Text  string      `json:"text,omitempty"` // для table: строки TSV
	Page  int         `json:"page_number"`
	Path  string      `json:"path,omitempty"` // для image: сохранённый файл
}

// PageBreak отмечает первый элемент страницы.
type PageBreak struct {
	Index int `json:"index"`
	Page  int `json:"page_number"`
}

// Document: результат Partition.
type Document struct {
	FilePath   string      `json:"file_path"`
	PageCount  int         `json:"page_count"`
	Elements   []Element   `json:"elements"`
	PageBreaks []PageBreak `json:"page_breaks"`
}

// Texts возвращает текстовые элементы. Заголовки тоже текст.
func (d *Document) Texts() []Element {
	return d.filter(func(e Element) bool { return e.Kind == KindText || e.Kind == KindTitle })
}

// Titles возвращает заголовки.
func (d *Document) Titles() []Element { return d.ofKind(KindTitle) }

// Tables возвращает таблицы.
func (d *Document) Tables() []Element { return d.ofKind(KindTable) }

// Images возвращает картинки.
func (d *Document) Images() []Element { return d.ofKind(KindImage) }

func (d *Document) ofKind(k ElementKind) []Element {
	return d.filter(func(e Element) bool { return e.Kind == k })
}

func (d *Document) filter(keep func(Element) bool) []Element {
	var out []Element
	for _, e := range d.Elements {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (d *Document) add(kind ElementKind, page int, text, path string) {
	d.Elements = append(d.Elements, Element{
		Index: len(d.Elements),
		Kind:  kind,
		Text:  text,
		Page:  page,
		Path:  path,
	})
}

// Partition размечает PDF на элементы: заголовки, абзацы, таблицы,
// картинки и разрывы страниц.
//
// При частичном сбое (битая страница, ошибка выгрузки картинок)
// возвращает размеченную часть вместе с *PartialError.
func Partition(path string, opts Options) (*Document, error) {
	utils.Info("Ingesting PDF", "path", path, "extract_images", opts.ExtractImages)

	if err := checkPDF(path); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc := &Document{FilePath: path, PageCount: r.NumPage()}
	var errs []error

	for n := 1; n <= doc.PageCount; n++ {
		lines, err := pageLines(r.Page(n))
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", n, err))
			continue
		}
		doc.PageBreaks = append(doc.PageBreaks, PageBreak{Index: len(doc.Elements), Page: n})
		for _, b := range classifyLines(lines) {
			doc.add(b.kind, n, b.text, "")
		}
	}

	if opts.ExtractImages {
		dir, err := opts.outputDir(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, doc.addImages(path, dir)...)
		}
	}

	utils.Info("Successfully ingested PDF",
		"path", path,
		"elements", len(doc.Elements),
		"pages", doc.PageCount,
		"errors", len(errs))
	return doc, partial(path, errs)
}

// addImages выгружает картинки и добавляет их элементами image_{index}.{ext},
// где index: номер элемента в документе.
func (d *Document) addImages(pdfPath, dir string) []error {
	next := len(d.Elements)
	var pages []int
	namer := func(page, _, index int, ext string) string {
		pages = append(pages, page)
		return fmt.Sprintf("image_%d.%s", next+index, ext)
	}

	paths, err := saveImages(pdfPath, dir, namer)
	for i, p := range paths {
		d.add(KindImage, pages[i], "", p)
	}
	if err != nil {
		return []error{err}
	}
	return nil
}

// cell: фрагмент строки между широкими разрывами.
type cell struct {
	text   string
	x0, x1 float64
}

// line: строка страницы, собранная из глифов с одинаковой Y.
type line struct {
	y     float64
	size  float64
	cells []cell
}

func (l line) text() string {
	parts := make([]string, len(l.cells))
	for i, c := range l.cells {
		parts[i] = c.text
	}
	return strings.Join(parts, " ")
}

// pageLines собирает строки страницы сверху вниз.
func pageLines(p pdf.Page) (lines []line, err error) {
	if p.V.IsNull() {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read content: %v", r)
		}
	}()
	return groupLines(p.Content().Text), nil
}

// groupLines группирует глифы в строки по Y, а внутри строки: в ячейки по X.
func groupLines(glyphs []pdf.Text) []line {
	gs := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			gs = append(gs, g)
		}
	}
	// PDF считает Y снизу, поэтому верх страницы это большие Y
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Y > gs[j].Y })

	var lines []line
	var cur []pdf.Text
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, buildLine(cur))
			cur = nil
		}
	}
	for _, g := range gs {
		if len(cur) > 0 && math.Abs(cur[0].Y-g.Y) > yTolerance(cur[0], g) {
			flush()
		}
		cur = append(cur, g)
	}
	flush()
	return lines
}

func yTolerance(a, b pdf.Text) float64 {
	return math.Max(math.Max(a.FontSize, b.FontSize)*0.4, 1)
}

func buildLine(glyphs []pdf.Text) line {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	l := line{y: glyphs[0].Y}
	var sb strings.Builder
	var c cell
	prevEnd := math.Inf(-1)

	for i, g := range glyphs {
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		l.size = math.Max(l.size, g.FontSize)

		gap := g.X - prevEnd
		switch {
		case i == 0:
			c.x0 = g.X
		case gap > size*cellGapFactor:
			c.text = strings.TrimSpace(sb.String())
			l.cells = append(l.cells, c)
			sb.Reset()
			c = cell{x0: g.X}
		case gap > size*spaceGapFactor && !strings.HasPrefix(g.S, " ") && !strings.HasSuffix(sb.String(), " "):
			sb.WriteString(" ")
		}
		sb.WriteString(g.S)

		w := g.W
		if w <= 0 {
			w = size * 0.5 * float64(utf8.RuneCountInString(g.S))
		}
		prevEnd = g.X + w
		c.x1 = prevEnd
	}
	c.text = strings.TrimSpace(sb.String())
	l.cells = append(l.cells, c)

	// Пустые ячейки (одни пробелы) не считаются
	cells := l.cells[:0]
	for _, c := range l.cells {
		if c.text != "" {
			cells = append(cells, c)
		}
	}
	l.cells = cells
	return l
}

// block: размеченный фрагмент страницы.
type block struct {
	kind ElementKind
	text string
}

// classifyLines превращает строки страницы в элементы.
func classifyLines(lines []line) []block {
	median := medianSize(lines)

	var blocks []block
	var para []string
	var lastY, lastSize float64
	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{kind: KindText, text: strings.Join(para, " ")})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if len(l.cells) == 0 {
			continue
		}

		if n := tableRun(lines[i:]); n >= tableMinRows {
			flushPara()
			rows := make([]string, n)
			for j := 0; j < n; j++ {
				cells := lines[i+j].cells
				vals := make([]string, len(cells))
				for k, c := range cells {
					vals[k] = c.text
				}
				rows[j] = strings.Join(vals, "\t")
			}
			blocks = append(blocks, block{kind: KindTable, text: strings.Join(rows, "\n")})
			i += n - 1
			lastSize = 0
			continue
		}

		text := l.text()
		if isTitle(l, text, median) {
			flushPara()
			blocks = append(blocks, block{kind: KindTitle, text: text})
			lastSize = 0
			continue
		}

		if len(para) > 0 && lastSize > 0 && lastY-l.y > lastSize*paragraphFactor {
			flushPara()
		}
		para = append(para, text)
		lastY, lastSize = l.y, math.Max(l.size, 1)
	}
	flushPara()
	return blocks
}

// tableRun считает подряд идущие строки с минимум tableMinCells ячейками.
func tableRun(lines []line) int {
	n := 0
	for _, l := range lines {
		if len(l.cells) < tableMinCells {
			break
		}
		n++
	}
	return n
}

func isTitle(l line, text string, median float64) bool {
	if median <= 0 || l.size < median*titleSizeRatio {
		return false
	}
	return utf8.RuneCountInString(text) <= titleMaxRunes
}

// medianSize: медианный кегль строк страницы.
func medianSize(lines []line) float64 {
	sizes := make([]float64, 0, len(lines))
	for _, l := range lines {
		if l.size > 0 && len(l.cells) > 0 {
			sizes = append(sizes, l.size)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}
