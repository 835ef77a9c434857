package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		line string
		want Query
	}{
		{"weather in Paris?", Query{Text: "weather in Paris?"}},
		{"  what does it say? @scan.PNG ", Query{Text: "what does it say?", FilePath: "scan.PNG", FileKind: FileImage}},
		{"summarize @docs/report.pdf", Query{Text: "summarize", FilePath: "docs/report.pdf", FileKind: FilePDF}},
		{"read @s3://bucket/invoice.pdf", Query{Text: "read", FilePath: "s3://bucket/invoice.pdf", FileKind: FilePDF}},
		{"what is in @notes.docx", Query{Text: "what is in", FilePath: "notes.docx", FileKind: FileOther}},
		{"@photo.webp", Query{FilePath: "photo.webp", FileKind: FileImage}},
		{"mail me @ home", Query{Text: "mail me @ home"}},
		{"email @ alone @", Query{Text: "email @ alone @"}},
		{"", Query{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.line))
		})
	}
}

func TestKindOf(t *testing.T) {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp", ".tiff"} {
		assert.Equal(t, FileImage, KindOf("file"+ext), ext)
	}
	assert.Equal(t, FilePDF, KindOf("a.PDF"))
	assert.Equal(t, FileOther, KindOf("a.txt"))
	assert.Equal(t, FileOther, KindOf("noext"))
}

func TestBuildPrompt(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		p := BuildPrompt(ParseQuery("capital of France?"), true)
		assert.Contains(t, p, "Please answer this question: capital of France?")
		assert.Contains(t, p, "use the weather tool")
		assert.Contains(t, p, "use the search tool")
	})

	t.Run("image", func(t *testing.T) {
		p := BuildPrompt(ParseQuery("read it @scan.png"), true)
		assert.Contains(t, p, "image at scan.png")
		assert.Contains(t, p, "ocr tool")
	})

	t.Run("pdf with ingestion", func(t *testing.T) {
		p := BuildPrompt(ParseQuery("summary @r.pdf"), true)
		assert.Contains(t, p, "pdf_ingestion")
		assert.Contains(t, p, "- Tables")
		assert.NotContains(t, p, "pdf_extractor")
	})

	t.Run("pdf without ingestion", func(t *testing.T) {
		p := BuildPrompt(ParseQuery("summary @r.pdf"), false)
		assert.Contains(t, p, "pdf_extractor")
		assert.NotContains(t, p, "pdf_ingestion")
	})

	t.Run("other", func(t *testing.T) {
		p := BuildPrompt(ParseQuery("what @notes.txt"), true)
		assert.Contains(t, p, "file at notes.txt of type other")
		assert.Contains(t, p, "appropriate tool")
	})
}
