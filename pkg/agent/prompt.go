package agent

import "fmt"

// DefaultSystemPrompt используется, когда app.system_prompt не задан.
const DefaultSystemPrompt = "You are a helpful assistant. " +
	"Use the available tools to look up facts, current weather and the contents of attached files. " +
	"Answer concisely and say so when a tool could not provide the information."

// BuildPrompt формирует пользовательское сообщение для модели.
// ingestion: зарегистрирован ли pdf_ingestion (иначе PDF читает pdf_extractor).
func BuildPrompt(q Query, ingestion bool) string {
	head := fmt.Sprintf("Please answer this question: %s\n\n", q.Text)

	if !q.HasFile() {
		return head +
			"If it's a weather question, use the weather tool.\n" +
			"If it's a general question, use the search tool."
	}

	switch q.FileKind {
	case FileImage:
		return head + fmt.Sprintf(
			"I've also provided an image at %s. If the question is about the image, "+
				"use the ocr tool to extract text from it and incorporate that information in your answer.",
			q.FilePath)

	case FilePDF:
		if ingestion {
			return head + fmt.Sprintf(
				"I've also provided a PDF file at %s. If the question is about the PDF, "+
					"use the pdf_ingestion tool to extract structured content from it and incorporate that information in your answer.\n\n"+
					"The pdf_ingestion tool will extract:\n"+
					"- Text content\n"+
					"- Titles and headings\n"+
					"- Tables\n"+
					"- Images\n"+
					"- Page breaks\n\n"+
					"Use this structured information to provide a comprehensive answer.",
				q.FilePath)
		}
		return head + fmt.Sprintf(
			"I've also provided a PDF file at %s. If the question is about the PDF, "+
				"use the pdf_extractor tool to extract text and images from it and incorporate that information in your answer.",
			q.FilePath)

	default:
		return head + fmt.Sprintf(
			"I've also provided a file at %s of type %s. "+
				"If the question is about the file, use the appropriate tool to extract information from it.",
			q.FilePath, q.FileKind)
	}
}
