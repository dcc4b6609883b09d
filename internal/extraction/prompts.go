package extraction

// Vision instructions for the rendered-image strategies.
const (
	InstructionPrinted = `Transcribe all text in this scanned page exactly as it appears.
Keep the original reading order, line breaks and paragraph breaks.
Do not translate, summarize, correct or comment on the content.
Include numbers, dates, names, stamps and marginal notes.
If the page contains no legible text, answer with an empty response.`

	InstructionMixed = `This page is a legal or notarial document that may mix printed text,
handwriting, stamps, seals and signatures.
Transcribe every legible word exactly as written, in reading order, keeping line breaks.
Transcribe handwritten passages and the text of stamps and seals as well.
Mark words you cannot read as [ilegible]. Do not translate, summarize or add commentary.
If the page contains no legible text, answer with an empty response.`
)

// DefaultRenderConfigA is tuned for printed pages.
func DefaultRenderConfigA(dpi int) RenderConfig {
	return RenderConfig{
		Name:        "A",
		DPI:         dpi,
		Format:      "png",
		Grayscale:   true,
		Instruction: InstructionPrinted,
	}
}

// DefaultRenderConfigB is tuned for mixed and handwritten pages.
func DefaultRenderConfigB(dpi int) RenderConfig {
	return RenderConfig{
		Name:        "B",
		DPI:         dpi,
		Format:      "jpeg",
		JPEGQuality: 95,
		Instruction: InstructionMixed,
	}
}
