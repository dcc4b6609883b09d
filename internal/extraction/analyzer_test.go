package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notarialProse = strings.Join([]string{
	"En Santiago de Chile, a diecinueve de diciembre de mil novecientos cuarenta y siete,",
	"ante mí, el notario público de esta ciudad, comparecen don José González Pérez,",
	"chileno, casado, agricultor, y doña María Soto Ramírez, chilena, soltera, ambos",
	"mayores de edad, quienes acreditan su identidad con las cédulas citadas y exponen",
	"que por el presente instrumento vienen en celebrar un contrato de compraventa del",
	"inmueble ubicado en calle Los Leones número 1234, inscrito a fojas 512 en el",
	"Registro de Propiedad del conservador de bienes raíces de Santiago del año 1940.",
	"El precio de la venta es la suma de cincuenta mil pesos, pagados al contado.",
}, "\n")

func TestMeaningfulRatio(t *testing.T) {
	assert.Equal(t, 1.0, meaningfulRatio("uno dos\ntres"))
	assert.InDelta(t, 6.0/9.0, meaningfulRatio("uno    dos"), 1e-9)
	assert.Zero(t, meaningfulRatio("   "))
}

func TestClassify(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		chars := Classify("  \n ", 1)
		assert.False(t, chars.HasText)
		assert.Equal(t, QualityLow, chars.EstimatedQuality)
		assert.Equal(t, TypeScanned, chars.DocumentType)
	})

	t.Run("high quality printed", func(t *testing.T) {
		chars := Classify(strings.Repeat("Compraventa-inmueble ", 40), 1)
		assert.True(t, chars.HasText)
		assert.Equal(t, QualityHigh, chars.EstimatedQuality)
		assert.Equal(t, TypePrinted, chars.DocumentType)
		assert.False(t, chars.HasMixedContent)
	})

	t.Run("natural prose is printed", func(t *testing.T) {
		require.Greater(t, utf8.RuneCountInString(notarialProse), 500)

		chars := Classify(notarialProse, 1)
		assert.Equal(t, QualityHigh, chars.EstimatedQuality)
		assert.Equal(t, TypePrinted, chars.DocumentType)
		assert.False(t, chars.HasSeals)
		assert.False(t, chars.HasMixedContent)
		assert.False(t, chars.HasHandwriting)
		assert.Equal(t, []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA}, SelectStrategies(chars))
	})

	t.Run("short prose is not mixed", func(t *testing.T) {
		chars := Classify(strings.Repeat("El comprador declara conocer el inmueble. ", 5), 1)
		assert.Equal(t, QualityMedium, chars.EstimatedQuality)
		assert.Equal(t, TypePrinted, chars.DocumentType)
		assert.False(t, chars.HasMixedContent)
	})

	t.Run("medium quality with layout gaps is mixed", func(t *testing.T) {
		text := strings.Repeat("Inscripción de dominio      fojas 4512 número 3301\n", 3) +
			"El comprador declara conocer el inmueble."
		chars := Classify(text, 1)
		assert.Equal(t, QualityMedium, chars.EstimatedQuality)
		assert.Equal(t, TypeMixed, chars.DocumentType)
		assert.True(t, chars.HasMixedContent)
	})

	t.Run("seals on a sparse page", func(t *testing.T) {
		chars := Classify("CERTIFICO: que la presente copia es fiel a su original. Notario Público.", 1)
		assert.True(t, chars.HasSeals)
		assert.True(t, chars.HasMixedContent)
		assert.Equal(t, QualityLow, chars.EstimatedQuality)
	})

	t.Run("stamp on its own line", func(t *testing.T) {
		chars := Classify(notarialProse+"\nNotario Público\n", 1)
		assert.True(t, chars.HasSeals)
		assert.True(t, chars.HasMixedContent)
	})

	t.Run("form fields", func(t *testing.T) {
		chars := Classify("Nombre: ________\nRUT: ________", 1)
		assert.True(t, chars.HasFormFields)
		assert.False(t, chars.HasHandwriting)
		assert.False(t, chars.HasMixedContent)
	})

	t.Run("handwriting", func(t *testing.T) {
		text := "Recibí conforme    la suma\nde\nJuan     Pérez\nsr\npago    total de\nok\n"
		chars := Classify(text, 1)
		assert.True(t, chars.HasHandwriting)
		assert.Equal(t, TypeHandwritten, chars.DocumentType)
	})
}

func TestAnalyzeImageHasNoText(t *testing.T) {
	tl := &fakeTextLayer{text: "ignored"}
	doc := NewDocument("scan.png", "", []byte("\x89PNG\r\n\x1a\nrest"))

	chars := NewAnalyzer(tl).Analyze(context.Background(), doc)

	assert.False(t, chars.HasText)
	assert.Zero(t, tl.calls.Load())
}

func TestAnalyzeUnreadableTextLayerUsesDefault(t *testing.T) {
	tl := &fakeTextLayer{err: errors.New("xref table broken")}
	doc := NewDocument("broken.pdf", "", pdfBytes)

	chars := NewAnalyzer(tl).Analyze(context.Background(), doc)

	assert.Equal(t, DefaultCharacteristics(), chars)
	assert.Equal(t, TypeScanned, chars.DocumentType)
	assert.Equal(t, QualityMedium, chars.EstimatedQuality)
}

type panickingTextLayer struct{}

func (panickingTextLayer) Extract(context.Context, []byte) (string, int, error) {
	panic("malformed stream")
}

func (panickingTextLayer) Name() string { return "panicking" }

func TestAnalyzeRecoversFromPanics(t *testing.T) {
	doc := NewDocument("evil.pdf", "", pdfBytes)

	chars := NewAnalyzer(panickingTextLayer{}).Analyze(context.Background(), doc)

	assert.Equal(t, DefaultCharacteristics(), chars)
}

func TestAnalyzeCachesTextLayer(t *testing.T) {
	tl := &fakeTextLayer{text: strings.Repeat("texto legible ", 10), pages: 2}
	doc := NewDocument("a.pdf", "", pdfBytes)
	a := NewAnalyzer(tl)

	a.Analyze(context.Background(), doc)
	_, pages, err := doc.TextLayer(context.Background(), tl)

	assert.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, int32(1), tl.calls.Load())
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, MIMEPDF, DetectMIMEType(pdfBytes))
	assert.Equal(t, MIMEPNG, DetectMIMEType([]byte("\x89PNG\r\n\x1a\n....")))
	assert.Equal(t, MIMEJPEG, DetectMIMEType([]byte("\xff\xd8\xff\xe0....")))
	assert.Equal(t, MIMETIFF, DetectMIMEType([]byte("II*\x00....")))
	assert.Equal(t, MIMEWebP, DetectMIMEType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", DetectMIMEType([]byte("hello")))
	assert.Equal(t, "application/octet-stream", DetectMIMEType(nil))
}
