package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStrategies(t *testing.T) {
	tests := []struct {
		name  string
		chars Characteristics
		want  []Strategy
	}{
		{
			name:  "no text",
			chars: Characteristics{EstimatedQuality: QualityLow, DocumentType: TypeScanned},
			want:  []Strategy{StrategyDedicatedOCR, StrategyDirectText, StrategyRenderedA, StrategyRenderedB},
		},
		{
			name:  "high quality printed",
			chars: Characteristics{HasText: true, EstimatedQuality: QualityHigh, DocumentType: TypePrinted},
			want:  []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA},
		},
		{
			name:  "mixed content",
			chars: Characteristics{HasText: true, HasMixedContent: true, EstimatedQuality: QualityMedium, DocumentType: TypeMixed},
			want:  []Strategy{StrategyDedicatedOCR, StrategyRenderedB, StrategyRenderedA, StrategyDirectText},
		},
		{
			name:  "mixed content wins over form fields",
			chars: Characteristics{HasText: true, HasMixedContent: true, HasFormFields: true, EstimatedQuality: QualityMedium, DocumentType: TypeMixed},
			want:  []Strategy{StrategyDedicatedOCR, StrategyRenderedB, StrategyRenderedA, StrategyDirectText},
		},
		{
			name:  "handwriting",
			chars: Characteristics{HasText: true, HasHandwriting: true, EstimatedQuality: QualityLow, DocumentType: TypeHandwritten},
			want:  []Strategy{StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB},
		},
		{
			name:  "form fields",
			chars: Characteristics{HasText: true, HasFormFields: true, EstimatedQuality: QualityLow, DocumentType: TypeScanned},
			want:  []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedB},
		},
		{
			name:  "form fields with seals",
			chars: Characteristics{HasText: true, HasFormFields: true, HasSeals: true, EstimatedQuality: QualityHigh, DocumentType: TypeScanned},
			want:  []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB},
		},
		{
			name:  "otherwise",
			chars: Characteristics{HasText: true, EstimatedQuality: QualityLow, DocumentType: TypeScanned},
			want:  []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategies(tt.chars))
		})
	}
}

func TestSelectStrategiesReturnsFreshSlices(t *testing.T) {
	chars := Characteristics{}
	first := SelectStrategies(chars)
	first[0] = StrategyRenderedB

	assert.Equal(t, StrategyDedicatedOCR, SelectStrategies(chars)[0])
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "direct_text", StrategyDirectText.String())
	assert.Equal(t, "rendered_image_b", StrategyRenderedB.String())
	assert.Equal(t, "strategy(42)", Strategy(42).String())
	assert.False(t, Strategy(0).Valid())

	text, err := StrategyDedicatedOCR.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "dedicated_ocr", string(text))
}
