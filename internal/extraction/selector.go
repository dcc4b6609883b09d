package extraction

// SelectStrategies returns the ordered strategies to try for a document.
// Rules are evaluated top to bottom and the first match wins; mixed content
// is checked before form fields.
func SelectStrategies(c Characteristics) []Strategy {
	switch {
	case !c.HasText:
		return []Strategy{StrategyDedicatedOCR, StrategyDirectText, StrategyRenderedA, StrategyRenderedB}
	case c.EstimatedQuality == QualityHigh && c.DocumentType == TypePrinted:
		return []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA}
	case c.HasMixedContent:
		return []Strategy{StrategyDedicatedOCR, StrategyRenderedB, StrategyRenderedA, StrategyDirectText}
	case c.HasHandwriting:
		return []Strategy{StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB}
	case c.HasFormFields && !c.HasSeals:
		return []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedB}
	default:
		return []Strategy{StrategyDirectText, StrategyDedicatedOCR, StrategyRenderedA, StrategyRenderedB}
	}
}
