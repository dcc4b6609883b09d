package cleaner

import "regexp"

const monthNames = `enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre`

// Folio references stamped on every sheet of a notarial register.
var folioPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bF\s+\d{1,6}\s+F\b`),
	regexp.MustCompile(`(?i)\bfolio\s*(?:N[°º.]?\s*)?\d{1,6}\b`),
	regexp.MustCompile(`\bF[°º]\s*\d{1,6}\b`),
}

// Repertorio (registry index) codes.
var repertorioPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brepertorio\s*(?:N[°º.]?|n[úu]mero)?\s*:?\s*\d+(?:[.\-/]\d+)*`),
	regexp.MustCompile(`\b\d{1,6}\s+[xX]\s+\d{1,6}\s+\d{1,6}\b`),
}

// Marginal numbers sit alone on a line or are set off from the line's text
// by a layout gap (a tab or two or more spaces).
var (
	reMarginalLine  = regexp.MustCompile(`(?m)^[ \t]*(\d{1,4})[ \t]*$`)
	reMarginalStart = regexp.MustCompile(`(?m)^[ \t]*(\d{1,4})[ \t]*(?:\t|[ ]{2})[ \t]*`)
	reMarginalEnd   = regexp.MustCompile(`(?m)[ \t]*(?:\t|[ ]{2})[ \t]*(\d{1,4})[ \t]*$`)
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+(?:` + monthNames + `)\s+(?:de|del)\s+(?:año\s+)?\d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\s+(?:de|del)\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-](?:\d{4}|\d{2})\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:Don|Doña|don|doña|Sr\.|Sra\.|Srta\.|Señor|Señora|señor|señora)\s+\p{Lu}\p{Ll}+(?:\s+(?:de\s+(?:la\s+)?)?\p{Lu}\p{Ll}+){0,4}`),
	regexp.MustCompile(`\bNotari[oa]\s+(?:P[úu]blic[oa]\s+)?(?:(?:Don|Doña|don|doña)\s+)?\p{Lu}\p{L}+(?:\s+\p{Lu}\p{L}+){0,3}`),
	regexp.MustCompile(`\p{Lu}[\p{Lu} ]{8,}\p{Lu}`),
}

var legalNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:ley|decreto(?:\s+ley)?|art[íi]culo|art\.)\s+(?:N[°º.]?\s*)?\d+(?:\.\d{3})*`),
	regexp.MustCompile(`\b[Nn][°º]\s*\d+(?:\.\d{3})*`),
	regexp.MustCompile(`(?i)\brol\s+(?:N[°º]\s*)?\d+(?:-\d+)?`),
}

// Tokens that, right before a number at the end of a line, make it a
// legal reference rather than a marginal number.
var legalMarkers = []string{
	"n°", "nº", "n.", "no.", "nro.", "núm.", "número", "art.", "artículo", "articulo",
	"ley", "inciso", "fojas", "fs.", "rol", "decreto",
}

// Words right before a number that make it a year, an amount or a street
// number.
var contextMarkers = []string{
	"año", "de", "del", "en", "$", "us$", "uf", "pesos", "suma", "monto", "precio",
	"calle", "avenida", "av.", "pasaje", "psje.", "camino", "domicilio", "oficina",
	"depto.", "departamento", "casa", "piso", "km.", "kilómetro",
}

// Words right after a number that make it an amount or a measure.
var unitMarkers = []string{
	"pesos", "uf", "dólares", "dolares", "%", "m2", "metros", "hectáreas", "hectareas",
}

var (
	reNonBreaking      = regexp.MustCompile(`[\t\x{00A0}]`)
	reMultiSpace       = regexp.MustCompile(`[ ]{2,}`)
	reLineEdgeSpace    = regexp.MustCompile(`(?m)^[ ]+|[ ]+$`)
	reSpaceBeforePunct = regexp.MustCompile(`[ ]+([,;:.!?])`)
	reMissingSpace     = regexp.MustCompile(`([,;:])(\p{L})`)
	reRepeatedPunct    = regexp.MustCompile(`([,;:])(?:[ ]*[,;:])+`)
	reCommaPeriod      = regexp.MustCompile(`[,;]\.`)
	reDots             = regexp.MustCompile(`\.{2,}`)
	reParenSpace       = regexp.MustCompile(`\([ ]+|[ ]+\)`)
	reBlankLines       = regexp.MustCompile(`\n{3,}`)
	reWordToken        = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// termCorrections maps commonly misread legal vocabulary (lower case) to
// its correct form. Applied regardless of the token's case.
var termCorrections = map[string]string{
	"articulo":       "artículo",
	"numero":         "número",
	"republica":      "República",
	"inscripcion":    "inscripción",
	"declaracion":    "declaración",
	"identificacion": "identificación",
	"cedula":         "cédula",
	"clausula":       "cláusula",
	"titulo":         "título",
	"razon":          "razón",
	"comparecio":     "compareció",
	"estipulacion":   "estipulación",
	"obligacion":     "obligación",
	"autorizacion":   "autorización",
	"tradicion":      "tradición",
	"via":            "vía",
	"rnediante":      "mediante",
	"rnandato":       "mandato",
	"cornpraventa":   "compraventa",
	"cornparece":     "comparece",
	"cornparecen":    "comparecen",
	"inrnueble":      "inmueble",
	"rnayor":         "mayor",
	"dorninio":       "dominio",
	"notarlo":        "notario",
	"escrltura":      "escritura",
}

// phraseCorrections fix words that are valid Spanish on their own ("publica",
// "notaria") only where the surrounding phrase confirms the misread. The
// first group of each pattern is the word to correct.
var phraseCorrections = []struct {
	re   *regexp.Regexp
	corr string
}{
	{regexp.MustCompile(`(?i)\b(?:escritura|v[íi]a|fe|oferta|subasta|instituci[óo]n|entidad|salud|administraci[óo]n)\s+(publica)\b`), "pública"},
	{regexp.MustCompile(`(?i)\b(?:notario|ministerio|registro|instrumento|documento|servicio|oficial|inter[ée]s|orden|uso)\s+(publico)\b`), "público"},
	{regexp.MustCompile(`(?i)\b(notaria)\s+(?:(?:de|del)\b|n[°º])`), "notaría"},
}

// nameCorrections maps common given names and surnames (lower case) to
// their accented spelling. Only applied to capitalised tokens.
var nameCorrections = map[string]string{
	"jose":      "José",
	"maria":     "María",
	"ines":      "Inés",
	"ramon":     "Ramón",
	"andres":    "Andrés",
	"tomas":     "Tomás",
	"hector":    "Héctor",
	"raul":      "Raúl",
	"joaquin":   "Joaquín",
	"sebastian": "Sebastián",
	"martin":    "Martín",
	"ruben":     "Rubén",
	"victor":    "Víctor",
	"monica":    "Mónica",
	"veronica":  "Verónica",
	"sofia":     "Sofía",
	"lucia":     "Lucía",
	"angelica":  "Angélica",
	"jesus":     "Jesús",
	"agustin":   "Agustín",
	"cristian":  "Cristián",
	"gonzalez":  "González",
	"rodriguez": "Rodríguez",
	"martinez":  "Martínez",
	"hernandez": "Hernández",
	"fernandez": "Fernández",
	"lopez":     "López",
	"perez":     "Pérez",
	"sanchez":   "Sánchez",
	"ramirez":   "Ramírez",
	"gomez":     "Gómez",
	"diaz":      "Díaz",
	"nunez":     "Núñez",
	"jimenez":   "Jiménez",
	"alvarez":   "Álvarez",
	"gutierrez": "Gutiérrez",
	"vasquez":   "Vásquez",
	"velasquez": "Velásquez",
	"nuñez":     "Núñez",
	"ibanez":    "Ibáñez",
	"ibañez":    "Ibáñez",

	"concepcion": "Concepción",
	"valparaiso": "Valparaíso",
}
