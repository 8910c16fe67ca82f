package parser

import (
	"regexp"
	"unicode"

	"github.com/receiptlens/backend/internal/domain"
)

// Pingo Doce item lines start with a one-letter VAT code:
//
//	E PÃO DE LEITE 1,99
//	C TRANCHE SALMÃO UN150 2,000 X 3,69 7,38
//	C BANANA IMPORTADA 0,645 X 1,25 0,81
var pingoDoceItemMarker = regexp.MustCompile(`^[A-Z]\s+\S`)

var pingoDoceGrammar = &grammar{
	market:     domain.MarketPingoDoce,
	itemMarker: pingoDoceItemMarker,
	departments: departmentSet(
		"PEIXARIA", "TALHO", "CHARCUTARIA", "CHARCUTARIA/QUEIJOS",
		"PADARIA/PASTELARIA", "PADARIA", "PASTELARIA",
		"FRUTAS E VEGETAIS", "CONGELADOS", "BEBIDAS",
		"MERCEARIA", "MERCEARIA + PET FOOD", "PET FOOD",
		"PRONTO A COMER", "LACTICÍNIOS", "LATICÍNIOS", "LACTICÍNIOS E OVOS",
		"DROGARIA", "PERFUMARIA", "HIGIENE", "LIMPEZA", "BAZAR",
	),
	sectionLike: pingoDoceSectionLike,
	shapes: []shape{
		{name: "discount", kind: shapeDiscount, pattern: discountPattern},
		{
			name:    "quantified",
			kind:    shapeQuantified,
			pattern: mustCompile(`^[A-Z]\s+(?P<name>.+?)\s+(?P<qty>\d+(?:,\d+)?)\s+[Xx]\s+(?P<price>AMT)\s+(?P<total>-?AMT)$`),
		},
		{
			name:    "simple",
			kind:    shapeSimple,
			pattern: mustCompile(`^[A-Z]\s+(?P<name>.+?)\s+(?P<price>AMT)$`),
		},
	},
	meta: []metaRule{
		{kind: metaBodyStart, pattern: regexp.MustCompile(`(?i)^Artigos$`)},
		{kind: metaInvoice, pattern: regexp.MustCompile(`(?i)^Fatura\s+Simplificada\s+(?P<invoice>FS\s+\S+)`)},
		{kind: metaDate, pattern: regexp.MustCompile(`(?i)^Data\s+de\s+emiss[aã]o:?\s*(?P<date>\d{2}[/-]\d{2}[/-]\d{4})`)},
		{kind: metaTotal, pattern: mustCompile(`(?i)^COMPRA\s+(?P<amount>AMT)\s*€?$`), footer: true},
		{kind: metaFooterStart, pattern: regexp.MustCompile(`^Resumo\b`), footer: true},
	},
}

// pingoDoceSectionLike accepts all-uppercase lines without digits that are
// not item lines, e.g. "MERCEARIA + PET FOOD".
func pingoDoceSectionLike(line string) bool {
	if pingoDoceItemMarker.MatchString(line) {
		return false
	}
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
