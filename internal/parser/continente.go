package parser

import (
	"regexp"

	"github.com/receiptlens/backend/internal/domain"
)

// Continente item lines start with a parenthesized VAT code. Multi-unit
// items are split over two physical lines:
//
//	(A) RESGUARDO CONT BEBE 15UN 5,99
//	(B) AGUA S/GAS LUSO 50CL
//	3 X 0,50 1,50
var continenteItemMarker = regexp.MustCompile(`^\([A-Z]\)\s+\S`)

var continenteSectionPattern = regexp.MustCompile(`^\pL[\pL\s&/.,'+-]*:$`)

var continenteGrammar = &grammar{
	market:     domain.MarketContinente,
	itemMarker: continenteItemMarker,
	departments: departmentSet(
		"Soft Drinks", "Águas", "Cervejas", "Vinhos", "Bebidas",
		"Higiene", "Bebé", "Drogaria", "Limpeza", "Bazar", "Pet",
		"Frutas e Legumes", "Frescos", "Talho", "Peixaria", "Charcutaria",
		"Padaria", "Congelados", "Mercearia", "Lacticínios", "Laticínios",
	),
	sectionLike: continenteSectionPattern.MatchString,
	shapes: []shape{
		{name: "discount", kind: shapeDiscount, pattern: discountPattern},
		{
			name:    "quantified",
			kind:    shapeQuantified,
			pattern: mustCompile(`^\([A-Z]\)\s+(?P<name>.+?)\s+(?P<qty>\d+(?:,\d+)?)(?:\s*(?i:kg|un))?\s+[Xx]\s+(?P<price>AMT)\s+(?P<total>-?AMT)$`),
		},
		{
			name:    "simple",
			kind:    shapeSimple,
			pattern: mustCompile(`^\([A-Z]\)\s+(?P<name>.+?)\s+(?P<price>AMT)$`),
		},
	},
	continuation: mustCompile(`^\d+(?:,\d+)?(?:\s*(?i:kg|un))?\s+[Xx]\s+AMT\s+-?AMT$`),
	complete:     mustCompile(`\sAMT$`),
	meta: []metaRule{
		{kind: metaBodyStart, pattern: regexp.MustCompile(`(?i)^IVA\s+DESCRI[CÇ][AÃ]O\s+VALOR$`)},
		{kind: metaInvoice, pattern: regexp.MustCompile(`(?i)^Nro:?\s*(?P<invoice>FS\s*\S+)(?:\s+(?P<date>\d{2}[/-]\d{2}[/-]\d{4}))?`)},
		{kind: metaSubtotal, pattern: mustCompile(`(?i)^SUBTOTAL\s+(?P<amount>AMT)$`), footer: true},
		{kind: metaTotalPaid, pattern: mustCompile(`(?i)^TOTAL\s+A\s+PAGAR\s+(?P<amount>AMT)$`), footer: true},
		{kind: metaTotalDiscount, pattern: mustCompile(`(?i)^Total\s+de\s+descontos\s+e\s+poupan[cç]as\s+(?P<amount>AMT)$`), footer: true},
	},
}
