package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingoDoceReceipt = `PD PRELADA
Tel.: 226198120
Pingo Doce - Distribuição Alimentar, S.A.
Sede: R Actor António Silva,N7,1649-033 Lisboa
Registo C.R.C. Lisboa-Matrícula/NIPC: 500829993
C. Social: 33.808.115 EUR / Registo Produtor:
PT001730, PT01101095, PT03000085,
PT06000383, PT04000029
Artigos
PEIXARIA
C TRANCHE SALMÃO UN150 2,000 X 3,69 7,38
Poupança Imediata (3,40)
Exclusivo POUPA Shaker (0,40)
PADARIA/PASTELARIA
E PÃO DE LEITE 1,99
E BOLA BERLIM KIT KAT 1,000 X 0,99 0,99
E BOLA BERLIM SIMPLES 1,000 X 0,79 0,79
E MERENDA MISTA 95 G 2,000 X 0,79 1,58
FRUTAS E VEGETAIS
C BANANA IMPORTADA 0,645 X 1,25 0,81
Poupança Imediata (0,04)
CONGELADOS
C ALM TOMA S/GL PD420G 4,29
C BROCOLOS PD 400G 2 X 0,89 1,78
Resumo`

const continenteReceipt = `MCH Matosinhos
MODELO CONTINENTE HIPERMERCADOS S.A.
Nro:FS AAA218/024041 11/08/2025 18:05
IVA DESCRICAO VALOR
Soft Drinks:
(B) AGUA S/GAS LUSO 50CL
3 X 0,50 1,50
Higiene:
(A) RESGUARDO CONT BEBE 15UN 5,99
Laticinios/Beb. Veg.:
(A) LEITE M/GORDO CNT 6*1L (R) 5,16
Beleza:
(C) LAM. DESC. BLUE II SLALOM 10UN 6,99
Padaria:
(C) FOLHADO SALSICHA C/QUEIJO UN
2 X 1,09 2,18
TOTAL A PAGAR 61,20
Total de descontos e poupanças 5,31`

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func ptr[T any](v T) *T {
	return &v
}

func TestParsePingoDoce(t *testing.T) {
	result, err := New(Options{}).ParseLines(lines(pingoDoceReceipt))
	require.NoError(t, err)

	r := result.Receipt
	require.NotNil(t, r)
	assert.Equal(t, domain.MarketPingoDoce, r.Market)
	assert.Equal(t, "PD PRELADA", r.Branch)
	assert.Nil(t, r.Invoice)
	assert.Nil(t, r.Total)
	assert.Nil(t, r.Date)
	assert.Zero(t, result.Skipped)
	assert.Empty(t, result.Diagnostics)
	require.Len(t, r.Products, 8)

	assert.Equal(t, domain.Product{
		ProductType: "PEIXARIA",
		Product:     "TRANCHE SALMÃO UN150",
		Price:       3.69,
		Quantity:    2,
		Discount:    ptr(-3.40),
		Discount2:   ptr(-0.40),
	}, r.Products[0])

	assert.Equal(t, domain.Product{
		ProductType: "PADARIA/PASTELARIA",
		Product:     "PÃO DE LEITE",
		Price:       1.99,
		Quantity:    1,
	}, r.Products[1])

	banana := r.Products[5]
	assert.Equal(t, "FRUTAS E VEGETAIS", banana.ProductType)
	assert.Equal(t, 1.25, banana.Price)
	assert.Equal(t, 0.645, banana.Quantity)
	assert.Equal(t, ptr(-0.04), banana.Discount)
	assert.Nil(t, banana.Discount2)

	assert.Equal(t, "CONGELADOS", r.Products[7].ProductType)
	assert.Equal(t, 2.0, r.Products[7].Quantity)
}

func TestParsePingoDoceMetadata(t *testing.T) {
	input := []string{
		"PD PRELADA",
		"Pingo Doce - Distribuição Alimentar, S.A.",
		"Fatura Simplificada FS 04890942308181520/067139",
		"Data de emissão: 16-08-2025",
		"Artigos",
		"MERCEARIA + PET FOOD",
		"E DIGES MAÇA 171G 2,49",
		"Poupança Imediata (0,50)",
		"PRONTO A COMER",
		"E PIZZA FRES PD CA415G 2,89",
		"Resumo",
		"IVA 6% 4,88 0,29",
		"COMPRA 4,88€",
	}

	result, err := New(Options{}).ParseLines(input)
	require.NoError(t, err)

	r := result.Receipt
	assert.Equal(t, ptr("FS 04890942308181520/067139"), r.Invoice)
	require.NotNil(t, r.Date)
	assert.Equal(t, "16/08/2025", r.Date.String())
	assert.Equal(t, ptr(4.88), r.Total)
	assert.Nil(t, r.TotalPaid)

	require.Len(t, r.Products, 2)
	assert.Equal(t, "MERCEARIA + PET FOOD", r.Products[0].ProductType)
	assert.Equal(t, ptr(-0.50), r.Products[0].Discount)
	assert.Equal(t, "PRONTO A COMER", r.Products[1].ProductType)
	assert.Empty(t, result.Diagnostics, "footer lines are ignored and the total reconciles")
}

func TestParseSingleProductLines(t *testing.T) {
	testCases := []struct {
		name  string
		input []string
		want  domain.Product
	}{
		{
			name:  "quantified line",
			input: []string{"PD PRELADA", "Artigos", "PEIXARIA", "C TRANCHE SALMÃO UN150 2,000 X 3,69 7,38"},
			want:  domain.Product{ProductType: "PEIXARIA", Product: "TRANCHE SALMÃO UN150", Price: 3.69, Quantity: 2},
		},
		{
			name:  "simple line",
			input: []string{"PD PRELADA", "Artigos", "PADARIA", "E PÃO DE LEITE 1,99"},
			want:  domain.Product{ProductType: "PADARIA", Product: "PÃO DE LEITE", Price: 1.99, Quantity: 1},
		},
		{
			name:  "product before any section",
			input: []string{"PD PRELADA", "E PÃO DE LEITE 1,99"},
			want:  domain.Product{Product: "PÃO DE LEITE", Price: 1.99, Quantity: 1},
		},
	}

	p := New(Options{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := p.ParseLines(tc.input)
			require.NoError(t, err)
			require.Len(t, result.Receipt.Products, 1)
			assert.Equal(t, tc.want, result.Receipt.Products[0])
		})
	}
}

func TestParseContinente(t *testing.T) {
	result, err := New(Options{}).ParseLines(lines(continenteReceipt))
	require.NoError(t, err)

	r := result.Receipt
	assert.Equal(t, domain.MarketContinente, r.Market)
	assert.Equal(t, "MCH Matosinhos", r.Branch)
	assert.Equal(t, ptr("FS AAA218/024041"), r.Invoice)
	require.NotNil(t, r.Date)
	assert.Equal(t, "11/08/2025", r.Date.String())
	assert.Equal(t, ptr(61.20), r.TotalPaid)
	assert.Equal(t, ptr(5.31), r.TotalDiscount)
	assert.Equal(t, ptr(66.51), r.Total)

	require.Len(t, r.Products, 5)
	assert.Equal(t, domain.Product{ProductType: "Soft Drinks", Product: "AGUA S/GAS LUSO 50CL", Price: 0.50, Quantity: 3}, r.Products[0])
	assert.Equal(t, domain.Product{ProductType: "Higiene", Product: "RESGUARDO CONT BEBE 15UN", Price: 5.99, Quantity: 1}, r.Products[1])
	assert.Equal(t, "Laticinios/Beb. Veg.", r.Products[2].ProductType)
	assert.Equal(t, "Beleza", r.Products[3].ProductType)
	assert.Equal(t, domain.Product{ProductType: "Padaria", Product: "FOLHADO SALSICHA C/QUEIJO UN", Price: 1.09, Quantity: 2}, r.Products[4])

	assert.Zero(t, result.Skipped)
	require.Len(t, result.Diagnostics, 1, "the sample is truncated, so the total does not reconcile")
	assert.Equal(t, domain.DiagTotalMismatch, result.Diagnostics[0].Kind)
}

func TestParseContinenteSubtotal(t *testing.T) {
	input := []string{
		"MCH Matosinhos",
		"Nro: FS 04890942308181520/067139 16-08-2025",
		"IVA DESCRICAO VALOR",
		"Frutas e Legumes:",
		"(C) MACA GALA 2 X 1,50 3,00",
		"(C) PERA ROCHA 21,53",
		"Poupança Imediata (5,00)",
		"SUBTOTAL 24,53",
		"TOTAL A PAGAR 19,53",
		"Total de descontos e poupanças 1,55",
		"(C) 6% 19,53 1,17",
	}

	result, err := New(Options{}).ParseLines(input)
	require.NoError(t, err)

	r := result.Receipt
	assert.Equal(t, "16/08/2025", r.Date.String())
	assert.Equal(t, ptr(24.53), r.Total)
	assert.Equal(t, ptr(19.53), r.TotalPaid)
	assert.Equal(t, ptr(5.0), r.TotalDiscount)
	require.Len(t, r.Products, 2)
	assert.Equal(t, ptr(-5.0), r.Products[1].Discount)
	assert.Empty(t, result.Diagnostics)
}

func TestParsePendingLineWithoutContinuation(t *testing.T) {
	input := []string{
		"MCH Matosinhos",
		"IVA DESCRICAO VALOR",
		"Padaria:",
		"(C) FOLHADO SALSICHA C/QUEIJO UN",
		"(A) RESGUARDO CONT BEBE 15UN 5,99",
	}

	result, err := New(Options{}).ParseLines(input)
	require.NoError(t, err)
	require.Len(t, result.Receipt.Products, 1)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, domain.DiagUnparsedLine, result.Diagnostics[0].Kind)
	assert.Equal(t, 4, result.Diagnostics[0].Line)
}

func TestParseRecoverableDiagnostics(t *testing.T) {
	input := []string{
		"PD PRELADA",
		"Artigos",
		"Poupança Imediata (0,40)",
		"PEIXARIA",
		"C PESCADA 2 X 1,00 5,00",
		"Poupança Imediata (0,10)",
		"Poupança Extra (0,10)",
		"Poupança Final (0,10)",
		"C LINHA SEM PRECO",
		"C PRODUTO 0 X 1,00 0,00",
		"E PÃO DE LEITE 1,99",
		"Data de emissão: 32/13/2025",
	}

	result, err := New(Options{}).ParseLines(input)
	require.NoError(t, err)
	require.Len(t, result.Receipt.Products, 2)

	pescada := result.Receipt.Products[0]
	assert.Equal(t, 1.0, pescada.Price)
	assert.Equal(t, 2.0, pescada.Quantity)
	assert.Equal(t, ptr(-0.10), pescada.Discount)
	assert.Equal(t, ptr(-0.10), pescada.Discount2)
	assert.Nil(t, result.Receipt.Date)

	var kinds []string
	for _, d := range result.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []string{
		domain.DiagOrphanDiscount,
		domain.DiagLineTotalMismatch,
		domain.DiagExtraDiscount,
		domain.DiagUnparsedLine,
		domain.DiagMalformedNumber,
		domain.DiagMalformedDate,
	}, kinds)
	assert.Equal(t, 4, result.Skipped)
}

func TestParseFatalErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown chain",
			input:   []string{"Some other receipt", "Tel.: 123456789", "Other Store"},
			wantErr: domain.ErrUnsupportedFormat,
		},
		{
			name:    "empty input",
			input:   nil,
			wantErr: domain.ErrUnsupportedFormat,
		},
		{
			name:    "body without parsable products",
			input:   []string{"PD PRELADA", "Artigos", "PEIXARIA", "C LINHA SEM PRECO"},
			wantErr: domain.ErrEmptyReceipt,
			wantMsg: "no parsable product lines",
		},
		{
			name:    "header only",
			input:   []string{"MCH Matosinhos", "MODELO CONTINENTE HIPERMERCADOS S.A."},
			wantErr: domain.ErrEmptyReceipt,
			wantMsg: "no product section found",
		},
	}

	p := New(Options{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := p.ParseLines(tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			assert.Contains(t, err.Error(), tc.wantMsg)
			require.NotNil(t, result)
			assert.Nil(t, result.Receipt)
		})
	}
}

func TestParseExtraDepartments(t *testing.T) {
	input := []string{"MCH Matosinhos", "Mundo Bio", "(A) TOFU NATURAL 2,19"}

	result, err := New(Options{}).ParseLines(input)
	require.NoError(t, err)
	assert.Empty(t, result.Receipt.Products[0].ProductType)

	p := New(Options{Departments: map[domain.Market][]string{
		domain.MarketContinente: {"Mundo Bio"},
	}})
	result, err = p.ParseLines(input)
	require.NoError(t, err)
	assert.Equal(t, "Mundo Bio", result.Receipt.Products[0].ProductType)
}

func TestParseIsIndependentPerCall(t *testing.T) {
	p := New(Options{})

	first, err := p.ParseLines(lines(pingoDoceReceipt))
	require.NoError(t, err)
	second, err := p.ParseLines(lines(pingoDoceReceipt))
	require.NoError(t, err)

	assert.Equal(t, first.Receipt, second.Receipt)
	first.Receipt.Products[0].Product = "changed"
	assert.Equal(t, "TRANCHE SALMÃO UN150", second.Receipt.Products[0].Product)
}
