package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt(t *testing.T) *domain.Receipt {
	t.Helper()

	date, err := domain.ParseDate("16-08-2025")
	require.NoError(t, err)
	invoice := "FS 04890942308181520/067139"
	discount := -3.4

	return &domain.Receipt{
		Market:  domain.MarketPingoDoce,
		Branch:  "PD PRELADA",
		Invoice: &invoice,
		Date:    &date,
		Products: []domain.Product{
			{ProductType: "PEIXARIA", Product: "TRANCHE SALMÃO UN150", Price: 3.69, Quantity: 2, Discount: &discount},
			{ProductType: "FRUTAS E VEGETAIS", Product: "BANANA IMPORTADA", Price: 1.25, Quantity: 0.645},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReceipt(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "market,branch,invoice,date,product_type,product,price,quantity,discount,discount2", lines[0])
	assert.Equal(t, "Pingo Doce,PD PRELADA,FS 04890942308181520/067139,16/08/2025,PEIXARIA,TRANCHE SALMÃO UN150,3.69,2,-3.40,", lines[1])
	assert.Equal(t, "Pingo Doce,PD PRELADA,FS 04890942308181520/067139,16/08/2025,FRUTAS E VEGETAIS,BANANA IMPORTADA,1.25,0.645,,", lines[2])
}

func TestWriteCSVWithoutProducts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "market,branch,invoice,date,product_type,product,price,quantity,discount,discount2", strings.TrimSpace(buf.String()))
}

func TestRowsNilReceipt(t *testing.T) {
	assert.Nil(t, Rows(nil))
}
