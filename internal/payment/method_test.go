package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"factures/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want models.PaymentMethod
		ok   bool
	}{
		{"Espèces", models.PaymentCash, true},
		{"paiement en liquide", models.PaymentCash, true},
		{"CASH", models.PaymentCash, true},
		{"Chèque à l'ordre de STB", models.PaymentCheque, true},
		{"by check", models.PaymentCheque, true},
		{"Virement bancaire", models.PaymentVirement, true},
		{"SEPA credit transfer", models.PaymentVirement, true},
		{"wire", models.PaymentVirement, true},
		{"Carte bancaire", models.PaymentCarte, true},
		{"Paid by VISA", models.PaymentCarte, true},
		{"credit card", models.PaymentCarte, true},
		{"debitcard", models.PaymentCarte, true},
		{"Traite à 60 jours", models.PaymentTraite, true},
		{"lettre de change", models.PaymentTraite, true},
		{"Mandat postal", models.PaymentMandat, true},
		{"money order", models.PaymentMandat, true},
		{"PayPal", models.PaymentAutre, true},
		{"bitcoin", models.PaymentAutre, true},
		{"virement ou CB", models.PaymentVirement, true},
		{"CB, espèces acceptées", models.PaymentCash, true},
		{"", "", false},
		{"   ", "", false},
		{"à convenir", "", false},
		{"checkout", "", false},
		{"cartel", "", false},
	}

	for _, tc := range tests {
		got, ok := Classify(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
		if ok {
			assert.True(t, got.Valid())
		}
	}
}

func TestRules_CoverEveryMethod(t *testing.T) {
	seen := map[models.PaymentMethod]bool{}
	for _, r := range Rules {
		assert.True(t, r.Method.Valid(), r.Method)
		seen[r.Method] = true
	}
	assert.Len(t, seen, 7)
}
