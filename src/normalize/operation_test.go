package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/warroom/backend/src/models"
)

func TestMapOperation(t *testing.T) {
	tests := []struct {
		verb string
		want models.Operation
	}{
		{"Acquista 10 @ 50", models.OperationBuy},
		{"acquisto titoli", models.OperationBuy},
		{"Buy trade", models.OperationBuy},
		{"Vendita", models.OperationSell},
		{"sell", models.OperationSell},
		{"Bonifico", models.OperationDeposit},
		{"Deposito", models.OperationDeposit},
		{"Top Up via bank", models.OperationDeposit},
		{"Prelievo", models.OperationWithdraw},
		{"Dividendo", models.OperationDividend},
		{"Rendimento", models.OperationDividend},
		{"Interessi maturati", models.OperationInterest},
		{"Imposte", models.OperationFee},
		{"Commissione", models.OperationFee},
		{"Staking Reward", models.OperationStakingReward},
		{"Airdrop", models.OperationAirdrop},
		{"Transfer Out", models.OperationTransferOut},
		{"Transfer In", models.OperationTransferIn},
		{"Trade", models.OperationSwap},
		{"qualcosa di strano", models.OperationOther},
		{"", models.OperationOther},
	}
	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			assert.Equal(t, tt.want, MapOperation(tt.verb))
		})
	}
}

func TestMapOperationCanonicalPassthrough(t *testing.T) {
	assert.Equal(t, models.OperationCorrectionInc, MapOperation("CORRECTION_INC"))
	assert.Equal(t, models.OperationCorrectionDec, MapOperation("correction_dec"))
	assert.Equal(t, models.OperationBuy, MapOperation("BUY"))
}

func TestMapOperationPhrasePrecedence(t *testing.T) {
	// "transfer out" must not fall through to the bare "transfer" entry.
	assert.Equal(t, models.OperationTransferOut, MapOperation("transfer out to wallet"))
	assert.Equal(t, models.OperationTransferIn, MapOperation("transfer from exchange"))
}
