package normalize

import (
	"strings"

	"github.com/username/warroom/backend/src/models"
)

// verbEntry pairs a broker verb token with its canonical operation. Entries
// are matched in order against the lowercased verb, longest phrases first,
// so "transfer out" wins over "transfer".
type verbEntry struct {
	token string
	op    models.Operation
}

var verbVocabulary = []verbEntry{
	{"staking reward", models.OperationStakingReward},
	{"reward", models.OperationStakingReward},
	{"airdrop", models.OperationAirdrop},

	{"transfer out", models.OperationTransferOut},
	{"trasferimento in uscita", models.OperationTransferOut},
	{"outgoing", models.OperationTransferOut},
	{"transfer in", models.OperationTransferIn},
	{"trasferimento in entrata", models.OperationTransferIn},
	{"trasferimento", models.OperationTransferIn},
	{"transfer", models.OperationTransferIn},

	{"correction_inc", models.OperationCorrectionInc},
	{"correction_dec", models.OperationCorrectionDec},

	{"dividendo", models.OperationDividend},
	{"dividend", models.OperationDividend},
	{"rendimento", models.OperationDividend},
	{"distribuzione", models.OperationDividend},
	{"distribution", models.OperationDividend},

	{"interessi", models.OperationInterest},
	{"interesse", models.OperationInterest},
	{"interest", models.OperationInterest},

	{"commissioni", models.OperationFee},
	{"commissione", models.OperationFee},
	{"commission", models.OperationFee},
	{"imposte", models.OperationFee},
	{"imposta", models.OperationFee},
	{"tax", models.OperationFee},
	{"fee", models.OperationFee},

	{"bonifico", models.OperationDeposit},
	{"deposito", models.OperationDeposit},
	{"depósito", models.OperationDeposit},
	{"deposit", models.OperationDeposit},
	{"ricarica", models.OperationDeposit},
	{"top up", models.OperationDeposit},

	{"prelievo", models.OperationWithdraw},
	{"withdrawal", models.OperationWithdraw},
	{"withdraw", models.OperationWithdraw},

	{"acquista", models.OperationBuy},
	{"acquisto", models.OperationBuy},
	{"acquis.", models.OperationBuy},
	{"compra", models.OperationBuy},
	{"buy", models.OperationBuy},

	{"vendita", models.OperationSell},
	{"vendi", models.OperationSell},
	{"venda", models.OperationSell},
	{"sell", models.OperationSell},

	{"swap", models.OperationSwap},
	{"trade", models.OperationSwap},
}

// MapOperation maps a broker verb to the canonical operation set. Unmapped
// verbs map to OTHER; callers keep the record rather than dropping it.
func MapOperation(verb string) models.Operation {
	v := strings.ToLower(strings.TrimSpace(verb))
	if v == "" {
		return models.OperationOther
	}
	// Exact canonical codes pass straight through (adjustment records).
	switch models.Operation(strings.ToUpper(v)) {
	case models.OperationBuy, models.OperationSell, models.OperationDeposit,
		models.OperationWithdraw, models.OperationDividend, models.OperationFee,
		models.OperationInterest, models.OperationTransferIn, models.OperationTransferOut,
		models.OperationStakingReward, models.OperationAirdrop, models.OperationSwap,
		models.OperationCorrectionInc, models.OperationCorrectionDec:
		return models.Operation(strings.ToUpper(v))
	}
	for _, e := range verbVocabulary {
		if strings.Contains(v, e.token) {
			return e.op
		}
	}
	return models.OperationOther
}
