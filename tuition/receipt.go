package tuition

import (
	"fmt"

	"github.com/escolar/tuition-engine/ledger"
)

// FormatReceipt builds the human-readable receipt identifier:
// "{schoolYearName}-{seq zero-padded to 4 digits}", with a "-{month}-{year}"
// suffix when the record is credited to a specific period. The suffix keeps
// the records of a multi-month submission individually unique while the
// sequence keeps them strictly increasing within the school year.
func FormatReceipt(yearName string, seq int64, period *ledger.Period) string {
	base := fmt.Sprintf("%s-%04d", yearName, seq)
	if period == nil {
		return base
	}
	return fmt.Sprintf("%s-%d-%d", base, int(period.Month), period.Year)
}
