package backfill

import (
	"time"

	"github.com/quantlake/deribit-data/internal/deribit"
	"github.com/quantlake/deribit-data/internal/instrument"
	"github.com/quantlake/deribit-data/internal/model"
)

// ConvertTrade maps an upstream trade onto the persisted row, deriving the
// instrument fields from the name. A name that does not parse fails the
// single row, not the page.
func ConvertTrade(t deribit.Trade) (model.TradeRow, error) {
	inst, err := instrument.Parse(t.InstrumentName)
	if err != nil {
		return model.TradeRow{}, err
	}

	return model.TradeRow{
		TradeID:        t.TradeID,
		InstrumentName: t.InstrumentName,
		Timestamp:      time.UnixMilli(t.Timestamp).UTC(),
		Price:          t.Price,
		Amount:         t.Amount,
		Direction:      t.Direction,
		IV:             t.IV,
		IndexPrice:     t.IndexPrice,
		MarkPrice:      t.MarkPrice,
		Underlying:     inst.Underlying,
		Expiry:         inst.Expiry,
		Strike:         inst.Strike,
		OptionType:     inst.OptionType,
	}, nil
}
