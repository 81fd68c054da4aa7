package deribit

// Trade is one raw trade record from the history API.
type Trade struct {
	TradeID        string   `json:"trade_id"`
	InstrumentName string   `json:"instrument_name"`
	Timestamp      int64    `json:"timestamp"` // ms since epoch
	Price          float64  `json:"price"`
	Amount         float64  `json:"amount"`
	Direction      string   `json:"direction"`
	IV             *float64 `json:"iv,omitempty"`
	IndexPrice     *float64 `json:"index_price,omitempty"`
	MarkPrice      *float64 `json:"mark_price,omitempty"`
}

// tradesResult is the result payload of get_last_trades_by_currency_and_time.
type tradesResult struct {
	Trades  []Trade `json:"trades"`
	HasMore bool    `json:"has_more"`
}

// Instrument is one instrument record from get_instruments.
type Instrument struct {
	InstrumentName      string  `json:"instrument_name"`
	Kind                string  `json:"kind"`
	BaseCurrency        string  `json:"base_currency"`
	QuoteCurrency       string  `json:"quote_currency"`
	Strike              float64 `json:"strike"`
	OptionType          string  `json:"option_type"` // "call" or "put"
	ExpirationTimestamp int64   `json:"expiration_timestamp"`
	CreationTimestamp   int64   `json:"creation_timestamp"`
	IsActive            bool    `json:"is_active"`
	TickSize            float64 `json:"tick_size"`
	ContractSize        float64 `json:"contract_size"`
	MinTradeAmount      float64 `json:"min_trade_amount"`
}
