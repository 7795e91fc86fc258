package polymarket

import (
	"encoding/json"
	"strconv"
)

// gammaMarket mirrors the Gamma API market payload. clobTokenIds, outcomes
// and outcomePrices are parallel arrays, sometimes delivered as JSON-encoded
// strings rather than native arrays.
type gammaMarket struct {
	ID            string      `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	ClobTokenIDs  stringArray `json:"clobTokenIds"`
	Outcomes      stringArray `json:"outcomes"`
	OutcomePrices stringArray `json:"outcomePrices"`
	LiquidityNum  flexFloat   `json:"liquidityNum"`
	Liquidity     flexFloat   `json:"liquidity"`
	VolumeNum     flexFloat   `json:"volumeNum"`
	Volume24hr    flexFloat   `json:"volume24hr"`
	EndDate       string      `json:"endDate"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

func (m *gammaMarket) marketID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.ConditionID
}

func (m *gammaMarket) liquidity() float64 {
	if m.LiquidityNum != 0 {
		return float64(m.LiquidityNum)
	}
	return float64(m.Liquidity)
}

func (m *gammaMarket) volume() float64 {
	if m.VolumeNum != 0 {
		return float64(m.VolumeNum)
	}
	return float64(m.Volume24hr)
}

// dataPosition mirrors the Data API position payload for a trader
type dataPosition struct {
	ConditionID string    `json:"conditionId"`
	Asset       string    `json:"asset"`
	Outcome     string    `json:"outcome"`
	Size        flexFloat `json:"size"`
	AvgPrice    flexFloat `json:"avgPrice"`
	CurrentValue flexFloat `json:"currentValue"`
}

type midpointResponse struct {
	Mid flexFloat `json:"mid"`
}

type valueResponse struct {
	Value flexFloat `json:"value"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
	Price   flexFloat `json:"price"`
	Error   string `json:"errorMsg"`
}

// stringArray accepts either a JSON array of strings or a string containing
// an encoded JSON array, which is how Gamma ships the parallel arrays.
type stringArray []string

func (s *stringArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), (*[]string)(s))
}

// flexFloat accepts numbers delivered as JSON numbers or as strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat(num)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*f = 0
		return nil
	}
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(num)
	return nil
}
