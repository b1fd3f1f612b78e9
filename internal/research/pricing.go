package research

// tokenPrice is USD per million tokens.
type tokenPrice struct {
	input  float64
	output float64
}

var modelPrices = map[string]tokenPrice{
	"claude-3-5-haiku-20241022": {input: 0.80, output: 4.0},
	"claude-sonnet-4-20250514":  {input: 3.0, output: 15.0},
	"claude-opus-4-20250514":    {input: 15.0, output: 75.0},
}

var defaultPrice = tokenPrice{input: 3.0, output: 15.0}

// costUSD prices a call from its token counts. Batch traffic is billed
// at half the listed token rates; web search surcharges are not modeled.
func costUSD(model string, inputTokens, outputTokens int, batch bool) float64 {
	price, ok := modelPrices[model]
	if !ok {
		price = defaultPrice
	}

	cost := (float64(inputTokens)*price.input + float64(outputTokens)*price.output) / 1e6
	if batch {
		cost /= 2
	}

	return cost
}
