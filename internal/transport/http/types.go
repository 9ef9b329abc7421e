package payouthttp

// CalculateRequest is the body of POST /api/calculate. Every field except
// usdAmount (or inputAmount+inputCurrency) and recipient is optional and
// falls back to the configured defaults.
type CalculateRequest struct {
	USDAmount          float64 `json:"usdAmount"`
	InputAmount        float64 `json:"inputAmount"`
	InputCurrency      string  `json:"inputCurrency"`
	FXRate             float64 `json:"fxRate"`
	FXDate             string  `json:"fxDate"`
	Recipient          string  `json:"recipient"`
	GlmrRatio          float64 `json:"glmrRatio"`
	MovrRatio          float64 `json:"movrRatio"`
	CouncilThreshold   uint32  `json:"councilThreshold"`
	CouncilLengthBound uint32  `json:"councilLengthBound"`
	MoonbeamWs         string  `json:"moonbeamWs"`
	MoonriverWs        string  `json:"moonriverWs"`
	Proxy              bool    `json:"proxy"`
	ProxyAddress       string  `json:"proxyAddress"`
}

// CalculateUSDCRequest is the body of POST /api/calculate-usdc.
type CalculateUSDCRequest struct {
	USDAmount          float64 `json:"usdAmount"`
	Recipient          string  `json:"recipient"`
	CouncilThreshold   uint32  `json:"councilThreshold"`
	CouncilLengthBound uint32  `json:"councilLengthBound"`
	MoonbeamWs         string  `json:"moonbeamWs"`
	Proxy              bool    `json:"proxy"`
	ProxyAddress       string  `json:"proxyAddress"`
}
