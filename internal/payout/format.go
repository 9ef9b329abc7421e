package payout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// buildSummary renders the operator-facing summary: allocations, price
// references with verification links, and the council call data per network.
func buildSummary(res *Result, fx *FXInfo) string {
	var b strings.Builder
	b.WriteString("==================================\n")
	b.WriteString("=== PAYOUT CALCULATION RESULTS ===\n")
	b.WriteString("==================================\n\n")
	fmt.Fprintf(&b, "USD Amount: %s\n", res.USDAmount.StringFixed(2))
	if fx != nil {
		fmt.Fprintf(&b, "Input: %s %s at %s %s/USD (%s)\n",
			fx.Currency, formatComma(fx.InputAmount, 2), fx.Rate.StringFixed(4), fx.Currency, fx.Source)
	}
	for _, np := range res.Networks {
		fmt.Fprintf(&b, "%s Allocation: %s USD\n", np.Token, np.USDShare.StringFixed(2))
	}
	for _, np := range res.Networks {
		fmt.Fprintf(&b, "%s EMA30 Price: %s USD\n", np.Token, np.Price.StringFixed(4))
	}
	for _, np := range res.Networks {
		fmt.Fprintf(&b, "%s Amount: %s\n", np.Token, np.UnitAmount.StringFixed(4))
	}
	for _, np := range res.Networks {
		fmt.Fprintf(&b, "%s Block: %d\n", titleCase(np.Network), np.Block)
	}
	b.WriteString("\n")

	for _, np := range res.Networks {
		fmt.Fprintf(&b, "\n%s\n%s\n", titleCase(np.Network), strings.Repeat("=", len(np.Network)))
		fmt.Fprintf(&b, "- %s EMA30 price block: %d\n", np.Token, np.Block)
		fmt.Fprintf(&b, "- %s\n", priceConverterLink(np.subscan, np.Token, decimal.NewFromInt(1), np.Block))
		fmt.Fprintf(&b, "- %s%% share in %s: %s\n", np.Ratio.Mul(decimal.NewFromInt(100)).StringFixed(0), np.Token, np.UnitAmount.StringFixed(4))
		fmt.Fprintf(&b, "- %s\n", priceConverterLink(np.subscan, np.Token, np.UnitAmount, np.Block))
	}

	b.WriteString("\n==================================\n")
	b.WriteString("=== COUNCIL PROPOSAL CALL DATA ===\n")
	b.WriteString("==================================\n")
	for _, np := range res.Networks {
		fmt.Fprintf(&b, "\n%s Council Proposal\n%s\n", titleCase(np.Network), strings.Repeat("=", len(np.Network)+17))
		fmt.Fprintf(&b, "- Amount: %s %s (%s smallest units)\n", np.UnitAmount.StringFixed(4), np.Token, np.SmallestUnit)
		fmt.Fprintf(&b, "- Recipient: %s\n", res.Recipient)
		fmt.Fprintf(&b, "- Council Proposal Call Data: %s\n", np.Propose.Hex)
		fmt.Fprintf(&b, "- Decode Link: %s\n", decodeLink(np.endpoint, np.Propose.Hex))
		fmt.Fprintf(&b, "- Vote (index %d): %s\n", np.ProposalIndex, np.Vote.Hex)
		fmt.Fprintf(&b, "- Close (index %d): %s\n", np.ProposalIndex, np.Close.Hex)
		fmt.Fprintf(&b, "- Payout (spend index %d): %s\n", np.SpendIndex, np.Payout.Hex)
	}
	if res.ProxyAddress != "" {
		for _, np := range res.Networks {
			if np.ProxyPropose == nil {
				continue
			}
			fmt.Fprintf(&b, "\n%s Proxy Council Proposal\n%s\n", titleCase(np.Network), strings.Repeat("=", len(np.Network)+23))
			fmt.Fprintf(&b, "- Proxy Address: %s\n", res.ProxyAddress)
			fmt.Fprintf(&b, "- Proxy Council Proposal Call Data: %s\n", np.ProxyPropose.Hex)
			fmt.Fprintf(&b, "- Proxy Decode Link: %s\n", decodeLink(np.endpoint, np.ProxyPropose.Hex))
		}
	}
	b.WriteString("\nNOTE: Replace the placeholder proposal hash in the vote/close calls after submission.\n")
	b.WriteString("==================================")
	return b.String()
}

// buildForumReply renders the public reply posted under the payout request.
func buildForumReply(res *Result, fx *FXInfo, signature string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hey @%s...%s\n\n", res.Recipient[:6], res.Recipient[len(res.Recipient)-4:])

	if fx != nil {
		fmt.Fprintf(&b, "Your payout is a grand total of %s %s which was converted to USD %s at an exchange rate of %s %s/USD as of today (source: %s%s).\n\n",
			fx.Currency, formatComma(fx.InputAmount, 2), formatComma(res.USDAmount, 2),
			fx.Rate.StringFixed(4), fx.Currency, fx.Source, fxDateSuffix(fx))
	} else {
		fmt.Fprintf(&b, "Your payout is a grand total of USD %s.\n\n", formatComma(res.USDAmount, 2))
	}

	if res.Kind == KindNative && len(res.Networks) == 2 {
		first, second := res.Networks[0], res.Networks[1]
		fmt.Fprintf(&b, "That USD total was divided between %s and %s tokens in a %s:%s ratio.\n",
			first.Token, second.Token,
			first.Ratio.Mul(decimal.NewFromInt(100)).StringFixed(0),
			second.Ratio.Mul(decimal.NewFromInt(100)).StringFixed(0))
		fmt.Fprintf(&b, "We've captured 30d EMA prices at [$%s](%s) for %s at block %d and [$%s](%s) for %s at block %d. This will result in a payout of %s %s and %s %s.\n\n",
			first.Price.StringFixed(4), priceConverterLink(first.subscan, first.Token, decimal.NewFromInt(1), first.Block), first.Token, first.Block,
			second.Price.StringFixed(4), priceConverterLink(second.subscan, second.Token, decimal.NewFromInt(1), second.Block), second.Token, second.Block,
			formatComma(first.UnitAmount, 4), first.Token,
			formatComma(second.UnitAmount, 4), second.Token)
		b.WriteString("Both proposals were put on-chain moments ago and are currently awaiting additional votes of members of the Treasury Council. Expect their confirmations and payouts to hit your wallets *very* soon.\n\n")
	} else if len(res.Networks) == 1 {
		np := res.Networks[0]
		fmt.Fprintf(&b, "Your payout of USD %s will be sent as %s %s to your address on %s.\n\n",
			res.USDAmount.StringFixed(2), np.UnitAmount.StringFixed(2), np.Token, titleCase(np.Network))
		b.WriteString("The proposal has been submitted on-chain and is awaiting approval from the Treasury Council members. This is expected to happen very soon.\n\n")
	}

	b.WriteString("Thank you for your contributions to the Moonbeam ecosystem - Much appreciated!\n")
	b.WriteString(signature)
	return b.String()
}

// buildReadmeRow renders the markdown table row appended to the public
// treasury README for this network's payout.
func buildReadmeRow(np *NetworkPayout) string {
	return fmt.Sprintf("| %s | %s | %s | %s | %d | %d | %s |",
		np.Token,
		np.USDShare.StringFixed(2),
		np.UnitAmount.StringFixed(4),
		np.Price.StringFixed(4),
		np.Block,
		np.ProposalIndex,
		np.Propose.Hash,
	)
}

func fxDateSuffix(fx *FXInfo) string {
	if fx.Date == "" {
		return ""
	}
	return " - " + fx.Date
}

func decodeLink(endpoint, callHex string) string {
	return fmt.Sprintf("https://polkadot.js.org/apps/?rpc=%s#/extrinsics/decode/%s",
		url.QueryEscape(endpoint), callHex)
}

func priceConverterLink(subscan, token string, value decimal.Decimal, block int64) string {
	return fmt.Sprintf("%s/tools/price_converter?value=%s&type=block&from=%s&to=USD&time=%d",
		subscan, value.StringFixed(4), token, block)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatComma renders a decimal with thousands separators and a fixed
// number of places, en-US style.
func formatComma(d decimal.Decimal, places int32) string {
	fixed := d.StringFixed(places)
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := strings.Join(groups, ",") + fracPart
	if neg {
		return "-" + out
	}
	return out
}
