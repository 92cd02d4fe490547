package parser

import (
	"strings"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
)

// railMarkers are the commonly-seen channel markers across banks, in
// check order. More specific markers come first so e.g. "UPI" inside a
// NEFT narration does not win over the leading marker.
var railMarkers = []struct {
	marker  string
	channel models.ChannelType
}{
	{"UPI", models.ChannelUPI},
	{"IMPS", models.ChannelIMPS},
	{"NEFT", models.ChannelNEFT},
	{"RTGS", models.ChannelRTGS},
	{"BILLPAY", models.ChannelBillPay},
	{"BPAY", models.ChannelBillPay},
	{"BILLDESK", models.ChannelBillPay},
	{"NACH", models.ChannelMandate},
	{"ECS", models.ChannelMandate},
	{"ACH", models.ChannelMandate},
	{"AUTOPAY", models.ChannelMandate},
	{"ATM", models.ChannelCard},
	{"ATW", models.ChannelCard},
	{"POS", models.ChannelCard},
	{"CARD", models.ChannelCard},
}

// applyGeneric infers the channel from rail markers common across banks.
// It deliberately leaves counterparty and reference fields empty: without
// a bank template the positional layout is unknown.
func (p *Parser) applyGeneric(description string, parsed *models.ParsedTransaction) {
	upper := strings.ToUpper(description)

	for _, m := range railMarkers {
		if containsToken(upper, m.marker) {
			parsed.Channel = m.channel
			break
		}
	}

	parsed.Flow = inferFlow(description)
}

// inferFlow scans the description for direction tokens.
func inferFlow(description string) models.FlowDirection {
	upper := strings.ToUpper(description)

	switch {
	case containsToken(upper, "REVERSAL"), containsToken(upper, "REFUND"),
		containsToken(upper, "REV"), containsToken(upper, "RFND"):
		return models.FlowReversal
	case containsToken(upper, "SELF"):
		return models.FlowInternal
	case containsToken(upper, "DR"), containsToken(upper, "DEBIT"),
		strings.HasPrefix(upper, "TO "):
		return models.FlowOut
	case containsToken(upper, "CR"), containsToken(upper, "CREDIT"),
		strings.HasPrefix(upper, "BY "):
		return models.FlowIn
	}
	return ""
}

// containsToken reports whether token occurs in s bounded by
// non-alphanumeric characters, so "DR" does not match inside "DRIVE".
func containsToken(s, token string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], token)
		if i < 0 {
			return false
		}
		i += idx

		beforeOK := i == 0 || !isAlnum(s[i-1])
		end := i + len(token)
		afterOK := end == len(s) || !isAlnum(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = i + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
