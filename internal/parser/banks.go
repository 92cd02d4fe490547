package parser

import "github.com/magnatepoint/mvp1-sub001/internal/models"

// builtinStrategies returns the shipped per-bank template tables.
//
// Positions are indexes into the delimiter-split description. Formats were
// taken from representative statement samples; exact coverage per bank is
// data-driven and grows by adding table entries, not code.
func builtinStrategies() []bankStrategy {
	return []bankStrategy{
		hdfcStrategy(),
		iciciStrategy(),
		sbiStrategy(),
	}
}

// hdfcStrategy covers HDFC-style statement lines, e.g.
//
//	UPI/DR/123456789012/JOHN DOE/HDFC/johndoe@upi/NOTE
//	IMPS-509912345678-JOHN DOE-HDFC-xx1234-NOTE
//	NEFT CR-HDFC0000001-JOHN DOE-N123456789012345
//	BIL/BPAY/001122334455/ELECTRICITY BOARD
//	ACH D- MUTUAL FUND SIP-12345678
//	ATW-123456-XXXX1234-MG ROAD
func hdfcStrategy() bankStrategy {
	return bankStrategy{
		BankCode: "hdfc",
		Templates: []channelTemplate{
			{
				Channel:   models.ChannelUPI,
				Prefix:    "UPI/",
				Delimiter: "/",
				MinParts:  4,
				Positions: fieldPositions{Flow: 1, Reference: 2, Name: 3, Bank: 4, VPA: 5, AccountMask: -1},
			},
			{
				Channel:   models.ChannelIMPS,
				Prefix:    "IMPS-",
				Delimiter: "-",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 1, Name: 2, Bank: 3, AccountMask: 4, VPA: -1},
			},
			{
				Channel:   models.ChannelNEFT,
				Prefix:    "NEFT CR-",
				Delimiter: "-",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 3, Name: 2, Bank: 1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowIn,
			},
			{
				Channel:   models.ChannelNEFT,
				Prefix:    "NEFT DR-",
				Delimiter: "-",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 3, Name: 2, Bank: 1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelRTGS,
				Prefix:    "RTGS",
				Delimiter: "-",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 3, Name: 2, Bank: 1, VPA: -1, AccountMask: -1},
			},
			{
				Channel:   models.ChannelBillPay,
				Prefix:    "BIL/",
				Delimiter: "/",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 3, Bank: -1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelMandate,
				Prefix:    "ACH D-",
				Delimiter: "-",
				MinParts:  2,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 1, Bank: -1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelMandate,
				Prefix:    "ACH C-",
				Delimiter: "-",
				MinParts:  2,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 1, Bank: -1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowIn,
			},
			{
				Channel:   models.ChannelCard,
				Prefix:    "ATW-",
				Delimiter: "-",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 1, Name: 3, Bank: -1, VPA: -1, AccountMask: 2},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelCard,
				Prefix:    "POS ",
				Delimiter: " ",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: -1, Name: 2, Bank: -1, VPA: -1, AccountMask: 1},
				FixedFlow: models.FlowOut,
			},
		},
	}
}

// iciciStrategy covers ICICI-style statement lines, e.g.
//
//	UPI/123456789012/PAYMENT/johndoe@upi/HDFC
//	MMT/IMPS/509912345678/NOTE/JOHN DOE/HDFC
//	NEFT-N123456789012345-JOHN DOE
//	BIL/ONL/001122334455/BROADBAND CO
//	VIN/GROCERY MART/202501031234/123456
//	NACH/MUTUAL FUND SIP/12345678
func iciciStrategy() bankStrategy {
	return bankStrategy{
		BankCode: "icici",
		Templates: []channelTemplate{
			{
				Channel:   models.ChannelUPI,
				Prefix:    "UPI/",
				Delimiter: "/",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 1, Name: -1, Bank: 4, VPA: 3, AccountMask: -1},
			},
			{
				Channel:   models.ChannelIMPS,
				Prefix:    "MMT/IMPS/",
				Delimiter: "/",
				MinParts:  4,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 4, Bank: 5, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelNEFT,
				Prefix:    "NEFT-",
				Delimiter: "-",
				MinParts:  2,
				Positions: fieldPositions{Flow: -1, Reference: 1, Name: 2, Bank: -1, VPA: -1, AccountMask: -1},
			},
			{
				Channel:   models.ChannelBillPay,
				Prefix:    "BIL/",
				Delimiter: "/",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 3, Bank: -1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelCard,
				Prefix:    "VIN/",
				Delimiter: "/",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 1, Bank: -1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelMandate,
				Prefix:    "NACH/",
				Delimiter: "/",
				MinParts:  2,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 1, Bank: -1, VPA: -1, AccountMask: -1},
			},
		},
	}
}

// sbiStrategy covers SBI-style statement lines, e.g.
//
//	TO TRANSFER-UPI/DR/123456789012/JOHN DOE/HDFC/johndoe@upi--
//	BY TRANSFER-NEFT*HDFC0000001*N123456789012345*JOHN DOE--
//	ATM WDL-ATM CASH 123456 MG ROAD
func sbiStrategy() bankStrategy {
	return bankStrategy{
		BankCode: "sbi",
		Templates: []channelTemplate{
			{
				Channel:   models.ChannelUPI,
				Prefix:    "TO TRANSFER-UPI/",
				Delimiter: "/",
				MinParts:  4,
				Positions: fieldPositions{Flow: 1, Reference: 2, Name: 3, Bank: 4, VPA: 5, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelUPI,
				Prefix:    "BY TRANSFER-UPI/",
				Delimiter: "/",
				MinParts:  4,
				Positions: fieldPositions{Flow: 1, Reference: 2, Name: 3, Bank: 4, VPA: 5, AccountMask: -1},
				FixedFlow: models.FlowIn,
			},
			{
				Channel:   models.ChannelNEFT,
				Prefix:    "BY TRANSFER-NEFT",
				Delimiter: "*",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 3, Bank: 1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowIn,
			},
			{
				Channel:   models.ChannelNEFT,
				Prefix:    "TO TRANSFER-NEFT",
				Delimiter: "*",
				MinParts:  3,
				Positions: fieldPositions{Flow: -1, Reference: 2, Name: 3, Bank: 1, VPA: -1, AccountMask: -1},
				FixedFlow: models.FlowOut,
			},
			{
				Channel:   models.ChannelCard,
				Prefix:    "ATM WDL",
				Delimiter: " ",
				MinParts:  2,
				Positions: noPositions(),
				FixedFlow: models.FlowOut,
			},
		},
	}
}
