// Package parser extracts structured fields from raw bank-statement
// description lines.
//
// Parsing is bank-dispatched: a registry maps bank-code prefixes to an
// ordered table of channel templates specific to that bank's statement
// format. Each template names a payment-rail marker, the rail's delimiter,
// and the positions of the fields it carries. Coverage is inherently
// partial; descriptions no template recognizes degrade to channel "other"
// with empty optional fields, which is a logged coverage gap, never an
// error.
package parser

import (
	"strings"
	"time"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// fieldPositions maps delimiter-split part indexes to output fields.
// A position of -1 means the template does not carry that field.
type fieldPositions struct {
	Flow        int // position of the DR/CR token, if any
	Reference   int
	Name        int
	Bank        int
	VPA         int
	AccountMask int
}

func noPositions() fieldPositions {
	return fieldPositions{Flow: -1, Reference: -1, Name: -1, Bank: -1, VPA: -1, AccountMask: -1}
}

// channelTemplate describes one rail format within a bank's statement
// dialect: how to recognize it and where its fields sit.
type channelTemplate struct {
	Channel   models.ChannelType
	Prefix    string // case-insensitive marker the description must start with
	Delimiter string
	MinParts  int
	Positions fieldPositions
	FixedFlow models.FlowDirection // used when the template has no flow token
}

// bankStrategy is the ordered template table for one bank's formats.
type bankStrategy struct {
	BankCode  string
	Templates []channelTemplate
}

// Parser dispatches descriptions to bank strategies.
type Parser struct {
	strategies map[string]bankStrategy
	log        logger.Logger
	now        func() time.Time
}

// New creates a parser with the built-in bank strategy table.
func New() *Parser {
	p := &Parser{
		strategies: make(map[string]bankStrategy),
		log:        logger.GetGlobalLogger().WithComponent("description_parser"),
		now:        time.Now,
	}
	for _, s := range builtinStrategies() {
		p.strategies[s.BankCode] = s
	}
	return p
}

// Register adds or replaces a bank strategy. Bank template tables are
// data-driven; production coverage grows by registering tables built from
// representative statement samples.
func (p *Parser) Register(s bankStrategy) {
	p.strategies[strings.ToLower(s.BankCode)] = s
}

// Parse produces the ParsedTransaction for one description. It never
// fails: unrecognized formats yield channel "other" with empty fields.
func (p *Parser) Parse(transactionID, bankCode, description string) models.ParsedTransaction {
	parsed := models.ParsedTransaction{
		TransactionID: transactionID,
		BankCode:      strings.ToLower(strings.TrimSpace(bankCode)),
		Channel:       models.ChannelOther,
		ParsedAt:      p.now(),
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return parsed
	}

	if strategy, ok := p.strategies[parsed.BankCode]; ok {
		if p.applyStrategy(strategy, description, &parsed) {
			return parsed
		}
	}

	// Bank unknown or no template matched: fall back to generic rail
	// marker sniffing. Counterparty and reference fields stay empty.
	p.applyGeneric(description, &parsed)

	if parsed.Channel == models.ChannelOther {
		p.log.WithFields(logger.Fields{
			"transaction_id": transactionID,
			"bank_code":      parsed.BankCode,
		}).Debug("Description format not covered; parsed as other")
	}

	return parsed
}

// applyStrategy tries each template in order; first match wins.
func (p *Parser) applyStrategy(strategy bankStrategy, description string, parsed *models.ParsedTransaction) bool {
	upper := strings.ToUpper(description)

	for _, tpl := range strategy.Templates {
		if !strings.HasPrefix(upper, strings.ToUpper(tpl.Prefix)) {
			continue
		}

		parts := strings.Split(description, tpl.Delimiter)
		if len(parts) < tpl.MinParts {
			continue
		}

		parsed.Channel = tpl.Channel
		parsed.Flow = tpl.FixedFlow

		pos := tpl.Positions
		if v := part(parts, pos.Flow); v != "" {
			if flow, ok := flowFromToken(v); ok {
				parsed.Flow = flow
			}
		}
		parsed.ReferenceID = part(parts, pos.Reference)
		parsed.CounterpartyName = part(parts, pos.Name)
		parsed.CounterpartyBank = part(parts, pos.Bank)
		parsed.AccountMask = part(parts, pos.AccountMask)
		if v := part(parts, pos.VPA); strings.Contains(v, "@") {
			parsed.VPA = v
		}

		if parsed.Flow == "" {
			parsed.Flow = inferFlow(description)
		}
		return true
	}

	return false
}

// part safely extracts and trims one delimiter-split position.
func part(parts []string, idx int) string {
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[idx])
}

// flowFromToken maps rail direction tokens to a flow direction.
func flowFromToken(token string) (models.FlowDirection, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "DR", "D", "DEBIT":
		return models.FlowOut, true
	case "CR", "C", "CREDIT":
		return models.FlowIn, true
	case "REV", "RFND", "REVERSAL", "REFUND":
		return models.FlowReversal, true
	case "SELF", "INT", "INTERNAL":
		return models.FlowInternal, true
	}
	return "", false
}
