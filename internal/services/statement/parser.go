package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy-reconciliation-backend/internal/models"
)

// Format identifies a supported statement encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ParseFormat maps a user-supplied format name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "ofx":
		return FormatOFX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// dateLayouts are tried in order when reading CSV statement dates.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse normalizes raw statement bytes into bank transactions.
func (p *Parser) Parse(data []byte, format Format) ([]models.BankTransaction, error) {
	switch format {
	case FormatCSV:
		return p.parseCSV(data), nil
	case FormatOFX:
		return p.parseOFX(data), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// parseCSV reads "external_id,date,description,amount,reference[,account]"
// lines. The first line is a header and is dropped. Lines with fewer than
// five fields emit nothing. Field-level problems never kill the line: a
// blank id gets a generated one, a bad date falls back to the current time
// and a bad amount falls back to zero.
func (p *Parser) parseCSV(data []byte) []models.BankTransaction {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var txs []models.BankTransaction
	for i, line := range lines {
		if i == 0 {
			continue // header
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			if strings.TrimSpace(line) != "" {
				p.logger.Debug("skipping short statement line",
					zap.Int("line", i+1),
					zap.Int("fields", len(fields)))
			}
			continue
		}

		externalID := strings.TrimSpace(fields[0])
		if externalID == "" {
			externalID = uuid.New().String()
		}

		tx := models.BankTransaction{
			ExternalID:      externalID,
			TransactionDate: parseDate(strings.TrimSpace(fields[1])),
			Description:     strings.TrimSpace(fields[2]),
			Amount:          parseAmount(strings.TrimSpace(fields[3])),
			Reference:       strings.TrimSpace(fields[4]),
		}
		if len(fields) >= 6 {
			tx.AccountNumber = strings.TrimSpace(fields[5])
		}

		txs = append(txs, tx)
	}
	return txs
}

// parseOFX reads <STMTTRN>...</STMTTRN> blocks from a bank-export dump.
// Recognized inner tags: TRNTYPE (description), DTPOSTED (yyyyMMdd),
// TRNAMT (sign discarded), FITID (external id), MEMO (reference). Anything
// else inside a block is ignored, as is an unterminated trailing block.
func (p *Parser) parseOFX(data []byte) []models.BankTransaction {
	rest := string(data)

	var txs []models.BankTransaction
	for {
		start := strings.Index(rest, "<STMTTRN>")
		if start < 0 {
			break
		}
		rest = rest[start+len("<STMTTRN>"):]

		end := strings.Index(rest, "</STMTTRN>")
		if end < 0 {
			break
		}
		block := rest[:end]
		rest = rest[end+len("</STMTTRN>"):]

		txs = append(txs, parseOFXBlock(block))
	}
	return txs
}

func parseOFXBlock(block string) models.BankTransaction {
	externalID := tagValue(block, "FITID")
	if externalID == "" {
		externalID = uuid.New().String()
	}

	var postedAt time.Time
	if v := tagValue(block, "DTPOSTED"); v != "" {
		if parsed, err := time.Parse("20060102", v); err == nil {
			postedAt = parsed
		}
	}

	return models.BankTransaction{
		ExternalID:      externalID,
		TransactionDate: postedAt,
		Description:     tagValue(block, "TRNTYPE"),
		Amount:          parseAmount(tagValue(block, "TRNAMT")).Abs(),
		Reference:       tagValue(block, "MEMO"),
	}
}

// tagValue extracts the text following <tag> up to the next tag or line
// break. Works for both "<TRNAMT>150.00" and "<TRNAMT>150.00</TRNAMT>"
// shapes.
func tagValue(block, tag string) string {
	open := "<" + tag + ">"
	i := strings.Index(block, open)
	if i < 0 {
		return ""
	}
	rest := block[i+len(open):]
	if j := strings.IndexAny(rest, "<\r\n"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed
		}
	}
	return time.Now().UTC()
}

func parseAmount(s string) decimal.Decimal {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
