// Package importer bulk-loads historical customer messages from CSV
// exports. Rows flow through the same store operations as live
// traffic, so the one-open-conversation invariant holds for imports
// too.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/logging"
	"github.com/wanjiru/triagedesk/internal/store"
)

// Expected CSV header names.
const (
	colUserID    = "User ID"
	colTimestamp = "Timestamp (UTC)"
	colBody      = "Message Body"
)

var loanStatuses = []string{"Active", "Pending", "Completed", "None"}

// Summary reports what an import run did.
type Summary struct {
	RowsRead             int
	RowsSkipped          int
	CustomersCreated     int
	ConversationsCreated int
	MessagesCreated      int
}

// Importer loads CSV message exports into the store.
type Importer struct {
	store *store.Store
	log   *logging.Logger
}

// New creates an Importer.
func New(st *store.Store, log *logging.Logger) *Importer {
	return &Importer{store: st, log: log.Sub("import")}
}

type parsedRow struct {
	userID    int64
	timestamp time.Time
	body      string
}

// ImportFile imports a CSV file by path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	im.log.Info().Str("path", path).Msg("starting csv import")
	return im.Import(ctx, f)
}

// Import reads CSV rows and loads them chronologically. Rows with a
// non-numeric user id, an unparseable timestamp, or an empty body are
// skipped, never fatal.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary

	rows, err := im.parse(r, &sum)
	if err != nil {
		return sum, err
	}

	// Chronological order keeps conversation timestamps monotonic.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].timestamp.Before(rows[j].timestamp)
	})

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := im.importRow(ctx, row, &sum); err != nil {
			return sum, err
		}
	}

	im.log.Info().
		Int("rows", sum.RowsRead).
		Int("skipped", sum.RowsSkipped).
		Int("customers", sum.CustomersCreated).
		Int("conversations", sum.ConversationsCreated).
		Int("messages", sum.MessagesCreated).
		Msg("csv import completed")
	return sum, nil
}

func (im *Importer) parse(r io.Reader, sum *Summary) ([]parsedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colUserID, colTimestamp, colBody} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	var rows []parsedRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		sum.RowsRead++

		row, ok := parseRecord(record, idx)
		if !ok {
			sum.RowsSkipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string, idx map[string]int) (parsedRow, bool) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	userID, err := strconv.ParseInt(field(colUserID), 10, 64)
	if err != nil || userID <= 0 {
		return parsedRow{}, false
	}
	body := field(colBody)
	if body == "" {
		return parsedRow{}, false
	}
	ts, ok := parseTimestamp(field(colTimestamp))
	if !ok {
		return parsedRow{}, false
	}

	return parsedRow{userID: userID, timestamp: ts, body: body}, true
}

// parseTimestamp accepts the common export formats.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (im *Importer) importRow(ctx context.Context, row parsedRow, sum *Summary) error {
	cust, created, err := im.store.EnsureCustomer(ctx, seedFor(row.userID))
	if err != nil {
		return fmt.Errorf("importing user %d: %w", row.userID, err)
	}
	if created {
		sum.CustomersCreated++
	}

	conv, created, err := im.store.FindOrCreateOpenConversation(ctx, cust.ID, row.timestamp)
	if err != nil {
		return fmt.Errorf("importing user %d: %w", row.userID, err)
	}
	if created {
		sum.ConversationsCreated++
	}

	_, _, err = im.store.AppendMessage(ctx, store.AppendMessageInput{
		ConversationID: conv.ID,
		CustomerID:     cust.ID,
		Content:        row.body,
		Direction:      domain.DirectionInbound,
		At:             row.timestamp,
	})
	if err != nil {
		return fmt.Errorf("importing user %d: %w", row.userID, err)
	}
	sum.MessagesCreated++
	return nil
}

// seedFor synthesizes a plausible profile for a customer first seen in
// an import: Kenyan-format phone derived from the user id, and random
// but stable-looking account fields.
func seedFor(userID int64) store.CustomerSeed {
	creditScore := rand.Intn(300) + 600
	return store.CustomerSeed{
		UserID:        userID,
		Name:          fmt.Sprintf("Customer %d", userID),
		Email:         fmt.Sprintf("customer%d@example.com", userID),
		Phone:         fmt.Sprintf("+254%09d", userID),
		AccountStatus: "active",
		CreditScore:   &creditScore,
		AccountAge:    fmt.Sprintf("%d months", rand.Intn(24)+1),
		LoanStatus:    loanStatuses[rand.Intn(len(loanStatuses))],
	}
}
