// Package bigquery streams vault data into BigQuery for SQL analytics.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	transactionsTable = "transactions"
	balancesTable     = "account_balances"

	// batchSize bounds the rows sent in one streaming insert request.
	batchSize = 500
)

// RowInserter streams rows into one table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Exporter writes snapshots into the transactions and account_balances
// tables. Insert ids make repeated exports idempotent within BigQuery's
// de-duplication window.
type Exporter struct {
	transactions RowInserter
	balances     RowInserter
	client       *bigquery.Client
	project      string
	dataset      string
	log          zerolog.Logger
	now          func() time.Time
}

// ExportResult counts the rows written by Export.
type ExportResult struct {
	Transactions int
	Accounts     int
}

// NewExporter creates an exporter over existing inserters.
func NewExporter(transactions, balances RowInserter, log zerolog.Logger) *Exporter {
	return &Exporter{
		transactions: transactions,
		balances:     balances,
		log:          log,
		now:          time.Now,
	}
}

// Open connects to BigQuery and returns an exporter for project.dataset.
// Close it when done.
func Open(ctx context.Context, project, dataset string, log zerolog.Logger, opts ...option.ClientOption) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("Open: creating client: %w", err)
	}
	ds := client.DatasetInProject(project, dataset)

	e := NewExporter(ds.Table(transactionsTable).Inserter(), ds.Table(balancesTable).Inserter(), log)
	e.client = client
	e.project = project
	e.dataset = dataset
	return e, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Export streams every transaction and a balance snapshot of every account.
// Transactions use their id as insert id; balance rows use the account id
// and the snapshot date, so one snapshot per account and day survives.
func (e *Exporter) Export(ctx context.Context, userID string, snap domain.Snapshot) (ExportResult, error) {
	exported := e.now().UTC()

	names := make(map[string]string, len(snap.Accounts))
	for _, a := range snap.Accounts {
		names[a.ID] = a.Name
	}

	txSavers := make([]*bigquery.StructSaver, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		txSavers = append(txSavers, &bigquery.StructSaver{
			Struct:   newTransactionRow(userID, tx, names, exported),
			InsertID: tx.ID,
		})
	}
	if err := putBatches(ctx, e.transactions, txSavers); err != nil {
		return ExportResult{}, fmt.Errorf("Export: inserting transactions: %w", err)
	}

	balanceSavers := make([]*bigquery.StructSaver, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		row := newAccountBalanceRow(userID, a, exported)
		balanceSavers = append(balanceSavers, &bigquery.StructSaver{
			Struct:   row,
			InsertID: a.ID + ":" + row.SnapshotDate.String(),
		})
	}
	if err := putBatches(ctx, e.balances, balanceSavers); err != nil {
		return ExportResult{}, fmt.Errorf("Export: inserting balances: %w", err)
	}

	e.log.Info().
		Str("user_id", userID).
		Int("transactions", len(txSavers)).
		Int("accounts", len(balanceSavers)).
		Msg("exported vault to BigQuery")
	return ExportResult{Transactions: len(txSavers), Accounts: len(balanceSavers)}, nil
}

func putBatches(ctx context.Context, ins RowInserter, savers []*bigquery.StructSaver) error {
	for start := 0; start < len(savers); start += batchSize {
		end := min(start+batchSize, len(savers))
		if err := ins.Put(ctx, savers[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// MonthlySpending totals exported expenses per month, currency and category
// for userID, excluding transfers. It needs an exporter created by Open.
func (e *Exporter) MonthlySpending(ctx context.Context, userID string) ([]*MonthlySpendRow, error) {
	if e.client == nil {
		return nil, fmt.Errorf("MonthlySpending: no BigQuery client")
	}

	q := e.client.Query(fmt.Sprintf(`
		SELECT
			FORMAT_DATE('%%Y-%%m', transaction_date) AS month,
			currency,
			IFNULL(category_name, 'Uncategorized') AS category_name,
			SUM(amount) AS total
		FROM (
			SELECT * EXCEPT(rn) FROM (
				SELECT *, ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY exported_ts DESC) AS rn
				FROM `+"`%s.%s.%s`"+`
				WHERE user_id = @user_id
			)
			WHERE rn = 1
		)
		WHERE direction = 'expense' AND NOT is_internal_transfer
		GROUP BY month, currency, category_name
		ORDER BY month, total DESC
	`, e.project, e.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("MonthlySpending: query read: %w", err)
	}

	var rows []*MonthlySpendRow
	for {
		var r MonthlySpendRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MonthlySpending: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
