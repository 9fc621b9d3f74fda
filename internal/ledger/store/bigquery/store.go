// Package bigquery is a BigQuery-backed ledger.Store, adapted from the
// dvloznov-finance-tracker document/transaction repositories: a shared
// *bigquery.Client, parameterized queries, and an iterator.Done read loop.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/ledger"
)

// Store is a BigQuery-backed implementation of ledger.Store. Unlike the
// in-memory store, per-id write serialization is expressed as a SQL
// compare-and-swap (`UPDATE ... WHERE status = @expected`) rather than a Go
// mutex, relying on BigQuery's row-level consistency for a DML statement.
type Store struct {
	client    *bigquery.Client
	projectID string
	dataset   string
	table     string
}

// New wraps an existing *bigquery.Client, following the teacher's
// ...WithClient sharing convention so multiple repositories/stores reuse
// one client per process.
func New(client *bigquery.Client, projectID, dataset string) *Store {
	return &Store{client: client, projectID: projectID, dataset: dataset, table: "transactions"}
}

// Open creates a new *bigquery.Client and wraps it. Callers own the
// returned Store's Close.
func Open(ctx context.Context, projectID, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create client: %w", err)
	}
	return New(client, projectID, dataset), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) qualifiedTable() string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.dataset, s.table)
}

// InsertProvisional implements ledger.Store.
func (s *Store) InsertProvisional(ctx context.Context, t *domain.Transaction) error {
	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, rowFromTransaction(t)); err != nil {
		return fmt.Errorf("bigquery: insert transaction: %w", err)
	}
	return nil
}

// GetForOwner implements ledger.Store.
func (s *Store) GetForOwner(ctx context.Context, owner, id string) (*domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT transaction_id, owner_id, type, amount, concept, category, merchant,
		       status, transaction_date, created_at, verified_at
		FROM %s
		WHERE transaction_id = @id AND owner_id = @owner
		LIMIT 1
	`, s.qualifiedTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "owner", Value: owner},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query transaction: %w", err)
	}

	var row transactionRow
	if err := it.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, domain.ErrNotOwner
		}
		return nil, fmt.Errorf("bigquery: read transaction row: %w", err)
	}
	return row.toTransaction()
}

// CompareAndSwapStatus implements ledger.Store. The mutate closure runs
// against a Go copy fetched inside this call to compute the post-image,
// then the whole row is rewritten with a WHERE status=@expected predicate
// so a second concurrent caller's UPDATE affects zero rows.
func (s *Store) CompareAndSwapStatus(ctx context.Context, owner, id string, expectedStatus domain.TransactionStatus, mutate func(*domain.Transaction)) (*domain.Transaction, error) {
	current, err := s.GetForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if current.Status != expectedStatus {
		return nil, domain.ErrNotProvisional
	}

	updated := current.Clone()
	mutate(updated)
	row := rowFromTransaction(updated)

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET amount = @amount, category = @category, merchant = @merchant,
		    status = @status, transaction_date = @transaction_date, verified_at = @verified_at
		WHERE transaction_id = @id AND owner_id = @owner AND status = @expected
	`, s.qualifiedTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "amount", Value: row.Amount},
		{Name: "category", Value: row.Category},
		{Name: "merchant", Value: row.Merchant},
		{Name: "status", Value: row.Status},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "verified_at", Value: row.VerifiedAt},
		{Name: "id", Value: id},
		{Name: "owner", Value: owner},
		{Name: "expected", Value: string(expectedStatus)},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: run update: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: wait update: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("bigquery: update failed: %w", err)
	}
	if status.Statistics == nil || status.Statistics.Details == nil {
		return updated, nil
	}
	if details, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && details.NumDMLAffectedRows == 0 {
		return nil, domain.ErrNotProvisional
	}
	return updated, nil
}

// ListByOwner implements ledger.Store.
func (s *Store) ListByOwner(ctx context.Context, owner string, filter ledger.ListFilter) ([]*domain.Transaction, error) {
	query, params := buildListQuery(s.qualifiedTable(), owner, filter)
	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query transactions: %w", err)
	}

	var result []*domain.Transaction
	for {
		var row transactionRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: read transaction row: %w", err)
		}
		t, err := row.toTransaction()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func buildListQuery(table, owner string, filter ledger.ListFilter) (string, []bigquery.QueryParameter) {
	query := fmt.Sprintf(`
		SELECT transaction_id, owner_id, type, amount, concept, category, merchant,
		       status, transaction_date, created_at, verified_at
		FROM %s
		WHERE owner_id = @owner
	`, table)
	params := []bigquery.QueryParameter{{Name: "owner", Value: owner}}

	if filter.Status != nil {
		query += " AND status = @status"
		params = append(params, bigquery.QueryParameter{Name: "status", Value: string(*filter.Status)})
	}
	if filter.Type != nil {
		query += " AND type = @type"
		params = append(params, bigquery.QueryParameter{Name: "type", Value: string(*filter.Type)})
	}
	if filter.Category != nil {
		query += " AND category = @category"
		params = append(params, bigquery.QueryParameter{Name: "category", Value: string(*filter.Category)})
	}
	if filter.Period != nil {
		query += " AND DATE(created_at) BETWEEN @period_start AND @period_end"
		params = append(params,
			bigquery.QueryParameter{Name: "period_start", Value: filter.Period.Start},
			bigquery.QueryParameter{Name: "period_end", Value: filter.Period.End},
		)
	}
	query += " ORDER BY created_at ASC"
	return query, params
}

var _ ledger.Store = (*Store)(nil)
