package bigquery

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/numa-app/numa-core/internal/domain"
	"github.com/numa-app/numa-core/internal/ledger"
)

func TestBuildListQuery_NoFilterOnlyFiltersByOwner(t *testing.T) {
	query, params := buildListQuery("`p.d.transactions`", "owner-1", ledger.ListFilter{})

	if !strings.Contains(query, "WHERE owner_id = @owner") {
		t.Errorf("expected the base owner predicate, got query: %s", query)
	}
	if strings.Contains(query, "AND status") || strings.Contains(query, "AND type") {
		t.Errorf("expected no optional predicates when filter is empty, got query: %s", query)
	}
	if len(params) != 1 || params[0].Name != "owner" || params[0].Value != "owner-1" {
		t.Errorf("expected a single owner parameter, got %+v", params)
	}
}

func TestBuildListQuery_AppliesAllFilters(t *testing.T) {
	status := domain.StatusVerified
	txType := domain.TransactionExpense
	category := domain.CategoryDespensa
	period := ledger.Period{Start: civil.Date{Year: 2026, Month: 8, Day: 1}, End: civil.Date{Year: 2026, Month: 8, Day: 3}}

	filter := ledger.ListFilter{Status: &status, Type: &txType, Category: &category, Period: &period}
	query, params := buildListQuery("`p.d.transactions`", "owner-1", filter)

	for _, want := range []string{"AND status = @status", "AND type = @type", "AND category = @category", "AND DATE(created_at) BETWEEN"} {
		if !strings.Contains(query, want) {
			t.Errorf("expected query to contain %q, got: %s", want, query)
		}
	}

	names := make(map[string]bool)
	for _, p := range params {
		names[p.Name] = true
	}
	for _, want := range []string{"owner", "status", "type", "category", "period_start", "period_end"} {
		if !names[want] {
			t.Errorf("expected a %q query parameter, got params: %+v", want, params)
		}
	}
}

func TestBuildListQuery_OrdersByCreatedAt(t *testing.T) {
	query, _ := buildListQuery("`p.d.transactions`", "owner-1", ledger.ListFilter{})
	if !strings.HasSuffix(strings.TrimSpace(query), "ORDER BY created_at ASC") {
		t.Errorf("expected query to end with a stable ordering clause, got: %s", query)
	}
}
