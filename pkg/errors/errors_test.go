package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, string(tt.code))
		assert.Equal(t, tt.retryable, meta.Retryable, string(tt.code))
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, string(tt.code))
		assert.NotEmpty(t, meta.PublicMessage, string(tt.code))
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing name")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing name", base.Message())
	assert.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "name"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.True(t, stdErrors.Is(wrapped, cause))
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "boom")

	formatted := Newf(CodeNotFound, "lot %s not found", "L-000001")
	assert.Equal(t, "lot L-000001 not found", formatted.Message())
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	got := As(err)
	require.NotNil(t, got)
	assert.Equal(t, CodeForbidden, got.Code())
	assert.Nil(t, As(nil))
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeForbidden))
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "db: insert sale")
	d := Dump(err)
	assert.Equal(t, CodeDependency, d.Code)
	require.Len(t, d.Chain, 2)
	assert.Nil(t, d.PG)
	assert.Equal(t, ErrorDump{}, Dump(nil))
	assert.Equal(t, "DEPENDENCY_ERROR", d.Fields()["error_code"])
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_products_name", TableName: "products", Message: "duplicate key"}
	d := Dump(Wrap(CodeConflict, fmt.Errorf("insert product: %w", pgErr), "product exists"))
	require.NotNil(t, d.PG)
	assert.Equal(t, "23505", d.PG.Code)
	assert.Equal(t, "ux_products_name", d.PG.Constraint)

	fields := d.Fields()
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "products", fields["pg_table"])
	_, hasDetail := fields["pg_detail"]
	assert.False(t, hasDetail)

	pqDump := Dump(&pq.Error{Code: "23503", Table: "sale_items"})
	require.NotNil(t, pqDump.PG)
	assert.Equal(t, "23503", pqDump.PG.Code)
	assert.Equal(t, "sale_items", pqDump.PG.Table)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load sale: %w", New(CodeNotFound, "sale not found"))
	assert.True(t, stdErrors.Is(err, New(CodeNotFound, "")))
	assert.True(t, stdErrors.Is(err, New(CodeNotFound, "sale not found")))
	assert.False(t, stdErrors.Is(err, New(CodeNotFound, "customer not found")))
	assert.False(t, stdErrors.Is(err, New(CodeConflict, "")))
}

func TestExposeMessageOnlyForClientCodes(t *testing.T) {
	assert.True(t, MetadataFor(CodeValidation).ExposeMessage)
	assert.False(t, MetadataFor(CodeInternal).ExposeMessage)
	assert.False(t, MetadataFor(CodeDependency).ExposeMessage)
}
