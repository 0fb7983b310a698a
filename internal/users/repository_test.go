package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/rbac"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// membershipRow is id, role, role_type, company_id, is_active.
type membershipRow [5]any

func scanInto(values membershipRow, dest []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

type stubRow struct {
	values membershipRow
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type stubRows struct {
	rows   []membershipRow
	idx    int
	err    error
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.idx-1], dest)
}

type execCall struct {
	sql  string
	args []any
}

type stubDB struct {
	rows    *stubRows
	row     stubRow
	execErr error
	execs   []execCall
}

func (d *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.rows, nil
}

func (d *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.row
}

func (d *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), d.execErr
}

// stubTx implements the pgx.Tx methods UpdateMembership uses.
type stubTx struct {
	pgx.Tx
	db         *stubDB
	committed  bool
	rolledBack bool
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type stubBeginner struct {
	tx *stubTx
}

func (b *stubBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return b.tx, nil
}

func TestListMemberships(t *testing.T) {
	db := &stubDB{rows: &stubRows{rows: []membershipRow{
		{"m1", "admin_empresa", "company", "C1", true},
		{"m2", "super_admin", "global", "", false},
	}}}
	repo := newRepository(db, nil, newTestLogger())

	out, err := repo.ListMemberships(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []rbac.Membership{
		{ID: "m1", Role: rbac.RoleAdminEmpresa, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true},
		{ID: "m2", Role: rbac.RoleSuperAdmin, RoleType: rbac.RoleTypeGlobal},
	}, out)
	assert.True(t, db.rows.closed)
}

func TestUserMembershipsSkipsInvalidRows(t *testing.T) {
	db := &stubDB{rows: &stubRows{rows: []membershipRow{
		{"m1", "manager", "company", "C1", true},
		{"m2", "owner", "company", "C1", true},
		{"m3", "super_admin", "company", "C1", true},
		{"m4", "viewer", "company", "", true},
	}}}
	repo := newRepository(db, nil, newTestLogger())

	out, err := repo.UserMemberships(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "m1", out[0].ID)
}

func TestListMembershipsPropagatesRowErrors(t *testing.T) {
	db := &stubDB{rows: &stubRows{err: errors.New("connection reset")}}
	_, err := newRepository(db, nil, newTestLogger()).ListMemberships(context.Background(), "u1")
	assert.Error(t, err)
}

func TestGetMembershipNotFound(t *testing.T) {
	db := &stubDB{row: stubRow{err: pgx.ErrNoRows}}
	_, err := newRepository(db, nil, newTestLogger()).GetMembership(context.Background(), "u1", "m9")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateMembershipAssignsID(t *testing.T) {
	db := &stubDB{}
	m, err := newRepository(db, nil, newTestLogger()).CreateMembership(context.Background(), "u1",
		rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	require.NoError(t, err)

	_, err = uuid.Parse(m.ID)
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.Equal(t, []any{m.ID, "u1", "viewer", "company", "C1", true}, db.execs[0].args)
}

func TestCreateMembershipDuplicate(t *testing.T) {
	db := &stubDB{execErr: &pgconn.PgError{Code: uniqueViolation}}
	_, err := newRepository(db, nil, newTestLogger()).CreateMembership(context.Background(), "u1",
		rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestUpdateMembershipCommits(t *testing.T) {
	db := &stubDB{row: stubRow{values: membershipRow{"m1", "viewer", "company", "C1", true}}}
	tx := &stubTx{db: db}
	repo := newRepository(db, &stubBeginner{tx: tx}, newTestLogger())

	updated, err := repo.UpdateMembership(context.Background(), "u1", "m1", func(m rbac.Membership) (rbac.Membership, error) {
		m.Role = rbac.RoleEmployee
		return m, nil
	})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEmployee, updated.Role)
	assert.True(t, tx.committed)
	require.Len(t, db.execs, 1)
	assert.Equal(t, []any{"u1", "m1", "employee", "company", "C1", true}, db.execs[0].args)
}

func TestUpdateMembershipRollsBackOnRejectedChange(t *testing.T) {
	db := &stubDB{row: stubRow{values: membershipRow{"m1", "viewer", "company", "C1", true}}}
	tx := &stubTx{db: db}
	repo := newRepository(db, &stubBeginner{tx: tx}, newTestLogger())

	_, err := repo.UpdateMembership(context.Background(), "u1", "m1", func(m rbac.Membership) (rbac.Membership, error) {
		return rbac.Membership{}, httpx.ErrValidation
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
	assert.Empty(t, db.execs)
}

func TestUpdateMembershipNotFound(t *testing.T) {
	db := &stubDB{row: stubRow{err: pgx.ErrNoRows}}
	repo := newRepository(db, &stubBeginner{tx: &stubTx{db: db}}, newTestLogger())

	_, err := repo.UpdateMembership(context.Background(), "u1", "m1", func(m rbac.Membership) (rbac.Membership, error) {
		return m, nil
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
