/*
Package sqlite provides a SQLite-backed SnapshotStore.

PURPOSE:
  Durable persistence for committed baselines. Each snapshot is written
  atomically: the header row plus every client, cost and period row go
  in one transaction, so a snapshot is either fully present or absent.

KEY TABLES:
  snapshots:        One row per committed baseline
  snapshot_clients: Client records belonging to a snapshot
  snapshot_costs:   Cost records belonging to a snapshot
  snapshot_periods: Known periods at commit time

MONEY:
  Decimal values are stored as TEXT and parsed on load. Floats never
  touch the money path.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/dashboard.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - session/store.go: Interface definition
  - session/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
)

// Store implements session.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		target_margin_ratio TEXT NOT NULL,
		labor_efficiency_target TEXT NOT NULL,
		allocation_method TEXT NOT NULL,
		one_time_adjustment TEXT NOT NULL,
		max_production_capacity INTEGER NOT NULL,
		manual_cost_per_unit_override TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_clients (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		client_name TEXT NOT NULL,
		period_key TEXT NOT NULL,
		active_status TEXT NOT NULL,
		status_detail TEXT NOT NULL DEFAULT '',
		gross_revenue TEXT NOT NULL,
		net_revenue_after_tax TEXT NOT NULL,
		units_contracted INTEGER NOT NULL,
		units_delivered INTEGER NOT NULL,
		units_undelivered INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, seq)
	);

	CREATE TABLE IF NOT EXISTS snapshot_costs (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		cost_label TEXT NOT NULL,
		period_key TEXT NOT NULL,
		monthly_value TEXT NOT NULL,
		active_in_period INTEGER NOT NULL,
		cost_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (snapshot_id, seq)
	);

	CREATE TABLE IF NOT EXISTS snapshot_periods (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		period_key TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a snapshot atomically.
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	set := snap.Settings
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (
			id, created_at, created_by,
			tax_rate, target_margin_ratio, labor_efficiency_target,
			allocation_method, one_time_adjustment,
			max_production_capacity, manual_cost_per_unit_override
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.UTC().Format(time.RFC3339Nano), snap.CreatedBy,
		set.TaxRate.String(), set.TargetMarginRatio.String(), set.LaborEfficiencyTarget.String(),
		string(set.AllocationMethod), set.OneTimeAdjustment.String(),
		set.MaxProductionCapacity, set.ManualCostPerUnitOverride.String(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}

	for i, c := range snap.Clients {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_clients (
				snapshot_id, seq, id, client_name, period_key,
				active_status, status_detail,
				gross_revenue, net_revenue_after_tax,
				units_contracted, units_delivered, units_undelivered
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, i, string(c.ID), c.ClientName, string(c.PeriodKey),
			string(c.ActiveStatus), c.StatusDetail,
			c.GrossRevenue.String(), c.NetRevenueAfterTax.String(),
			c.UnitsContracted, c.UnitsDelivered, c.UnitsUndelivered,
		)
		if err != nil {
			return fmt.Errorf("insert client %s: %w", c.ID, err)
		}
	}

	for i, c := range snap.Costs {
		active := 0
		if c.ActiveInPeriod {
			active = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_costs (
				snapshot_id, seq, id, cost_label, period_key,
				monthly_value, active_in_period, cost_type
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, i, string(c.ID), c.CostLabel, string(c.PeriodKey),
			c.MonthlyValue.String(), active, string(c.CostType),
		)
		if err != nil {
			return fmt.Errorf("insert cost %s: %w", c.ID, err)
		}
	}

	for i, p := range snap.Periods {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_periods (snapshot_id, seq, period_key)
			VALUES (?, ?, ?)`,
			snap.ID, i, string(p),
		)
		if err != nil {
			return fmt.Errorf("insert period %s: %w", p, err)
		}
	}

	return tx.Commit()
}

// Load fetches a snapshot by id.
func (s *Store) Load(ctx context.Context, id string) (session.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, created_by,
		       tax_rate, target_margin_ratio, labor_efficiency_target,
		       allocation_method, one_time_adjustment,
		       max_production_capacity, manual_cost_per_unit_override
		FROM snapshots WHERE id = ?`, id)
	return s.scanSnapshot(ctx, row)
}

// Latest fetches the most recently created snapshot.
func (s *Store) Latest(ctx context.Context) (session.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, created_by,
		       tax_rate, target_margin_ratio, labor_efficiency_target,
		       allocation_method, one_time_adjustment,
		       max_production_capacity, manual_cost_per_unit_override
		FROM snapshots ORDER BY created_at DESC LIMIT 1`)
	return s.scanSnapshot(ctx, row)
}

func (s *Store) scanSnapshot(ctx context.Context, row *sql.Row) (session.Snapshot, error) {
	var snap session.Snapshot
	var createdAt string
	var taxRate, margin, laborTarget, method, adjustment, override string

	err := row.Scan(
		&snap.ID, &createdAt, &snap.CreatedBy,
		&taxRate, &margin, &laborTarget,
		&method, &adjustment,
		&snap.Settings.MaxProductionCapacity, &override,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Snapshot{}, session.ErrSnapshotNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("parse created_at: %w", err)
	}
	snap.Settings.AllocationMethod = engine.AllocationMethod(method)
	if snap.Settings.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse tax_rate: %w", err)
	}
	if snap.Settings.TargetMarginRatio, err = decimal.NewFromString(margin); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse target_margin_ratio: %w", err)
	}
	if snap.Settings.LaborEfficiencyTarget, err = decimal.NewFromString(laborTarget); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse labor_efficiency_target: %w", err)
	}
	if snap.Settings.OneTimeAdjustment, err = decimal.NewFromString(adjustment); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse one_time_adjustment: %w", err)
	}
	if snap.Settings.ManualCostPerUnitOverride, err = decimal.NewFromString(override); err != nil {
		return session.Snapshot{}, fmt.Errorf("parse manual_cost_per_unit_override: %w", err)
	}

	if snap.Clients, err = s.loadClients(ctx, snap.ID); err != nil {
		return session.Snapshot{}, err
	}
	if snap.Costs, err = s.loadCosts(ctx, snap.ID); err != nil {
		return session.Snapshot{}, err
	}
	if snap.Periods, err = s.loadPeriods(ctx, snap.ID); err != nil {
		return session.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadClients(ctx context.Context, snapshotID string) ([]engine.ClientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_name, period_key, active_status, status_detail,
		       gross_revenue, net_revenue_after_tax,
		       units_contracted, units_delivered, units_undelivered
		FROM snapshot_clients WHERE snapshot_id = ? ORDER BY seq`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []engine.ClientRecord
	for rows.Next() {
		var c engine.ClientRecord
		var id, period, status, gross, net string
		err := rows.Scan(
			&id, &c.ClientName, &period, &status, &c.StatusDetail,
			&gross, &net,
			&c.UnitsContracted, &c.UnitsDelivered, &c.UnitsUndelivered,
		)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.ID = engine.ClientID(id)
		c.PeriodKey = engine.PeriodKey(period)
		c.ActiveStatus = engine.ActiveStatus(status)
		if c.GrossRevenue, err = decimal.NewFromString(gross); err != nil {
			return nil, fmt.Errorf("parse gross_revenue: %w", err)
		}
		if c.NetRevenueAfterTax, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("parse net_revenue_after_tax: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadCosts(ctx context.Context, snapshotID string) ([]engine.CostRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cost_label, period_key, monthly_value, active_in_period, cost_type
		FROM snapshot_costs WHERE snapshot_id = ? ORDER BY seq`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query costs: %w", err)
	}
	defer rows.Close()

	var out []engine.CostRecord
	for rows.Next() {
		var c engine.CostRecord
		var id, period, value, typ string
		var active int
		err := rows.Scan(&id, &c.CostLabel, &period, &value, &active, &typ)
		if err != nil {
			return nil, fmt.Errorf("scan cost: %w", err)
		}
		c.ID = engine.CostID(id)
		c.PeriodKey = engine.PeriodKey(period)
		c.ActiveInPeriod = active != 0
		c.CostType = engine.CostType(typ)
		if c.MonthlyValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("parse monthly_value: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadPeriods(ctx context.Context, snapshotID string) ([]engine.PeriodKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period_key FROM snapshot_periods WHERE snapshot_id = ? ORDER BY seq`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var out []engine.PeriodKey
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, engine.PeriodKey(p))
	}
	return out, rows.Err()
}
