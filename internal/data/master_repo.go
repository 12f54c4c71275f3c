package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// MasterRepo provides database operations for the airwork reference
// masters: per-client locations, code tables and the field-key master.
type MasterRepo struct {
	DB *sql.DB
}

// NewMasterRepo creates a new MasterRepo.
func NewMasterRepo(db *sql.DB) *MasterRepo {
	return &MasterRepo{DB: db}
}

// MastersForClient assembles the validation reference sets for one
// client: its registered locations, the active job_type codes, and the
// configured field keys.
func (r *MasterRepo) MastersForClient(ctx context.Context, clientID string) (*model.Masters, error) {
	masters := &model.Masters{
		LocationIDs:  map[string]struct{}{},
		JobTypeCodes: map[string]struct{}{},
		FieldKeys:    map[string]struct{}{},
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if err := collectSet(ctx, conn, masters.LocationIDs,
			`SELECT working_location_id FROM airwork_locations WHERE client_id = $1`, clientID); err != nil {
			return err
		}
		if err := collectSet(ctx, conn, masters.JobTypeCodes,
			`SELECT code FROM airwork_codes WHERE field_key = $1 AND is_active`, model.PayloadKeyJobType); err != nil {
			return err
		}
		return collectSet(ctx, conn, masters.FieldKeys,
			`SELECT field_key FROM airwork_fields`)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return masters, nil
}

func collectSet(ctx context.Context, conn *pgx.Conn, dst map[string]struct{}, query string, args ...any) error {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return err
	}
	for _, v := range values {
		dst[v] = struct{}{}
	}
	return nil
}

// ListFields retrieves the field-key master in sort order. Extra export
// columns follow this ordering.
func (r *MasterRepo) ListFields(ctx context.Context) ([]model.FieldDef, error) {
	var out []model.FieldDef
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT field_key, label, input_kind, is_editable, sort_order, spec_version
			FROM airwork_fields
			ORDER BY sort_order, field_key`)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.FieldDef])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// UpsertLocations replaces-or-inserts the client's location rows.
func (r *MasterRepo) UpsertLocations(ctx context.Context, clientID string, locations []model.Location) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		for _, loc := range locations {
			if _, err := tx.Exec(ctx, `
				INSERT INTO airwork_locations (client_id, working_location_id, name)
				VALUES ($1, $2, $3)
				ON CONFLICT (client_id, working_location_id)
				DO UPDATE SET name = EXCLUDED.name`,
				clientID, loc.WorkingLocationID, loc.Name,
			); err != nil {
				return err
			}
		}
		return nil
	}})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// UpsertFields replaces-or-inserts field-key master rows.
func (r *MasterRepo) UpsertFields(ctx context.Context, defs []model.FieldDef) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		for _, def := range defs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO airwork_fields (field_key, label, input_kind, is_editable, sort_order, spec_version)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (field_key) DO UPDATE SET
					label = EXCLUDED.label,
					input_kind = EXCLUDED.input_kind,
					is_editable = EXCLUDED.is_editable,
					sort_order = EXCLUDED.sort_order,
					spec_version = EXCLUDED.spec_version`,
				def.FieldKey, def.Label, def.InputKind, def.IsEditable, def.SortOrder, def.SpecVersion,
			); err != nil {
				return err
			}
		}
		return nil
	}})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// UpsertCodes replaces-or-inserts code master rows.
func (r *MasterRepo) UpsertCodes(ctx context.Context, codes []model.Code) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		for _, code := range codes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO airwork_codes (field_key, code, name, is_active)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (field_key, code) DO UPDATE SET
					name = EXCLUDED.name,
					is_active = EXCLUDED.is_active`,
				code.FieldKey, code.Code, code.Name, code.IsActive,
			); err != nil {
				return err
			}
		}
		return nil
	}})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}
