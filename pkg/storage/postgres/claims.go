package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/storage"
)

const claimColumns = `claim_id, project_id, subject_id, predicate, object_value, slot, claim_type,
	confidence, importance, tags, source_memory_id, subject_entity, status, created_at, updated_at,
	retracted_at, retract_reason, valid_from, valid_until, embedding`

func scanClaim(row pgx.Row) (claim.Claim, error) {
	var c claim.Claim
	var tagsRaw []byte
	var embedding *pgvector.Vector
	err := row.Scan(
		&c.ClaimID, &c.ProjectID, &c.SubjectID, &c.Predicate, &c.ObjectValue, &c.Slot, &c.ClaimType,
		&c.Confidence, &c.Importance, &tagsRaw, &c.SourceMemoryID, &c.SubjectEntity, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &c.RetractedAt, &c.RetractReason, &c.ValidFrom, &c.ValidUntil, &embedding,
	)
	if err != nil {
		return claim.Claim{}, err
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &c.Tags)
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return c, nil
}

func scanSlot(row pgx.Row) (claim.Slot, error) {
	var s claim.Slot
	err := row.Scan(&s.ProjectID, &s.SubjectID, &s.Slot, &s.ActiveClaimID, &s.Status, &s.ReplacedByClaimID, &s.UpdatedAt)
	return s, err
}

const slotColumns = `project_id, subject_id, slot, active_claim_id, status, replaced_by_claim_id, updated_at`

// CreateClaim implements the atomic transaction of spec.md §4.F "Create":
// insert the claim row, an initial string-typed assertion, and upsert
// SlotState to the new claim — all three statements commit together.
func (d *Driver) CreateClaim(ctx context.Context, in storage.CreateClaimInput) (claim.Claim, error) {
	slot := in.Slot
	if slot == "" {
		slot = in.Predicate
	}
	claimType := in.ClaimType
	if claimType == "" {
		claimType = string(claim.InferType(in.Predicate))
	}
	confidence := 0.8
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	importance := 0.5
	if in.Importance != nil {
		importance = *in.Importance
	}
	tagsJSON, _ := json.Marshal(nonNilStrings(in.Tags))
	subjectEntity := in.SubjectEntity
	if subjectEntity == "" {
		subjectEntity = "self"
	}
	var vec *pgvector.Vector
	if len(in.Embedding) > 0 {
		v := pgvector.NewVector(in.Embedding)
		vec = &v
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: create claim begin: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `INSERT INTO claims (claim_id, project_id, subject_id, predicate, object_value,
		slot, claim_type, confidence, importance, tags, source_memory_id, subject_entity, status,
		created_at, updated_at, valid_from, valid_until, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'active',$13,$13,$14,$15,$16)`,
		in.ClaimID, in.ProjectID, in.SubjectID, in.Predicate, in.ObjectValue, slot, claimType,
		confidence, importance, tagsJSON, in.SourceMemoryID, subjectEntity, now, in.ValidFrom, in.ValidUntil, vec)
	if err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: insert claim: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO claim_assertions (assertion_id, claim_id, memory_id, value_type,
		value_string, confidence, status, first_seen_at, last_seen_at)
		VALUES ($1,$2,$3,'string',$4,$5,'active',$6,$6)`,
		"asrt_"+in.ClaimID, in.ClaimID, in.SourceMemoryID, in.ObjectValue, confidence, now)
	if err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: insert assertion: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO slot_state (project_id, subject_id, slot, active_claim_id, status,
		replaced_by_claim_id, updated_at)
		VALUES ($1,$2,$3,$4,'active',NULL,$5)
		ON CONFLICT (project_id, subject_id, slot) DO UPDATE SET
		active_claim_id = EXCLUDED.active_claim_id, status = 'active',
		replaced_by_claim_id = NULL, updated_at = EXCLUDED.updated_at`,
		in.ProjectID, in.SubjectID, slot, in.ClaimID, now)
	if err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: upsert slot state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: create claim commit: %w", err)
	}

	return d.getClaimTx(ctx, d.pool, in.ProjectID, in.ClaimID)
}

func (d *Driver) getClaimTx(ctx context.Context, q queryRower, projectID, claimID string) (claim.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE project_id = $1 AND claim_id = $2`, claimColumns)
	c, err := scanClaim(q.QueryRow(ctx, query, projectID, claimID))
	if err == pgx.ErrNoRows {
		return claim.Claim{}, claim.ErrNotFound
	}
	if err != nil {
		return claim.Claim{}, fmt.Errorf("postgres: get claim: %w", err)
	}
	return c, nil
}

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RetractClaim implements spec.md §4.F "Retract": mark the claim
// retracted, find the slot's next most-recently-asserted active claim (if
// any), upsert SlotState to it, and record a retracts edge — all atomic.
func (d *Driver) RetractClaim(ctx context.Context, projectID, claimID, reason string) (storage.RetractClaimResult, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return storage.RetractClaimResult{}, fmt.Errorf("postgres: retract claim begin: %w", err)
	}
	defer tx.Rollback(ctx)

	retracted, err := d.getClaimTx(ctx, tx, projectID, claimID)
	if err != nil {
		if err == claim.ErrNotFound {
			return storage.RetractClaimResult{Success: false}, nil
		}
		return storage.RetractClaimResult{}, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `UPDATE claims SET status = 'retracted', retracted_at = $1, retract_reason = $2,
		updated_at = $1 WHERE project_id = $3 AND claim_id = $4`, now, reason, projectID, claimID)
	if err != nil {
		return storage.RetractClaimResult{}, fmt.Errorf("postgres: mark claim retracted: %w", err)
	}

	var previousID *string
	row := tx.QueryRow(ctx, `SELECT claim_id FROM claims
		WHERE project_id = $1 AND subject_id = $2 AND slot = $3 AND status = 'active' AND claim_id != $4
		ORDER BY created_at DESC LIMIT 1`, projectID, retracted.SubjectID, retracted.Slot, claimID)
	var prev string
	if err := row.Scan(&prev); err == nil {
		previousID = &prev
	} else if err != pgx.ErrNoRows {
		return storage.RetractClaimResult{}, fmt.Errorf("postgres: find previous winner: %w", err)
	}

	status := "retracted"
	if previousID != nil {
		status = "active"
	}
	_, err = tx.Exec(ctx, `INSERT INTO slot_state (project_id, subject_id, slot, active_claim_id, status,
		replaced_by_claim_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (project_id, subject_id, slot) DO UPDATE SET
		active_claim_id = EXCLUDED.active_claim_id, status = EXCLUDED.status,
		replaced_by_claim_id = EXCLUDED.replaced_by_claim_id, updated_at = EXCLUDED.updated_at`,
		projectID, retracted.SubjectID, retracted.Slot, previousID, status, claimID, now)
	if err != nil {
		return storage.RetractClaimResult{}, fmt.Errorf("postgres: upsert slot state on retract: %w", err)
	}

	if previousID != nil {
		_, err = tx.Exec(ctx, `INSERT INTO claim_edges (project_id, from_claim, to_claim, edge_type,
			weight, reason_code, reason_text, created_at)
			VALUES ($1,$2,$3,'retracts',1,'manual_retraction',$4,$5)
			ON CONFLICT (project_id, from_claim, to_claim, edge_type) DO NOTHING`,
			projectID, claimID, *previousID, reason, now)
		if err != nil {
			return storage.RetractClaimResult{}, fmt.Errorf("postgres: insert retracts edge: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.RetractClaimResult{}, fmt.Errorf("postgres: retract claim commit: %w", err)
	}

	return storage.RetractClaimResult{
		Success:          true,
		ClaimID:          claimID,
		Slot:             retracted.Slot,
		PreviousClaimID:  previousID,
		RestoredPrevious: previousID != nil,
	}, nil
}

func (d *Driver) GetClaim(ctx context.Context, projectID, claimID string) (storage.ClaimDetail, error) {
	c, err := d.getClaimTx(ctx, d.pool, projectID, claimID)
	if err != nil {
		return storage.ClaimDetail{}, err
	}

	assertionRows, err := d.pool.Query(ctx, `SELECT assertion_id, claim_id, memory_id, value_type,
		value_string, value_number, value_date, value_json, confidence, status, first_seen_at, last_seen_at
		FROM claim_assertions WHERE claim_id = $1 ORDER BY first_seen_at ASC`, claimID)
	if err != nil {
		return storage.ClaimDetail{}, fmt.Errorf("postgres: list assertions: %w", err)
	}
	defer assertionRows.Close()
	var assertions []claim.Assertion
	for assertionRows.Next() {
		var a claim.Assertion
		if err := assertionRows.Scan(&a.AssertionID, &a.ClaimID, &a.MemoryID, &a.ValueType, &a.ValueString,
			&a.ValueNumber, &a.ValueDate, &a.ValueJSON, &a.Confidence, &a.Status, &a.FirstSeenAt, &a.LastSeenAt); err != nil {
			return storage.ClaimDetail{}, err
		}
		assertions = append(assertions, a)
	}

	edges, err := d.edgesTouching(ctx, projectID, claimID)
	if err != nil {
		return storage.ClaimDetail{}, err
	}
	var supersessions []claim.Edge
	for _, e := range edges {
		if e.Type == claim.EdgeSupersedes {
			supersessions = append(supersessions, e)
		}
	}

	return storage.ClaimDetail{Claim: c, Assertions: assertions, Edges: edges, Supersessions: supersessions}, nil
}

func (d *Driver) edgesTouching(ctx context.Context, projectID, claimID string) ([]claim.Edge, error) {
	rows, err := d.pool.Query(ctx, `SELECT project_id, from_claim, to_claim, edge_type, weight,
		reason_code, reason_text, created_at FROM claim_edges
		WHERE project_id = $1 AND (from_claim = $2 OR to_claim = $2)`, projectID, claimID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows pgx.Rows) ([]claim.Edge, error) {
	var out []claim.Edge
	for rows.Next() {
		var e claim.Edge
		if err := rows.Scan(&e.ProjectID, &e.FromClaim, &e.ToClaim, &e.Type, &e.Weight,
			&e.ReasonCode, &e.ReasonText, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *Driver) GetCurrentTruth(ctx context.Context, projectID, subjectID string, includeSource bool) ([]claim.Slot, error) {
	_ = includeSource // source-claim hydration happens at the orchestrator/handler layer, per spec.md §6
	query := fmt.Sprintf(`SELECT %s FROM slot_state WHERE project_id = $1 AND subject_id = $2 AND status = 'active' ORDER BY slot`, slotColumns)
	rows, err := d.pool.Query(ctx, query, projectID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get current truth: %w", err)
	}
	defer rows.Close()
	var out []claim.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *Driver) GetCurrentSlot(ctx context.Context, projectID, subjectID, slot string) (claim.Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM slot_state WHERE project_id = $1 AND subject_id = $2 AND slot = $3`, slotColumns)
	s, err := scanSlot(d.pool.QueryRow(ctx, query, projectID, subjectID, slot))
	if err == pgx.ErrNoRows {
		return claim.Slot{}, claim.ErrSlotNotFound
	}
	if err != nil {
		return claim.Slot{}, fmt.Errorf("postgres: get current slot: %w", err)
	}
	return s, nil
}

func (d *Driver) GetSlots(ctx context.Context, projectID, subjectID string, limit int) (storage.SlotGroups, error) {
	query := fmt.Sprintf(`SELECT %s FROM slot_state WHERE project_id = $1 AND subject_id = $2 ORDER BY updated_at DESC LIMIT $3`, slotColumns)
	rows, err := d.pool.Query(ctx, query, projectID, subjectID, clampInt(limit, 1, 500))
	if err != nil {
		return storage.SlotGroups{}, fmt.Errorf("postgres: get slots: %w", err)
	}
	defer rows.Close()

	var groups storage.SlotGroups
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return storage.SlotGroups{}, err
		}
		switch s.Status {
		case claim.SlotActive:
			groups.Active = append(groups.Active, s)
		case claim.SlotSuperseded:
			groups.Superseded = append(groups.Superseded, s)
		default:
			groups.Other = append(groups.Other, s)
		}
	}
	return groups, rows.Err()
}

func (d *Driver) GetClaimGraph(ctx context.Context, projectID, subjectID string, limit int) (storage.ClaimGraph, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE project_id = $1 AND subject_id = $2 ORDER BY created_at DESC LIMIT $3`, claimColumns)
	rows, err := d.pool.Query(ctx, query, projectID, subjectID, clampInt(limit, 1, 500))
	if err != nil {
		return storage.ClaimGraph{}, fmt.Errorf("postgres: get claim graph claims: %w", err)
	}
	var claims []claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return storage.ClaimGraph{}, err
		}
		claims = append(claims, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storage.ClaimGraph{}, err
	}

	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.ClaimID
	}
	edgeRows, err := d.pool.Query(ctx, `SELECT project_id, from_claim, to_claim, edge_type, weight,
		reason_code, reason_text, created_at FROM claim_edges
		WHERE project_id = $1 AND (from_claim = ANY($2) OR to_claim = ANY($2))`, projectID, ids)
	if err != nil {
		return storage.ClaimGraph{}, fmt.Errorf("postgres: get claim graph edges: %w", err)
	}
	defer edgeRows.Close()
	edges, err := scanEdges(edgeRows)
	if err != nil {
		return storage.ClaimGraph{}, err
	}

	counts := make(map[string]int)
	for _, e := range edges {
		counts[string(e.Type)]++
	}

	return storage.ClaimGraph{Claims: claims, Edges: edges, EdgeTypeCounts: counts}, nil
}

func (d *Driver) GetClaimHistory(ctx context.Context, projectID, subjectID, slot string, limit int) (storage.ClaimHistory, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE project_id = $1 AND subject_id = $2`, claimColumns)
	args := []any{projectID, subjectID}
	if slot != "" {
		query += ` AND slot = $3 ORDER BY created_at DESC LIMIT $4`
		args = append(args, slot, clampInt(limit, 1, 500))
	} else {
		query += ` ORDER BY created_at DESC LIMIT $3`
		args = append(args, clampInt(limit, 1, 500))
	}
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return storage.ClaimHistory{}, fmt.Errorf("postgres: get claim history: %w", err)
	}
	bySlot := make(map[string][]claim.Claim)
	var ids []string
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return storage.ClaimHistory{}, err
		}
		bySlot[c.Slot] = append(bySlot[c.Slot], c)
		ids = append(ids, c.ClaimID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storage.ClaimHistory{}, err
	}

	edgeRows, err := d.pool.Query(ctx, `SELECT project_id, from_claim, to_claim, edge_type, weight,
		reason_code, reason_text, created_at FROM claim_edges
		WHERE project_id = $1 AND edge_type = 'supersedes' AND (from_claim = ANY($2) OR to_claim = ANY($2))`, projectID, ids)
	if err != nil {
		return storage.ClaimHistory{}, fmt.Errorf("postgres: get claim history edges: %w", err)
	}
	defer edgeRows.Close()
	edges, err := scanEdges(edgeRows)
	if err != nil {
		return storage.ClaimHistory{}, err
	}

	return storage.ClaimHistory{BySlot: bySlot, SupersedesEdges: edges}, nil
}

func (d *Driver) GetClaimsByMemory(ctx context.Context, projectID, memoryID string) ([]claim.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE project_id = $1 AND source_memory_id = $2 ORDER BY created_at DESC`, claimColumns)
	rows, err := d.pool.Query(ctx, query, projectID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get claims by memory: %w", err)
	}
	defer rows.Close()
	var out []claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
