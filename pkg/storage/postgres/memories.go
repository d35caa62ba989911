package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

const memoryColumns = `id, project_id, subject_id, text, kind, visibility, importance, confidence,
	is_temporal, tags, metadata, embedding, status, superseded_by, is_deleted, source_type,
	created_at, updated_at, last_reinforced_at`

func scanMemory(row pgx.Row) (memory.Memory, error) {
	var m memory.Memory
	var tagsRaw, metaRaw []byte
	var embedding *pgvector.Vector
	var supersededBy *string

	err := row.Scan(
		&m.ID, &m.ProjectID, &m.SubjectID, &m.Text, &m.Kind, &m.Visibility, &m.Importance, &m.Confidence,
		&m.IsTemporal, &tagsRaw, &metaRaw, &embedding, &m.Status, &supersededBy, &m.IsDeleted, &m.SourceType,
		&m.CreatedAt, &m.UpdatedAt, &m.LastReinforcedAt,
	)
	if err != nil {
		return memory.Memory{}, err
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &m.Tags)
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &m.Metadata)
	}
	if embedding != nil {
		m.Embedding = embedding.Slice()
	}
	m.SupersededBy = supersededBy
	return m, nil
}

func (d *Driver) ListMemories(ctx context.Context, p storage.ListMemoriesParams) ([]memory.Memory, error) {
	limit := clampInt(p.Limit, 1, 200)
	offset := clampInt(p.Offset, 0, 1_000_000)

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE project_id = $1 AND subject_id = $2`, memoryColumns)
	args := []any{p.ProjectID, p.SubjectID}
	if !p.IncludeDeleted {
		query += ` AND is_deleted = false`
	}
	if !p.IncludeSuperseded {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	args = append(args, limit, offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *Driver) CreateMemory(ctx context.Context, in storage.CreateMemoryInput) (memory.Memory, error) {
	id := in.ID
	if id == "" {
		id = "mem_" + uuid.NewString()
	} else {
		var exists bool
		if err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM memories WHERE id = $1)`, id).Scan(&exists); err != nil {
			return memory.Memory{}, fmt.Errorf("postgres: check memory exists: %w", err)
		}
		if exists {
			return memory.Memory{}, storage.ErrAlreadyExists{Kind: "memory", ID: id}
		}
	}

	kind := in.Kind
	if kind == "" {
		kind = string(memory.DefaultKind)
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = string(memory.DefaultVisibility)
	}
	importance := memory.DefaultImportance
	if in.Importance != nil {
		importance = memory.ClampImportance(*in.Importance)
	}
	confidence := memory.DefaultConfidence
	if in.Confidence != nil {
		confidence = memory.ClampConfidence(*in.Confidence)
	}
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = memory.DefaultSourceType
	}

	tagsJSON, _ := json.Marshal(nonNilStrings(in.Tags))
	metaJSON, _ := json.Marshal(nonNilMap(in.Metadata))

	var vec *pgvector.Vector
	if len(in.Embedding) > 0 {
		v := pgvector.NewVector(in.Embedding)
		vec = &v
	}

	now := time.Now().UTC()
	query := `INSERT INTO memories (id, project_id, subject_id, text, kind, visibility, importance,
		confidence, is_temporal, tags, metadata, embedding, status, is_deleted, source_type,
		created_at, updated_at, last_reinforced_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'active',false,$13,$14,$14,$14)`
	_, err := d.pool.Exec(ctx, query, id, in.ProjectID, in.SubjectID, in.Text, kind, visibility,
		importance, confidence, in.IsTemporal, tagsJSON, metaJSON, vec, sourceType, now)
	if err != nil {
		return memory.Memory{}, fmt.Errorf("postgres: create memory: %w", err)
	}

	return d.GetMemory(ctx, in.ProjectID, id)
}

func (d *Driver) GetMemory(ctx context.Context, projectID, id string) (memory.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE project_id = $1 AND id = $2`, memoryColumns)
	m, err := scanMemory(d.pool.QueryRow(ctx, query, projectID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return memory.Memory{}, storage.ErrNotFound{Kind: "memory", ID: id}
		}
		return memory.Memory{}, fmt.Errorf("postgres: get memory: %w", err)
	}
	return m, nil
}

func (d *Driver) UpdateMemory(ctx context.Context, projectID, id string, in storage.UpdateMemoryInput) (memory.Memory, error) {
	if _, err := d.GetMemory(ctx, projectID, id); err != nil {
		return memory.Memory{}, err
	}

	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if in.Text != nil {
		sets = append(sets, "text = "+arg(*in.Text))
	}
	if in.Kind != nil {
		sets = append(sets, "kind = "+arg(*in.Kind))
	}
	if in.Visibility != nil {
		sets = append(sets, "visibility = "+arg(*in.Visibility))
	}
	if in.Importance != nil {
		sets = append(sets, "importance = "+arg(memory.ClampImportance(*in.Importance)))
	}
	if in.Confidence != nil {
		sets = append(sets, "confidence = "+arg(memory.ClampConfidence(*in.Confidence)))
	}
	if in.IsTemporal != nil {
		sets = append(sets, "is_temporal = "+arg(*in.IsTemporal))
	}
	if in.Tags != nil {
		tagsJSON, _ := json.Marshal(in.Tags)
		sets = append(sets, "tags = "+arg(tagsJSON))
	}
	if in.Metadata != nil {
		metaJSON, _ := json.Marshal(in.Metadata)
		sets = append(sets, "metadata = "+arg(metaJSON))
	}
	if in.EmbeddingSet {
		var vec *pgvector.Vector
		if len(in.Embedding) > 0 {
			v := pgvector.NewVector(in.Embedding)
			vec = &v
		}
		sets = append(sets, "embedding = "+arg(vec))
	}

	idArg := arg(id)
	projArg := arg(projectID)
	query := "UPDATE memories SET " + joinSets(sets) + " WHERE id = " + idArg + " AND project_id = " + projArg
	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return memory.Memory{}, fmt.Errorf("postgres: update memory: %w", err)
	}
	return d.GetMemory(ctx, projectID, id)
}

func (d *Driver) DeleteMemory(ctx context.Context, projectID, id string) (bool, error) {
	tag, err := d.pool.Exec(ctx, `UPDATE memories SET is_deleted = true, updated_at = $1
		WHERE project_id = $2 AND id = $3 AND is_deleted = false`, time.Now().UTC(), projectID, id)
	if err != nil {
		return false, fmt.Errorf("postgres: delete memory: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (d *Driver) RestoreMemory(ctx context.Context, projectID, id string) (memory.Memory, bool, error) {
	m, err := d.GetMemory(ctx, projectID, id)
	if err != nil {
		return memory.Memory{}, false, err
	}
	if m.IsDeleted {
		return memory.Memory{}, false, storage.ErrDeleted
	}
	if m.Status == memory.StatusActive {
		return m, false, nil
	}
	_, err = d.pool.Exec(ctx, `UPDATE memories SET status = 'active', superseded_by = NULL, updated_at = $1
		WHERE project_id = $2 AND id = $3`, time.Now().UTC(), projectID, id)
	if err != nil {
		return memory.Memory{}, false, fmt.Errorf("postgres: restore memory: %w", err)
	}
	m, err = d.GetMemory(ctx, projectID, id)
	return m, true, err
}

func (d *Driver) FindDuplicateMemory(ctx context.Context, projectID, subjectID string, embedding []float32, threshold float64) (*memory.Memory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM memories
		WHERE project_id = $1 AND subject_id = $2 AND status = 'active' AND is_deleted = false
		AND embedding IS NOT NULL
		ORDER BY embedding <=> $3 LIMIT 1`, memoryColumns)
	row := d.pool.QueryRow(ctx, query, projectID, subjectID, pgvector.NewVector(embedding))
	m, err := scanMemory(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find duplicate memory: %w", err)
	}
	sim := storage.CosineSimilarity100(cosineDistance(embedding, m.Embedding))
	if sim < threshold {
		return nil, nil
	}
	return &m, nil
}

func (d *Driver) FindConflictingMemories(ctx context.Context, projectID, subjectID string, embedding []float32, minSim, maxSim float64, limit int) ([]memory.Memory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM memories
		WHERE project_id = $1 AND subject_id = $2 AND status = 'active' AND is_deleted = false
		AND embedding IS NOT NULL
		ORDER BY embedding <=> $3 LIMIT $4`, memoryColumns)
	rows, err := d.pool.Query(ctx, query, projectID, subjectID, pgvector.NewVector(embedding), clampInt(limit, 1, 500))
	if err != nil {
		return nil, fmt.Errorf("postgres: find conflicting memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		sim := storage.CosineSimilarity100(cosineDistance(embedding, m.Embedding))
		if sim >= minSim && sim < maxSim {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

func (d *Driver) SupersedeMemories(ctx context.Context, projectID string, ids []string, supersededBy string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := d.pool.Exec(ctx, `UPDATE memories SET status = 'superseded', superseded_by = $1, updated_at = $2
		WHERE project_id = $3 AND id = ANY($4) AND status = 'active'`,
		supersededBy, time.Now().UTC(), projectID, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: supersede memories: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (d *Driver) ListSupersededMemories(ctx context.Context, projectID, subjectID string, limit, offset int) ([]memory.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM memories
		WHERE project_id = $1 AND subject_id = $2 AND status = 'superseded' AND is_deleted = false
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, memoryColumns)
	rows, err := d.pool.Query(ctx, query, projectID, subjectID, clampInt(limit, 1, 200), clampInt(offset, 0, 1_000_000))
	if err != nil {
		return nil, fmt.Errorf("postgres: list superseded memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *Driver) SearchMemories(ctx context.Context, p storage.SearchMemoriesParams) ([]memory.Scored, error) {
	limit := clampInt(p.Limit, 1, 200)
	tokens := storage.Tokenize(p.Query)

	query := fmt.Sprintf(`SELECT %s FROM memories
		WHERE project_id = $1 AND subject_id = $2 AND status = 'active' AND is_deleted = false`, memoryColumns)
	var rows pgx.Rows
	var err error
	if len(p.QueryEmbedding) > 0 {
		query += ` AND embedding IS NOT NULL ORDER BY embedding <=> $3 LIMIT $4`
		rows, err = d.pool.Query(ctx, query, p.ProjectID, p.SubjectID, pgvector.NewVector(p.QueryEmbedding), limit*4)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $3`
		rows, err = d.pool.Query(ctx, query, p.ProjectID, p.SubjectID, 500)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: search memories: %w", err)
	}
	defer rows.Close()

	var candidates []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []memory.Scored
	for _, m := range candidates {
		hasEmbedding := len(p.QueryEmbedding) > 0 && len(m.Embedding) > 0
		wholeMatch := storage.WholeQueryMatch(p.Query, m.Text)
		tokenMatch := storage.AnyTokenMatch(m.Text, tokens)

		var score, effective float64
		var simOK bool
		if hasEmbedding {
			sim := storage.CosineSimilarity100(cosineDistance(p.QueryEmbedding, m.Embedding))
			score = sim
			effective = storage.FusionScore(sim, m.Importance, m.Confidence, storage.LexicalBonus(p.Query, m.Text, tokens))
			simOK = sim >= p.MinScore
		} else {
			score = 0
			effective = storage.NoEmbeddingScore(m.Importance, m.Confidence)
		}

		qualifies := p.Query == "" || wholeMatch || tokenMatch || simOK
		if !qualifies {
			continue
		}
		out = append(out, memory.Scored{Memory: m, Score: score, EffectiveScore: effective})
	}

	sortScoredByEffectiveDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func sortScoredByEffectiveDesc(s []memory.Scored) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].EffectiveScore > s[j-1].EffectiveScore; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// cosineDistance computes 1 - cosine similarity between two vectors,
// mirroring pgvector's `<=>` operator, for candidates already fetched via
// SQL (avoids a second round-trip when the score is only needed in Go).
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos
}
