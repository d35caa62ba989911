package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

func cloneMemory(m memory.Memory) memory.Memory {
	out := m
	out.Tags = append([]string(nil), m.Tags...)
	out.Embedding = append([]float32(nil), m.Embedding...)
	meta := make(map[string]any, len(m.Metadata))
	for k, v := range m.Metadata {
		meta[k] = v
	}
	out.Metadata = meta
	if m.SupersededBy != nil {
		v := *m.SupersededBy
		out.SupersededBy = &v
	}
	return out
}

func (d *Driver) ListMemories(ctx context.Context, p storage.ListMemoriesParams) ([]memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []memory.Memory
	for _, m := range d.memories {
		if m.ProjectID != p.ProjectID || m.SubjectID != p.SubjectID {
			continue
		}
		if !p.IncludeDeleted && m.IsDeleted {
			continue
		}
		if !p.IncludeSuperseded && m.Status != memory.StatusActive {
			continue
		}
		matched = append(matched, cloneMemory(m))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	limit := clampInt(p.Limit, 1, 200)
	offset := clampInt(p.Offset, 0, 1_000_000)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (d *Driver) SearchMemories(ctx context.Context, p storage.SearchMemoriesParams) ([]memory.Scored, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tokens := storage.Tokenize(p.Query)
	var out []memory.Scored
	for _, m := range d.memories {
		if m.ProjectID != p.ProjectID || m.SubjectID != p.SubjectID {
			continue
		}
		if m.IsDeleted || m.Status != memory.StatusActive {
			continue
		}

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
			effective = storage.NoEmbeddingScore(m.Importance, m.Confidence)
		}

		if p.Query != "" && !wholeMatch && !tokenMatch && !simOK {
			continue
		}
		out = append(out, memory.Scored{Memory: cloneMemory(m), Score: score, EffectiveScore: effective})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveScore > out[j].EffectiveScore })
	limit := clampInt(p.Limit, 1, 200)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) CreateMemory(ctx context.Context, in storage.CreateMemoryInput) (memory.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := in.ID
	if id == "" {
		id = "mem_" + uuid.NewString()
	} else if _, exists := d.memories[id]; exists {
		return memory.Memory{}, storage.ErrAlreadyExists{Kind: "memory", ID: id}
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

	now := time.Now().UTC()
	m := memory.Memory{
		ID:               id,
		ProjectID:        in.ProjectID,
		SubjectID:        in.SubjectID,
		Text:             in.Text,
		Kind:             memory.Kind(kind),
		Visibility:       memory.Visibility(visibility),
		Importance:       importance,
		Confidence:       confidence,
		IsTemporal:       in.IsTemporal,
		Tags:             nonNilStrings(in.Tags),
		Metadata:         nonNilMap(in.Metadata),
		Embedding:        in.Embedding,
		Status:           memory.StatusActive,
		IsDeleted:        false,
		SourceType:       sourceType,
		CreatedAt:        now,
		UpdatedAt:        now,
		LastReinforcedAt: now,
	}
	d.memories[id] = m
	return cloneMemory(m), nil
}

func (d *Driver) GetMemory(ctx context.Context, projectID, id string) (memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.memories[id]
	if !ok || m.ProjectID != projectID {
		return memory.Memory{}, storage.ErrNotFound{Kind: "memory", ID: id}
	}
	return cloneMemory(m), nil
}

func (d *Driver) UpdateMemory(ctx context.Context, projectID, id string, in storage.UpdateMemoryInput) (memory.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memories[id]
	if !ok || m.ProjectID != projectID {
		return memory.Memory{}, storage.ErrNotFound{Kind: "memory", ID: id}
	}

	if in.Text != nil {
		m.Text = *in.Text
	}
	if in.Kind != nil {
		m.Kind = memory.Kind(*in.Kind)
	}
	if in.Visibility != nil {
		m.Visibility = memory.Visibility(*in.Visibility)
	}
	if in.Importance != nil {
		m.Importance = memory.ClampImportance(*in.Importance)
	}
	if in.Confidence != nil {
		m.Confidence = memory.ClampConfidence(*in.Confidence)
	}
	if in.IsTemporal != nil {
		m.IsTemporal = *in.IsTemporal
	}
	if in.Tags != nil {
		m.Tags = in.Tags
	}
	if in.Metadata != nil {
		m.Metadata = in.Metadata
	}
	if in.EmbeddingSet {
		m.Embedding = in.Embedding
	}
	m.UpdatedAt = time.Now().UTC()
	d.memories[id] = m
	return cloneMemory(m), nil
}

func (d *Driver) DeleteMemory(ctx context.Context, projectID, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memories[id]
	if !ok || m.ProjectID != projectID || m.IsDeleted {
		return false, nil
	}
	m.IsDeleted = true
	m.UpdatedAt = time.Now().UTC()
	d.memories[id] = m
	return true, nil
}

func (d *Driver) RestoreMemory(ctx context.Context, projectID, id string) (memory.Memory, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memories[id]
	if !ok || m.ProjectID != projectID {
		return memory.Memory{}, false, storage.ErrNotFound{Kind: "memory", ID: id}
	}
	if m.IsDeleted {
		return memory.Memory{}, false, storage.ErrDeleted
	}
	if m.Status == memory.StatusActive {
		return cloneMemory(m), false, nil
	}
	m.Status = memory.StatusActive
	m.SupersededBy = nil
	m.UpdatedAt = time.Now().UTC()
	d.memories[id] = m
	return cloneMemory(m), true, nil
}

func (d *Driver) FindDuplicateMemory(ctx context.Context, projectID, subjectID string, embedding []float32, threshold float64) (*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(embedding) == 0 {
		return nil, nil
	}
	var best *memory.Memory
	bestSim := -1.0
	for _, m := range d.memories {
		if m.ProjectID != projectID || m.SubjectID != subjectID || m.IsDeleted || m.Status != memory.StatusActive || len(m.Embedding) == 0 {
			continue
		}
		sim := storage.CosineSimilarity100(cosineDistance(embedding, m.Embedding))
		if sim > bestSim {
			bestSim = sim
			cp := cloneMemory(m)
			best = &cp
		}
	}
	if best == nil || bestSim < threshold {
		return nil, nil
	}
	return best, nil
}

func (d *Driver) FindConflictingMemories(ctx context.Context, projectID, subjectID string, embedding []float32, minSim, maxSim float64, limit int) ([]memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(embedding) == 0 {
		return nil, nil
	}
	type scored struct {
		m   memory.Memory
		sim float64
	}
	var candidates []scored
	for _, m := range d.memories {
		if m.ProjectID != projectID || m.SubjectID != subjectID || m.IsDeleted || m.Status != memory.StatusActive || len(m.Embedding) == 0 {
			continue
		}
		sim := storage.CosineSimilarity100(cosineDistance(embedding, m.Embedding))
		if sim >= minSim && sim < maxSim {
			candidates = append(candidates, scored{cloneMemory(m), sim})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]memory.Memory, len(candidates))
	for i, c := range candidates {
		out[i] = c.m
	}
	return out, nil
}

func (d *Driver) SupersedeMemories(ctx context.Context, projectID string, ids []string, supersededBy string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	now := time.Now().UTC()
	for _, id := range ids {
		m, ok := d.memories[id]
		if !ok || m.ProjectID != projectID || m.Status != memory.StatusActive {
			continue
		}
		m.Status = memory.StatusSuperseded
		by := supersededBy
		m.SupersededBy = &by
		m.UpdatedAt = now
		d.memories[id] = m
		count++
	}
	return count, nil
}

func (d *Driver) ListSupersededMemories(ctx context.Context, projectID, subjectID string, limit, offset int) ([]memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var matched []memory.Memory
	for _, m := range d.memories {
		if m.ProjectID != projectID || m.SubjectID != subjectID || m.IsDeleted || m.Status != memory.StatusSuperseded {
			continue
		}
		matched = append(matched, cloneMemory(m))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	limit = clampInt(limit, 1, 200)
	offset = clampInt(offset, 0, 1_000_000)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
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
