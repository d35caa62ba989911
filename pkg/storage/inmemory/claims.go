package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/storage"
)

func cloneClaim(c claim.Claim) claim.Claim {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	out.Embedding = append([]float32(nil), c.Embedding...)
	if c.SourceMemoryID != nil {
		v := *c.SourceMemoryID
		out.SourceMemoryID = &v
	}
	return out
}

func (d *Driver) CreateClaim(ctx context.Context, in storage.CreateClaimInput) (claim.Claim, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

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
	subjectEntity := in.SubjectEntity
	if subjectEntity == "" {
		subjectEntity = "self"
	}

	now := time.Now().UTC()
	c := claim.Claim{
		ClaimID:        in.ClaimID,
		ProjectID:      in.ProjectID,
		SubjectID:      in.SubjectID,
		Predicate:      in.Predicate,
		ObjectValue:    in.ObjectValue,
		Slot:           slot,
		ClaimType:      claim.Type(claimType),
		Confidence:     confidence,
		Importance:     importance,
		Tags:           nonNilStrings(in.Tags),
		SourceMemoryID: in.SourceMemoryID,
		SubjectEntity:  subjectEntity,
		Status:         claim.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		ValidFrom:      in.ValidFrom,
		ValidUntil:     in.ValidUntil,
		Embedding:      in.Embedding,
	}
	d.claims[c.ClaimID] = c
	d.assertions[c.ClaimID] = []claim.Assertion{{
		AssertionID: "asrt_" + c.ClaimID,
		ClaimID:     c.ClaimID,
		MemoryID:    in.SourceMemoryID,
		ValueType:   claim.ValueString,
		ValueString: in.ObjectValue,
		Confidence:  confidence,
		Status:      claim.StatusActive,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}}

	key := slotKey{in.ProjectID, in.SubjectID, slot}
	d.slots[key] = claim.Slot{
		ProjectID:     in.ProjectID,
		SubjectID:     in.SubjectID,
		Slot:          slot,
		ActiveClaimID: &c.ClaimID,
		Status:        claim.SlotActive,
		UpdatedAt:     now,
	}

	return cloneClaim(c), nil
}

func (d *Driver) RetractClaim(ctx context.Context, projectID, claimID, reason string) (storage.RetractClaimResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	retracted, ok := d.claims[claimID]
	if !ok || retracted.ProjectID != projectID {
		return storage.RetractClaimResult{Success: false}, nil
	}

	now := time.Now().UTC()
	retracted.Status = claim.StatusRetracted
	retracted.RetractedAt = &now
	retracted.RetractReason = reason
	retracted.UpdatedAt = now
	d.claims[claimID] = retracted

	var previous *claim.Claim
	for _, c := range d.claims {
		if c.ProjectID != projectID || c.SubjectID != retracted.SubjectID || c.Slot != retracted.Slot || c.ClaimID == claimID {
			continue
		}
		if c.Status != claim.StatusActive {
			continue
		}
		if previous == nil || c.CreatedAt.After(previous.CreatedAt) {
			cp := c
			previous = &cp
		}
	}

	key := slotKey{projectID, retracted.SubjectID, retracted.Slot}
	slot := claim.Slot{ProjectID: projectID, SubjectID: retracted.SubjectID, Slot: retracted.Slot, UpdatedAt: now}
	var previousID *string
	if previous != nil {
		previousID = &previous.ClaimID
		slot.ActiveClaimID = previousID
		slot.Status = claim.SlotActive
	} else {
		slot.Status = claim.SlotRetracted
	}
	slot.ReplacedByClaimID = &claimID
	d.slots[key] = slot

	if previous != nil {
		d.upsertEdge(claim.Edge{
			ProjectID: projectID, FromClaim: claimID, ToClaim: previous.ClaimID, Type: claim.EdgeRetracts,
			Weight: 1, ReasonCode: "manual_retraction", ReasonText: reason, CreatedAt: now,
		})
	}

	return storage.RetractClaimResult{
		Success:          true,
		ClaimID:          claimID,
		Slot:             retracted.Slot,
		PreviousClaimID:  previousID,
		RestoredPrevious: previousID != nil,
	}, nil
}

func (d *Driver) upsertEdge(e claim.Edge) {
	for i, existing := range d.edges {
		if existing.ProjectID == e.ProjectID && existing.FromClaim == e.FromClaim &&
			existing.ToClaim == e.ToClaim && existing.Type == e.Type {
			d.edges[i] = e
			return
		}
	}
	d.edges = append(d.edges, e)
}

func (d *Driver) GetClaim(ctx context.Context, projectID, claimID string) (storage.ClaimDetail, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.claims[claimID]
	if !ok || c.ProjectID != projectID {
		return storage.ClaimDetail{}, claim.ErrNotFound
	}

	var edges, supersessions []claim.Edge
	for _, e := range d.edges {
		if e.ProjectID == projectID && (e.FromClaim == claimID || e.ToClaim == claimID) {
			edges = append(edges, e)
			if e.Type == claim.EdgeSupersedes {
				supersessions = append(supersessions, e)
			}
		}
	}

	return storage.ClaimDetail{
		Claim:         cloneClaim(c),
		Assertions:    append([]claim.Assertion(nil), d.assertions[claimID]...),
		Edges:         edges,
		Supersessions: supersessions,
	}, nil
}

func (d *Driver) GetCurrentTruth(ctx context.Context, projectID, subjectID string, includeSource bool) ([]claim.Slot, error) {
	_ = includeSource
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []claim.Slot
	for _, s := range d.slots {
		if s.ProjectID == projectID && s.SubjectID == subjectID && s.Status == claim.SlotActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (d *Driver) GetCurrentSlot(ctx context.Context, projectID, subjectID, slot string) (claim.Slot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.slots[slotKey{projectID, subjectID, slot}]
	if !ok {
		return claim.Slot{}, claim.ErrSlotNotFound
	}
	return s, nil
}

func (d *Driver) GetSlots(ctx context.Context, projectID, subjectID string, limit int) (storage.SlotGroups, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var groups storage.SlotGroups
	var all []claim.Slot
	for _, s := range d.slots {
		if s.ProjectID == projectID && s.SubjectID == subjectID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	if len(all) > clampInt(limit, 1, 500) {
		all = all[:clampInt(limit, 1, 500)]
	}
	for _, s := range all {
		switch s.Status {
		case claim.SlotActive:
			groups.Active = append(groups.Active, s)
		case claim.SlotSuperseded:
			groups.Superseded = append(groups.Superseded, s)
		default:
			groups.Other = append(groups.Other, s)
		}
	}
	return groups, nil
}

func (d *Driver) GetClaimGraph(ctx context.Context, projectID, subjectID string, limit int) (storage.ClaimGraph, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var claims []claim.Claim
	ids := make(map[string]bool)
	for _, c := range d.claims {
		if c.ProjectID == projectID && c.SubjectID == subjectID {
			claims = append(claims, cloneClaim(c))
			ids[c.ClaimID] = true
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.After(claims[j].CreatedAt) })
	if len(claims) > clampInt(limit, 1, 500) {
		claims = claims[:clampInt(limit, 1, 500)]
	}

	var edges []claim.Edge
	counts := make(map[string]int)
	for _, e := range d.edges {
		if e.ProjectID == projectID && (ids[e.FromClaim] || ids[e.ToClaim]) {
			edges = append(edges, e)
			counts[string(e.Type)]++
		}
	}

	return storage.ClaimGraph{Claims: claims, Edges: edges, EdgeTypeCounts: counts}, nil
}

func (d *Driver) GetClaimHistory(ctx context.Context, projectID, subjectID, slot string, limit int) (storage.ClaimHistory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bySlot := make(map[string][]claim.Claim)
	ids := make(map[string]bool)
	for _, c := range d.claims {
		if c.ProjectID != projectID || c.SubjectID != subjectID {
			continue
		}
		if slot != "" && c.Slot != slot {
			continue
		}
		bySlot[c.Slot] = append(bySlot[c.Slot], cloneClaim(c))
		ids[c.ClaimID] = true
	}
	for s := range bySlot {
		sort.Slice(bySlot[s], func(i, j int) bool { return bySlot[s][i].CreatedAt.After(bySlot[s][j].CreatedAt) })
		if len(bySlot[s]) > clampInt(limit, 1, 500) {
			bySlot[s] = bySlot[s][:clampInt(limit, 1, 500)]
		}
	}

	var edges []claim.Edge
	for _, e := range d.edges {
		if e.ProjectID == projectID && e.Type == claim.EdgeSupersedes && (ids[e.FromClaim] || ids[e.ToClaim]) {
			edges = append(edges, e)
		}
	}

	return storage.ClaimHistory{BySlot: bySlot, SupersedesEdges: edges}, nil
}

func (d *Driver) GetClaimsByMemory(ctx context.Context, projectID, memoryID string) ([]claim.Claim, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []claim.Claim
	for _, c := range d.claims {
		if c.ProjectID == projectID && c.SourceMemoryID != nil && *c.SourceMemoryID == memoryID {
			out = append(out, cloneClaim(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
