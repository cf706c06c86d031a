package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tokendrop/distributor/internal/cache"
	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/distributor"
	"github.com/tokendrop/distributor/internal/merkle"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseAddressParam(w http.ResponseWriter, raw string) (chain.Address, bool) {
	addr, err := chain.ParseAddress(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address: "+err.Error())
		return chain.Address{}, false
	}
	return addr, true
}

func hexRoot(root [32]byte) string {
	return hex.EncodeToString(root[:])
}

func proofHex(proof merkle.Proof) []string {
	out := make([]string, len(proof))
	for i, step := range proof {
		out[i] = hex.EncodeToString(step.Sibling[:])
	}
	return out
}

// distributorResponse is the wire shape for one distributor record.
type distributorResponse struct {
	Mint             string `json:"mint"`
	Version          uint64 `json:"version"`
	Root             string `json:"root"`
	MaxTotalClaim    uint64 `json:"max_total_claim"`
	MaxNumNodes      uint64 `json:"max_num_nodes"`
	TotalClaimed     uint64 `json:"total_claimed"`
	TotalForgone     uint64 `json:"total_forgone"`
	NodesClaimed     uint64 `json:"nodes_claimed"`
	StartTs          int64  `json:"start_ts"`
	EndTs            int64  `json:"end_ts"`
	ClawbackStartTs  int64  `json:"clawback_start_ts"`
	ClawbackReceiver string `json:"clawback_receiver"`
	Admin            string `json:"admin"`
	ClawedBack       bool   `json:"clawed_back"`
	EnableTs         int64  `json:"enable_ts"`
	Closable         bool   `json:"closable"`
}

func toDistributorResponse(d distributor.Distributor) distributorResponse {
	return distributorResponse{
		Mint:             d.Mint.String(),
		Version:          d.Version,
		Root:             hexRoot(d.Root),
		MaxTotalClaim:    d.MaxTotalClaim,
		MaxNumNodes:      d.MaxNumNodes,
		TotalClaimed:     d.TotalClaimed,
		TotalForgone:     d.TotalForgone,
		NodesClaimed:     d.NodesClaimed,
		StartTs:          d.StartTs,
		EndTs:            d.EndTs,
		ClawbackStartTs:  d.ClawbackStartTs,
		ClawbackReceiver: d.ClawbackReceiver.String(),
		Admin:            d.Admin.String(),
		ClawedBack:       d.ClawedBack,
		EnableTs:         d.EnableTs,
		Closable:         d.Closable,
	}
}

// handleListDistributors serves GET /distributors: every shard this
// process currently has a distributor record for.
func (s *Server) handleListDistributors(w http.ResponseWriter, r *http.Request) {
	list := s.program.ListDistributors()
	out := make([]distributorResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toDistributorResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// claimRecordResponse is the wire shape for one claim record, as scoped to
// the distributor whose path it was requested under.
type claimRecordResponse struct {
	Claimant              string `json:"claimant"`
	LockedAmount          uint64 `json:"locked_amount"`
	LockedAmountWithdrawn uint64 `json:"locked_amount_withdrawn"`
	UnlockedAmount        uint64 `json:"unlocked_amount"`
	UnlockedAmountClaimed uint64 `json:"unlocked_amount_claimed"`
	Closable              bool   `json:"closable"`
}

func toClaimRecordResponse(c distributor.ClaimRecord) claimRecordResponse {
	return claimRecordResponse{
		Claimant:              c.Claimant.String(),
		LockedAmount:          c.LockedAmount,
		LockedAmountWithdrawn: c.LockedAmountWithdrawn,
		UnlockedAmount:        c.UnlockedAmount,
		UnlockedAmountClaimed: c.UnlockedAmountClaimed,
		Closable:              c.Closable,
	}
}

// handleListClaimsForDistributor serves GET /distributors/{version}/claims.
// version alone doesn't identify a distributor — it's only unique per
// mint — so the mint is taken from the ?mint= query parameter.
func (s *Server) handleListClaimsForDistributor(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseUint(mux.Vars(r)["version"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version")
		return
	}
	mint, ok := parseAddressParam(w, r.URL.Query().Get("mint"))
	if !ok {
		return
	}

	claims := s.program.ListClaimsForDistributor(mint, version)
	out := make([]claimRecordResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimRecordResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUser serves GET /user/{id}: the claimant's allocation and the
// proof needed to submit new_claim against it.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	claimant, ok := parseAddressParam(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	e, found := s.proofCache.Lookup(claimant)
	if !found {
		writeError(w, http.StatusNotFound, "claimant not found in any shard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"merkle_tree":     hexRoot(e.MerkleRoot),
		"proof":           proofHex(cache.ProofFor(e)),
		"unlocked_amount": e.AmountUnlocked,
		"locked_amount":   e.AmountLocked,
	})
}

// handleClaim serves GET /claim/{id}: the live claim-status record for a
// claimant, from the claim-status cache (C6). This cache is eventually
// consistent, never authoritative.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	claimant, ok := parseAddressParam(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	e, found := s.proofCache.Lookup(claimant)
	if !found {
		writeError(w, http.StatusNotFound, "claimant not found in any shard")
		return
	}
	distAddr := chain.DeriveDistributorAddress(e.Mint, uint64(e.ShardIndex))
	record, found := s.claimCache.Lookup(distAddr, claimant)
	if !found {
		writeError(w, http.StatusNotFound, "claimant has not called new_claim yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"distributor":             record.Distributor.String(),
		"claimant":                record.Claimant.String(),
		"locked_amount":           record.LockedAmount,
		"locked_amount_withdrawn": record.LockedAmountWithdrawn,
		"unlocked_amount":         record.UnlockedAmount,
		"unlocked_amount_claimed": record.UnlockedAmountClaimed,
		"closable":                record.Closable,
		"cache_consistency":       "eventually_consistent",
	})
}

// eligibilityPayload is the composite GET /eligibility/{id} response, also
// reused by the WebSocket push endpoint.
type eligibilityPayload struct {
	Claimant         string   `json:"claimant"`
	Mint             string   `json:"mint"`
	ShardIndex       int      `json:"shard_index"`
	MerkleRoot       string   `json:"merkle_root"`
	Proof            []string `json:"proof"`
	HasClaimed       bool     `json:"has_claimed"`
	ClaimedAmount    uint64   `json:"claimed_amount"`
	StartTs          int64    `json:"start_ts"`
	EndTs            int64    `json:"end_ts"`
	StartAmount      uint64   `json:"start_amount"`
	EndAmount        uint64   `json:"end_amount"`
	CacheConsistency string   `json:"cache_consistency"`
}

// computeEligibility builds the composite eligibility view for claimant,
// shared by the HTTP and WebSocket handlers. The bool return is false when
// no response should be sent at all (claimant unknown).
func (s *Server) computeEligibility(claimant chain.Address) (eligibilityPayload, bool) {
	e, found := s.proofCache.Lookup(claimant)
	if !found {
		return eligibilityPayload{}, false
	}
	version := uint64(e.ShardIndex)

	endAmount, err := distributor.SafeAdd(e.AmountUnlocked, e.AmountLocked)
	if err != nil {
		endAmount = e.AmountUnlocked
	}

	payload := eligibilityPayload{
		Claimant:         claimant.String(),
		Mint:             e.Mint.String(),
		ShardIndex:       e.ShardIndex,
		MerkleRoot:       hexRoot(e.MerkleRoot),
		Proof:            proofHex(cache.ProofFor(e)),
		EndAmount:        endAmount,
		CacheConsistency: "eventually_consistent",
	}

	d, found := s.program.Distributor(e.Mint, version)
	if !found {
		// Shard artifact exists but create_distributor hasn't landed on
		// chain for it yet: nothing is claimable, and there's no vesting
		// schedule to interpolate against.
		payload.StartAmount = 0
		return payload, true
	}
	payload.StartTs = d.StartTs
	payload.EndTs = d.EndTs

	now := s.program.Now()
	distAddr := chain.DeriveDistributorAddress(e.Mint, version)
	record, hasClaim := s.claimCache.Lookup(distAddr, claimant)
	payload.HasClaimed = hasClaim

	if hasClaim {
		payload.ClaimedAmount = record.UnlockedAmountClaimed + record.LockedAmountWithdrawn
		vested, err := distributor.VestedAmount(record.LockedAmount, d.StartTs, d.EndTs, now)
		if err != nil {
			vested = 0
		}
		payload.StartAmount = record.UnlockedAmount + vested
	} else {
		// No new_claim call yet: the full unlocked tranche plus whatever
		// of the locked tranche has already vested is payable the instant
		// new_claim is submitted.
		vested, err := distributor.VestedAmount(e.AmountLocked, d.StartTs, d.EndTs, now)
		if err != nil {
			vested = 0
		}
		payload.StartAmount = e.AmountUnlocked + vested
	}
	return payload, true
}

// handleEligibility serves GET /eligibility/{id}.
func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	claimant, ok := parseAddressParam(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	payload, found := s.computeEligibility(claimant)
	if !found {
		writeError(w, http.StatusNotFound, "claimant not found in any shard")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
