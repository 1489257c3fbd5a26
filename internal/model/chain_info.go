package model

// ChainInfo is the typed form of the /shadow/info payload. Optional sections
// are nil when the node omits them.
type ChainInfo struct {
	Chain     string          `json:"chain"`
	Token     string          `json:"token"`
	Version   string          `json:"version"`
	Network   string          `json:"network,omitempty"`
	Tagline   string          `json:"tagline"`
	Stats     ChainStats      `json:"stats"`
	Privacy   *PrivacyStats   `json:"privacy,omitempty"`
	Sapling   *SaplingStats   `json:"sapling,omitempty"`
	PoH       *PoHStats       `json:"poh,omitempty"`
	Consensus *ConsensusStats `json:"consensus,omitempty"`
	ZKP       *ZKPStats       `json:"zkp,omitempty"`
	Features  []string        `json:"features"`
}

type ChainStats struct {
	Height             uint64  `json:"height"`
	Epoch              uint64  `json:"epoch"`
	SlotInEpoch        uint64  `json:"slot_in_epoch"`
	TotalTransactions  uint64  `json:"total_transactions"`
	TotalCommitments   uint64  `json:"total_commitments"`
	TotalNullifiers    uint64  `json:"total_nullifiers"`
	TotalVolume        float64 `json:"total_volume"`
	MerkleRoot         string  `json:"merkle_root,omitempty"`
	CurrentTPS         float64 `json:"current_tps"`
	CurrentShieldedTPS float64 `json:"current_shielded_tps"`
}

type PrivacyStats struct {
	ShieldedTransactions    uint64  `json:"shielded_transactions"`
	TransparentTransactions uint64  `json:"transparent_transactions"`
	ShieldedRatio           float64 `json:"shielded_ratio"`
	ShieldOperations        uint64  `json:"shield_operations"`
	UnshieldOperations      uint64  `json:"unshield_operations"`
	PrivateTransfers        uint64  `json:"private_transfers"`
	AnonymitySetSize        int64   `json:"anonymity_set_size"`
	ShieldedPoolValue       float64 `json:"shielded_pool_value"`
	PrivacyScore            float64 `json:"privacy_score"`
	SpentNotes              uint64  `json:"spent_notes"`
	MerkleTreeDepth         uint64  `json:"merkle_tree_depth"`
	MerkleTreeSize          uint64  `json:"merkle_tree_size"`
	NullifierEntropy        float64 `json:"nullifier_entropy"`
}

type SaplingStats struct {
	SpendProofs         uint64  `json:"spend_proofs"`
	OutputProofs        uint64  `json:"output_proofs"`
	TotalProofs         uint64  `json:"total_proofs"`
	ProofSuccessRate    float64 `json:"proof_success_rate"`
	AvgSpendProofTime   float64 `json:"avg_spend_proof_time"`
	AvgOutputProofTime  float64 `json:"avg_output_proof_time"`
	AvgVerificationTime float64 `json:"avg_verification_time"`
	CircuitConstraints  uint64  `json:"circuit_constraints"`
	CircuitUtilization  float64 `json:"circuit_utilization"`
}

type PoHStats struct {
	CurrentSlot   uint64  `json:"current_slot"`
	CurrentHash   string  `json:"current_hash"`
	TickCount     uint64  `json:"tick_count"`
	HashesPerSlot uint64  `json:"hashes_per_slot"`
	HashRate      float64 `json:"hash_rate"`
	Leader        string  `json:"leader"`
	LeaderPubkey  string  `json:"leader_pubkey"`
}

type ConsensusStats struct {
	Type             string  `json:"type"`
	TotalStake       uint64  `json:"total_stake"`
	ActiveValidators uint64  `json:"active_validators"`
	Supermajority    float64 `json:"supermajority"`
	FinalitySlots    uint64  `json:"finality_slots"`
}

type ZKPStats struct {
	TotalProofsGenerated   uint64  `json:"total_proofs_generated"`
	ProofSuccessRate       float64 `json:"proof_success_rate"`
	AvgProofGenerationTime float64 `json:"avg_proof_generation_time"`
	AvgVerificationTime    float64 `json:"avg_verification_time"`
	CircuitConstraints     uint64  `json:"circuit_constraints"`
	CircuitUtilization     float64 `json:"circuit_utilization"`
	ProofSizeBytes         uint64  `json:"proof_size_bytes"`
	Groth16Curve           string  `json:"groth16_curve"`
}

// Validator is one entry of the /shadow/validators response.
type Validator struct {
	Pubkey   string  `json:"pubkey"`
	Identity string  `json:"identity,omitempty"`
	Stake    float64 `json:"stake"`
}

// ValidatorSet wraps the validator list as served by the node.
type ValidatorSet struct {
	Validators []Validator `json:"validators"`
}

// ExplorerTx is a transaction summary from /shadow/explorer.
type ExplorerTx struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	Version   int    `json:"version"`
	Inputs    int    `json:"inputs"`
	Outputs   int    `json:"outputs"`
	Fee       uint64 `json:"fee"`
	HasZKP    bool   `json:"has_zkp"`
}

// SubmitTxResponse is returned by POST /shadow/tx.
type SubmitTxResponse struct {
	Signature   string `json:"signature"`
	Status      string `json:"status"`
	Version     int    `json:"version"`
	ZKPVerified bool   `json:"zkp_verified"`
}

// Balance is returned by POST /shadow/balance.
type Balance struct {
	Balance     uint64  `json:"balance"`
	BalanceSHOL float64 `json:"balance_shol"`
}

// ShieldedAddress is returned by GET /address/generate. The keys are demo grade.
type ShieldedAddress struct {
	Address     string `json:"address"`
	SpendingKey string `json:"spending_key"`
	ViewingKey  string `json:"viewing_key"`
}

// FaucetResponse is returned by GET /faucet/:address.
type FaucetResponse struct {
	Success     bool    `json:"success"`
	Address     string  `json:"address,omitempty"`
	AmountSHOL  float64 `json:"amount_shol"`
	TxSignature string  `json:"tx_signature,omitempty"`
	Message     string  `json:"message,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// MerkleRoot is returned by GET /shadow/merkle-root.
type MerkleRoot struct {
	Root   string `json:"root"`
	Height uint64 `json:"height"`
}

// Health is returned by GET /health.
type Health struct {
	Status   string   `json:"status"`
	Chain    string   `json:"chain,omitempty"`
	Version  string   `json:"version"`
	Network  string   `json:"network,omitempty"`
	Features []string `json:"features"`
}
