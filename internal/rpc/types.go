package rpc

// MineBlockRequest is the body of POST /mineBlock.
type MineBlockRequest struct {
	Data string `json:"data"`
}

// AddPeerRequest is the body of POST /addPeer.
type AddPeerRequest struct {
	Peer string `json:"peer"`
}

// ResultPeer describes one connected peer.
type ResultPeer struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
}

// ResultStatus is the body of GET /status.
type ResultStatus struct {
	Moniker         string `json:"moniker"`
	Version         string `json:"version"`
	P2PProtocol     uint64 `json:"p2p_protocol"`
	HashAlgorithm   string `json:"hash_algorithm"`
	LatestHeight    int64  `json:"latest_height"`
	LatestBlockHash string `json:"latest_block_hash"`
	LatestBlockTime int64  `json:"latest_block_time"`
	Peers           int    `json:"peers"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
