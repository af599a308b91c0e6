package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// routes maps every API path to its handler.
func (env *Environment) routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/blocks":        env.method(http.MethodGet, env.handleBlocks),
		"/blocks/latest": env.method(http.MethodGet, env.handleLatestBlock),
		"/mineBlock":     env.method(http.MethodPost, env.handleMineBlock),
		"/peers":         env.method(http.MethodGet, env.handlePeers),
		"/addPeer":       env.method(http.MethodPost, env.handleAddPeer),
		"/status":        env.method(http.MethodGet, env.handleStatus),
	}
}

func (env *Environment) method(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			writeError(w, env.Logger, http.StatusMethodNotAllowed,
				fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
			return
		}
		h(w, r)
	})
}

func (env *Environment) handleBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, env.Logger, http.StatusOK, env.ChainStore.Blocks())
}

func (env *Environment) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, env.Logger, http.StatusOK, env.ChainStore.Latest())
}

func (env *Environment) handleMineBlock(w http.ResponseWriter, r *http.Request) {
	var req MineBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, env.Logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	block, err := env.Reactor.MineBlock(r.Context(), req.Data)
	if err != nil {
		writeError(w, env.Logger, http.StatusConflict, err)
		return
	}
	writeJSON(w, env.Logger, http.StatusOK, block)
}

func (env *Environment) handlePeers(w http.ResponseWriter, r *http.Request) {
	peers := env.Peers.Peers()
	res := make([]ResultPeer, 0, len(peers))
	for _, ch := range peers {
		res = append(res, ResultPeer{ID: string(ch.ID()), RemoteAddr: ch.RemoteAddr()})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RemoteAddr < res[j].RemoteAddr })

	writeJSON(w, env.Logger, http.StatusOK, res)
}

func (env *Environment) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	var req AddPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, env.Logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Peer) == "" {
		writeError(w, env.Logger, http.StatusBadRequest, errors.New("peer address is required"))
		return
	}

	ch, err := env.Dialer.Dial(r.Context(), req.Peer)
	if err != nil {
		env.Logger.Error("failed to add peer", "peer", req.Peer, "err", err)
		writeError(w, env.Logger, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, env.Logger, http.StatusOK, ResultPeer{ID: string(ch.ID()), RemoteAddr: ch.RemoteAddr()})
}

func (env *Environment) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, env.Logger, http.StatusOK, env.Status())
}
