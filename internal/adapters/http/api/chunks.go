package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/okian/redstone/internal/adapters/chunks"
	"github.com/okian/redstone/pkg/logger"
)

// chunkRequest mirrors the OpenAPI schema for POST /v1/chunks.
type chunkRequest struct {
	Hash    hexutil.Bytes `json:"hash"`
	Index   int           `json:"index"`
	Chunk   hexutil.Bytes `json:"chunk"`
	FeedIDs feedList      `json:"feed_ids"`
	Mode    string        `json:"mode"`
	Sender  string        `json:"sender,omitempty"`
}

type chunkResponse struct {
	Pending   bool     `json:"pending"`
	Timestamp uint64   `json:"timestamp,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// ChunksHandler feeds payload chunks to the relay.
type ChunksHandler struct {
	relay  ChunkRelay
	logger logger.Logger
}

// NewChunksHandler creates a new chunks handler.
func NewChunksHandler(relay ChunkRelay, l logger.Logger) *ChunksHandler {
	return &ChunksHandler{relay: relay, logger: l}
}

// HandlePostChunk handles POST /v1/chunks requests. Until the payload is
// complete the response is 202 with pending set.
func (h *ChunksHandler) HandlePostChunk(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_chunk"
	var req chunkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := chunks.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	feedIDs, err := req.FeedIDs.parse()
	if err != nil {
		writeError(w, err)
		return
	}
	sender, err := parseSender(r.Header.Get(UpdaterHeader), req.Sender)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.relay.Process(r.Context(), chunks.Chunk{
		Index:   req.Index,
		Hash:    req.Hash,
		Data:    req.Chunk,
		FeedIDs: feedIDs,
		Sender:  sender,
		Mode:    mode,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	if res.Pending {
		writeJSON(w, http.StatusAccepted, chunkResponse{Pending: true})
		return
	}
	writeJSON(w, http.StatusOK, chunkResponse{Timestamp: res.Timestamp, Values: decimals(res.Values)})
}
