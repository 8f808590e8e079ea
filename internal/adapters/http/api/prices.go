package api

import (
	"net/http"

	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
)

// UpdaterHeader names the account a write is attributed to.
const UpdaterHeader = "X-Updater"

// PricesHandler serves the price adapter operations.
type PricesHandler struct {
	prices PriceService
	logger logger.Logger
}

// NewPricesHandler creates a new prices handler.
func NewPricesHandler(prices PriceService, l logger.Logger) *PricesHandler {
	return &PricesHandler{prices: prices, logger: l}
}

// HandleGetPrices handles POST /v1/prices/get requests.
func (h *PricesHandler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_prices"
	var req payloadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	feedIDs, err := req.FeedIDs.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.prices.GetPrices(r.Context(), feedIDs, req.Payload)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Timestamp: res.MinTimestamp, Values: decimals(res.Values)})
}

// HandleWritePrices handles POST /v1/prices/write requests.
func (h *PricesHandler) HandleWritePrices(w http.ResponseWriter, r *http.Request) {
	const op = "api.write_prices"
	var req payloadRequest
	if err := decodeBody(r, &req); err != nil {
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

	res, err := h.prices.WritePrices(r.Context(), sender, feedIDs, req.Payload)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Timestamp: res.MinTimestamp, Values: decimals(res.Values)})
}

// HandleReadPrices handles GET /v1/prices?feed_ids=ETH,BTC requests.
func (h *PricesHandler) HandleReadPrices(w http.ResponseWriter, r *http.Request) {
	const op = "api.read_prices"
	feedIDs, err := parseFeedQuery(r.URL.Query().Get("feed_ids"))
	if err != nil {
		writeError(w, err)
		return
	}

	values, err := h.prices.ReadPrices(r.Context(), feedIDs)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Values: decimals(values)})
}

// HandleReadPriceData handles GET /v1/prices/{feed} requests.
func (h *PricesHandler) HandleReadPriceData(w http.ResponseWriter, r *http.Request) {
	const op = "api.read_price_data"
	feedIDs, err := feedList{r.PathValue("feed")}.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	st, err := h.prices.ReadPriceData(r.Context(), feedIDs[0])
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	name, ok := types.PrintableName(&feedIDs[0])
	if !ok {
		name = feedIDs[0].Hex()
	}
	writeJSON(w, http.StatusOK, priceDataResponse{
		FeedID:           name,
		Value:            st.Value.Dec(),
		PackageTimestamp: st.PackageTimestamp,
		WriteTimestamp:   st.WriteTimestamp,
	})
}

// HandleReadTimestamp handles GET /v1/timestamp requests.
func (h *PricesHandler) HandleReadTimestamp(w http.ResponseWriter, r *http.Request) {
	const op = "api.read_timestamp"
	ts, err := h.prices.ReadTimestamp(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, timestampResponse{Timestamp: ts})
}
