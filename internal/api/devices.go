package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/busdecode/internal/device"
	"github.com/nerrad567/busdecode/internal/i2c"
	"github.com/nerrad567/busdecode/internal/store"
)

// DeviceResponse combines the live state of a device in this run with its
// recorded history, when a history store is configured.
type DeviceResponse struct {
	Device  device.Snapshot `json:"device"`
	History *store.Device   `json:"history,omitempty"`
}

// handleListDevices returns every device known to this run in
// registration order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
		"ignored": s.registry.IgnoreList(),
	})
}

// handleGetDevice returns one device. The address may be given in any
// case with or without a leading zero ("0x8", "0X08").
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}

	var resp DeviceResponse
	live, err := s.registry.Get(addr)
	switch {
	case err == nil:
		resp.Device = live.Snapshot()
	case device.IsNotFound(err):
		if s.history == nil {
			writeNotFound(w, "device not found")
			return
		}
	default:
		writeInternalError(w, "failed to get device")
		return
	}

	if s.history != nil {
		hist, herr := s.history.GetDevice(r.Context(), addr)
		switch {
		case herr == nil:
			resp.History = hist
		case errors.Is(herr, store.ErrNotFound):
			if err != nil {
				writeNotFound(w, "device not found")
				return
			}
		default:
			s.logger.Error("reading device history", "address", addr, "error", herr)
			writeInternalError(w, "failed to read device history")
			return
		}
	}

	if err != nil {
		// Seen in an earlier run only.
		resp.Device = device.Snapshot{Address: addr, Name: resp.History.Name}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDeviceTransactions returns stored transactions for one device.
func (s *Server) handleDeviceTransactions(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	filter.Address = addr
	s.listTransactions(w, r, filter)
}

// handleListTransactions returns stored transactions across all devices.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	filter.Condition = r.URL.Query().Get("condition")
	s.listTransactions(w, r, filter)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, filter store.Filter) {
	if s.history == nil {
		writeUnavailable(w, "decode history is disabled")
		return
	}
	res, err := s.history.ListTransactions(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing transactions", "error", err)
		writeInternalError(w, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// addressParam canonicalizes the {address} URL parameter, writing a 400
// and returning false when it is not a bus address.
func addressParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr, err := i2c.CanonicalAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid device address")
		return "", false
	}
	return addr, true
}

// parseFilter reads limit, offset and run_id query parameters.
func parseFilter(w http.ResponseWriter, r *http.Request) (store.Filter, bool) {
	q := r.URL.Query()
	var f store.Filter
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return f, false
		}
		*dst = n
	}
	f.RunID = q.Get("run_id")
	return f, true
}
