package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/scanner"
	"github.com/mselser95/kalshi-edge/pkg/config"
)

var errInvalidValue = errors.New("unsupported value type")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleTriggerScan starts a full scan in the background and answers
// 202 with the current progress. A scan already in flight answers 409.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if s.pipeline.Progress().Snapshot().Status == scanner.StatusRunning {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "scan already in flight"})
		return
	}

	premium, _ := strconv.ParseBool(r.URL.Query().Get("premium"))

	go func() {
		// The request context dies with the response; the scan outlives it.
		if _, err := s.pipeline.RunFullScan(context.Background(), premium); err != nil {
			s.logger.Error("triggered-scan-failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Progress().Snapshot())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Resolve(r.Context()))
}

// handlePutConfig persists the supplied settings fields and, when the
// scan schedule changed, applies it to the running scheduler. The full
// merged settings are returned.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no settings supplied"})
		return
	}

	updates := make(map[string]string, len(body))
	for key, value := range body {
		str, err := stringifySetting(value)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: key + ": " + err.Error()})
			return
		}
		if str == "" {
			continue
		}
		updates[key] = str
	}

	if err := s.settings.Save(r.Context(), updates); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	merged := s.settings.Resolve(r.Context())
	if _, ok := updates["scan_times"]; ok && s.schedule != nil {
		if err := s.schedule.Reschedule(merged.ScanTimes); err != nil {
			s.logger.Error("config-reschedule-failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	s.notify.SendTest(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// stringifySetting renders a JSON value to the config-table string
// form ApplyOverride understands. Null values are dropped.
func stringifySetting(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []interface{}:
		hours := make([]int, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return "", errInvalidValue
			}
			hours = append(hours, int(f))
		}
		return config.FormatScanTimes(hours), nil
	default:
		return "", errInvalidValue
	}
}
