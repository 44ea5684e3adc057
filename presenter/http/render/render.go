package render

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/omni/tokenbridge-antelope/logging"
)

type errorResult struct {
	Error string `json:"error"`
}

// JSON writes res with the given status, indented when the request carries
// ?pretty=true.
func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	enc := json.NewEncoder(w)

	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		enc.SetIndent("", "  ")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := enc.Encode(res); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Error("failed to marshal JSON result")
	}
}

func Error(w http.ResponseWriter, r *http.Request, err error) {
	ErrorStatus(w, r, http.StatusInternalServerError, err)
}

func ErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := logging.LoggerFromContext(r.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request handling failed")
	} else {
		logger.Warn("request rejected")
	}
	JSON(w, r, status, errorResult{Error: err.Error()})
}
