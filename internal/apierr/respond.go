package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the spec's {"error": "..."} body,
// logging the underlying cause (if any) at an appropriate level.
// rate-limited errors are deliberately not logged at error level, per
// the error handling design.
func WriteError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	apiErr, ok := As(err)
	if !ok {
		apiErr = Wrap(Engine, http.StatusInternalServerError, "internal error", err)
	}

	if cause := apiErr.Unwrap(); cause != nil {
		ev := logger.Error()
		if apiErr.Kind == RateLimited {
			ev = logger.Debug()
		}
		ev.Err(cause).Str("kind", string(apiErr.Kind)).Msg("request failed")
	}

	if apiErr.Kind == RateLimited {
		w.Header().Set("Retry-After", "1")
	}

	WriteJSON(w, apiErr.Status, map[string]string{"error": apiErr.Message})
}
