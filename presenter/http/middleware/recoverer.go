package middleware

import (
	"fmt"
	"net/http"

	"github.com/omni/tokenbridge-antelope/logging"
	"github.com/omni/tokenbridge-antelope/presenter/http/render"
)

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger := logging.LoggerFromContext(r.Context())
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				logger.WithError(err).Error("recovered error from the http handler")
				render.Error(w, r, fmt.Errorf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
