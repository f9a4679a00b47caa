package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/process-day", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunProcessDayJob)))
	mux.Handle("POST /v1/internal/jobs/enqueue-range", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunEnqueueRangeJob)))
	mux.Handle("GET /v1/internal/days/{date}/report", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetDayReport)))
}
