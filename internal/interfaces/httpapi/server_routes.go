package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerSlipRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/slips", handler.CreateSlip)
	mux.HandleFunc("GET /v1/slips", handler.ListSlips)
	mux.HandleFunc("GET /v1/slips/{slipID}", handler.GetSlip)
	mux.HandleFunc("POST /v1/resolve", handler.ResolveFixture)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/slips/reresolve", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ReresolveSlipJob)))
}
