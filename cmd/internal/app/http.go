package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerHTTP(mux *http.ServeMux, log Logger, gatherer prometheus.Gatherer) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slogErrorLog{log: log},
	}))
}

// slogErrorLog adapts the logger to promhttp's Println-style error sink.
type slogErrorLog struct {
	log Logger
}

func (l slogErrorLog) Println(v ...any) {
	l.log.Error("metrics.gather.fail", "err", fmt.Sprint(v...))
}
