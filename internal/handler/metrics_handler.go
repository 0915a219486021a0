package handler

import (
	"bytes"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"hzpresence/internal/pkg/logx"
)

// ExpositionContentType is the MIME type of the Prometheus text exposition format.
const ExpositionContentType = "text/plain; version=0.0.4; charset=utf-8"

// HandleMetrics renders every metric family known to gatherer in the Prometheus text format.
// The body is rendered in full before anything is written, so a failure can still produce a 500
// carrying the error text.
func HandleMetrics(gatherer prometheus.Gatherer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		families, err := gatherer.Gather()
		if err != nil {
			logx.Error(err, "Failed to gather metrics")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				logx.Error(err, "Failed to render metric family", "family", mf.GetName())
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", ExpositionContentType)
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write(buf.Bytes()); err != nil {
			logx.Debug("Failed to write metrics response", "error", err.Error())
		}
	}
}
