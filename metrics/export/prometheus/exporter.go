package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

// PrometheusExporter renders engine metrics in the Prometheus text format.
type PrometheusExporter struct {
	source internaldefs.Source
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render for GET and HEAD scrapes.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(p.render())
	})
}

// Render returns the current metrics, or "" when metrics are disabled and
// no audit event was dropped.
func (p *PrometheusExporter) Render() string {
	return string(p.render())
}

func (p *PrometheusExporter) render() []byte {
	if p == nil {
		return nil
	}
	families := internaldefs.Collect(p.source)
	if len(families) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.Grow(256 * len(families))
	for _, f := range families {
		switch f.Kind {
		case internaldefs.KindHistogram:
			writeHistogram(&buf, f)
		default:
			writeHeader(&buf, f, "counter")
			fmt.Fprintf(&buf, "%s %d\n", f.Name, f.Value)
		}
	}
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, f internaldefs.Family, typ string) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s %s\n", f.Name, helpEscaper.Replace(f.Help), f.Name, typ)
}

func writeHistogram(buf *bytes.Buffer, f internaldefs.Family) {
	writeHeader(buf, f, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", f.Name, le, f.Buckets[i])
	}
	// The engine keeps bucket counts only, so the sum is always zero.
	fmt.Fprintf(buf, "%s_sum 0\n%s_count %d\n", f.Name, f.Name, f.Count())
}
